package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redhat/perf-tests-reporter/framework/profile"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create projects from profile YAML files",
		RunE:  runProjectAdd,
	}
	add.Flags().StringArrayP("file", "f", nil, "profile file (repeatable)")
	add.Flags().String("profiles-dir", "", "import every profile in a directory")
	add.Flags().String("profiles", "", "comma-separated profile names to import from --profiles-dir")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE:  runProjectList,
	}

	cmd.AddCommand(add, list)
	return cmd
}

func loadProfiles(cmd *cobra.Command) ([]*profile.Profile, error) {
	files, _ := cmd.Flags().GetStringArray("file")
	dir, _ := cmd.Flags().GetString("profiles-dir")
	names, _ := cmd.Flags().GetString("profiles")

	var profiles []*profile.Profile
	for _, file := range files {
		p, err := profile.Load(file)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if dir != "" {
		var (
			loaded []*profile.Profile
			err    error
		)
		if names != "" {
			loaded, err = profile.LoadByNames(dir, strings.Split(names, ","))
		} else {
			loaded, err = profile.LoadAll(dir)
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, loaded...)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles given: use --file or --profiles-dir")
	}
	return profiles, nil
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	profiles, err := loadProfiles(cmd)
	if err != nil {
		return err
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, p := range profiles {
		project, err := fw.ImportProfile(cmd.Context(), p)
		if err != nil {
			return fmt.Errorf("import profile %s: %w", p.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %d: %s (llm=%s)\n", project.ID, project.Name, project.LLMType)
	}
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	projects, err := fw.Store().ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, p := range projects {
		model := p.LLMModel
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(out, "%-4d %-24s llm=%s model=%s grafana=%d k8s=%t\n",
			p.ID, p.Name, p.LLMType, model, len(p.GrafanaSources), p.K8s != nil)
	}
	return nil
}
