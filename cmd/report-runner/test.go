package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redhat/perf-tests-reporter/framework/store"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Manage load tests",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Register a load test of a project",
		RunE:  runTestCreate,
	}
	create.Flags().String("project", "", "project name")
	create.Flags().String("type", "", fmt.Sprintf("test type %v", store.TestTypes))
	create.Flags().String("from", "", "test window start (RFC3339 or \""+timeLayout+"\" UTC)")
	create.Flags().String("to", "", "test window end")
	create.Flags().String("prompt", "", "engineer instruction passed to the model")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("type")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tests",
		RunE:  runTestList,
	}
	list.Flags().String("project", "", "only tests of this project")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a test with its artifacts and reports",
		RunE:  runTestDelete,
	}
	del.Flags().Int64("test", 0, "test id")
	_ = del.MarkFlagRequired("test")

	cmd.AddCommand(create, list, del)
	return cmd
}

func runTestCreate(cmd *cobra.Command, args []string) error {
	projectName, _ := cmd.Flags().GetString("project")
	typeName, _ := cmd.Flags().GetString("type")
	prompt, _ := cmd.Flags().GetString("prompt")

	testType, err := store.ParseTestType(typeName)
	if err != nil {
		return err
	}
	from, to, err := timeFlags(cmd)
	if err != nil {
		return err
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	project, err := fw.Store().GetProjectByName(cmd.Context(), projectName)
	if err != nil {
		return fmt.Errorf("project %q: %w", projectName, err)
	}

	t := store.Test{ProjectID: project.ID, Type: testType, SystemPrompt: prompt}
	if !from.IsZero() {
		t.StartedAt = &from
	}
	if !to.IsZero() {
		t.EndedAt = &to
	}
	created, err := fw.Store().CreateTest(cmd.Context(), t)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created test %d (%s) for project %s\n", created.ID, created.Type, project.Name)
	return nil
}

func runTestList(cmd *cobra.Command, args []string) error {
	projectName, _ := cmd.Flags().GetString("project")

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	var projectID int64
	if projectName != "" {
		project, err := fw.Store().GetProjectByName(cmd.Context(), projectName)
		if err != nil {
			return fmt.Errorf("project %q: %w", projectName, err)
		}
		projectID = project.ID
	}

	tests, err := fw.Store().ListTests(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tests")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, t := range tests {
		fmt.Fprintf(out, "%-4d project=%d %-18s %-10s %s .. %s", t.ID, t.ProjectID, t.Type, t.Status, formatTime(t.StartedAt), formatTime(t.EndedAt))
		if t.ErrorMessage != "" {
			fmt.Fprintf(out, " error=%q", t.ErrorMessage)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runTestDelete(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetInt64("test")

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.DeleteTest(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted test %d\n", id)
	return nil
}
