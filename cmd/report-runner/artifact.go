package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
)

func newArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Manage test artifacts",
	}

	upload := &cobra.Command{
		Use:   "upload",
		Short: "Upload an engineer-provided file",
		RunE:  runArtifactUpload,
	}
	upload.Flags().Int64("test", 0, "test id")
	upload.Flags().String("kind", string(artifact.KindCustomOther), fmt.Sprintf("artifact kind %v", artifact.CustomKinds))
	upload.Flags().String("file", "", "local file to upload")
	upload.Flags().String("name", "", "display name (default: file name)")
	_ = upload.MarkFlagRequired("test")
	_ = upload.MarkFlagRequired("file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the artifacts of a test",
		RunE:  runArtifactList,
	}
	list.Flags().Int64("test", 0, "test id")
	_ = list.MarkFlagRequired("test")

	cmd.AddCommand(upload, list)
	return cmd
}

func runArtifactUpload(cmd *cobra.Command, args []string) error {
	testID, _ := cmd.Flags().GetInt64("test")
	kindName, _ := cmd.Flags().GetString("kind")
	file, _ := cmd.Flags().GetString("file")
	name, _ := cmd.Flags().GetString("name")

	kind, err := artifact.ParseKind(kindName)
	if err != nil {
		return err
	}
	if !kind.IsCustom() {
		return fmt.Errorf("kind %s is collected automatically and cannot be uploaded", kind)
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	a, err := fw.UploadArtifactFile(cmd.Context(), testID, kind, file, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded artifact %d: %s (%s)\n", a.ID, a.Label(), a.Kind)
	return nil
}

func runArtifactList(cmd *cobra.Command, args []string) error {
	testID, _ := cmd.Flags().GetInt64("test")

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	artifacts, err := fw.Store().ListArtifacts(cmd.Context(), testID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No artifacts")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, a := range artifacts {
		present := "ok"
		if !fw.Storage().Exists(a.FilePath) {
			present = "missing"
		}
		fmt.Fprintf(out, "%-4d %-18s %-40s %s [%s]\n", a.ID, a.Kind, a.Label(), a.FilePath, present)
	}
	return nil
}
