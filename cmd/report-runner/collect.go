package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect evidence for a test window",
	}

	k8s := &cobra.Command{
		Use:   "k8s",
		Short: "Collect the pod inventory and container logs",
		RunE:  runCollectK8s,
	}
	k8s.Flags().String("namespace", "", "namespace (default: project namespace, then all namespaces)")

	grafana := &cobra.Command{
		Use:   "grafana",
		Short: "Export every panel of a dashboard as an image slice",
		RunE:  runCollectGrafana,
	}
	grafana.Flags().String("dashboard", "", "dashboard uid")
	grafana.Flags().String("source", "", "grafana source name (default: first source of the project)")
	_ = grafana.MarkFlagRequired("dashboard")

	for _, c := range []*cobra.Command{k8s, grafana} {
		c.Flags().Int64("test", 0, "test id")
		c.Flags().String("from", "", "window start (default: test start)")
		c.Flags().String("to", "", "window end (default: test end)")
		_ = c.MarkFlagRequired("test")
	}

	cmd.AddCommand(k8s, grafana)
	return cmd
}

func runCollectK8s(cmd *cobra.Command, args []string) error {
	testID, _ := cmd.Flags().GetInt64("test")
	namespace, _ := cmd.Flags().GetString("namespace")
	from, to, err := timeFlags(cmd)
	if err != nil {
		return err
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	result, err := fw.CollectKubernetes(cmd.Context(), testID, from, to, namespace)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	scope := result.Namespace
	if scope == "" {
		scope = "all namespaces"
	}
	fmt.Fprintf(out, "Collected %d pods and %d/%d container logs from %s\n",
		len(result.Pods), result.Collected(), len(result.Logs), scope)
	for _, l := range result.Logs {
		if l.Err != nil {
			fmt.Fprintf(out, "  skipped %s/%s/%s: %v\n", l.Namespace, l.Pod, l.Container, l.Err)
		}
	}
	return nil
}

func runCollectGrafana(cmd *cobra.Command, args []string) error {
	testID, _ := cmd.Flags().GetInt64("test")
	dashboard, _ := cmd.Flags().GetString("dashboard")
	source, _ := cmd.Flags().GetString("source")
	from, to, err := timeFlags(cmd)
	if err != nil {
		return err
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	result, err := fw.CollectGrafana(cmd.Context(), testID, from, to, dashboard, source)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d panels of %s from %s\n", len(result.Artifacts), result.Dashboard, result.Source)
	return nil
}
