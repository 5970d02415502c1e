package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat/perf-tests-reporter/framework"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [test-id...]",
		Short: "Run the analysis of one or more tests",
		Long: "Run the analysis of one or more tests. Independent tests run concurrently,\n" +
			"bounded by $PERF_REPORT_MAX_CONCURRENT_RUNS.",
		RunE: runAnalyze,
	}
	cmd.Flags().Int64Slice("test", nil, "test id (repeatable or comma-separated)")
	return cmd
}

func testIDs(cmd *cobra.Command, args []string) ([]int64, error) {
	ids, err := cmd.Flags().GetInt64Slice("test")
	if err != nil {
		return nil, fmt.Errorf("parse --test: %w", err)
	}
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid test id %q", a)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no test ids given")
	}
	return ids, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ids, err := testIDs(cmd, args)
	if err != nil {
		return err
	}

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	start := time.Now()
	outcomes := fw.AnalyzeTests(cmd.Context(), ids)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n========================================\n")
	fmt.Fprintf(out, "SUMMARY\n")
	fmt.Fprintf(out, "========================================\n")

	var passed, failed int
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(out, "  test %d: FAIL (%v)\n", ids[i], o.Err)
			continue
		}
		passed++
		a := o.Value
		status := "PASS"
		if a.Result.Degraded {
			status = "PASS (degraded reply)"
		}
		fmt.Fprintf(out, "  test %d: %s (%s) %s\n", a.TestID, status, a.Result.Duration.Round(time.Second), fw.Storage().Resolve(a.Report.TextPath))
	}
	fmt.Fprintf(out, "\nTotal: %d passed, %d failed in %s\n", passed, failed, time.Since(start).Round(time.Second))

	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(ids))
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect stored reports",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored report of a test",
		RunE:  runReportShow,
	}
	show.Flags().Int64("test", 0, "test id")
	show.Flags().Bool("artifacts", false, "also list the artifacts the report was produced from")
	_ = show.MarkFlagRequired("test")

	cmd.AddCommand(show)
	return cmd
}

func runReportShow(cmd *cobra.Command, args []string) error {
	testID, _ := cmd.Flags().GetInt64("test")
	withArtifacts, _ := cmd.Flags().GetBool("artifacts")

	fw, err := openFramework(cmd)
	if err != nil {
		return err
	}
	defer fw.Close()

	r, err := fw.Store().GetReport(cmd.Context(), testID)
	if err != nil {
		if framework.IsNotFound(err) {
			return fmt.Errorf("test %d has no report yet: run analyze first", testID)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.Text)
	if withArtifacts {
		fmt.Fprintln(out, "\nArtifacts:")
		for _, a := range r.ArtifactsUsed {
			mark := " "
			if a.Used {
				mark = "x"
			}
			fmt.Fprintf(out, "  [%s] %d %s %s\n", mark, a.ID, a.Kind, a.DisplayName)
		}
	}
	if r.PDFPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "PDF: %s\n", fw.Storage().Resolve(r.PDFPath))
	}
	return nil
}
