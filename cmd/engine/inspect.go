package main

import (
	"github.com/spf13/cobra"

	"jobingest-engine/internal/admin"
)

var testAdapterCmd = &cobra.Command{
	Use:   "test-adapter <company>",
	Short: "Fetch one company's postings and print a normalized sample without storing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestAdapter,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ingestion statistics",
	RunE:  runStats,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old jobs and run logs",
	RunE:  runCleanup,
}

var (
	testSample  int
	statsDays   int
	cleanJobAge int
	cleanLogAge int
)

func init() {
	testAdapterCmd.Flags().IntVar(&testSample, "sample", admin.DefaultSampleSize, "Number of records to print")
	statsCmd.Flags().IntVar(&statsDays, "days", admin.DefaultStatsDays, "Reporting window in days")
	cleanupCmd.Flags().IntVar(&cleanJobAge, "job-days", 0, "Delete jobs older than this many days (default retention.job_days)")
	cleanupCmd.Flags().IntVar(&cleanLogAge, "log-days", 0, "Delete run logs older than this many days (default retention.log_days)")

	rootCmd.AddCommand(testAdapterCmd, statsCmd, cleanupCmd)
}

func runTestAdapter(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		res, err := a.inline(ctx).TestAdapter(ctx, args[0], testSample)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		rep, err := a.inline(ctx).Stats(ctx, statsDays)
		if err != nil {
			return err
		}
		return printJSON(rep)
	})
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		jobDays, logDays := cleanJobAge, cleanLogAge
		if jobDays <= 0 {
			jobDays = a.cfg.Retention.JobDays
		}
		if logDays <= 0 {
			logDays = a.cfg.Retention.LogDays
		}
		res, err := a.inline(ctx).Cleanup(ctx, jobDays, logDays)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}
