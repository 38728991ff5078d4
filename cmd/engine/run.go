package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobingest-engine/internal/tasks"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape every active company, or one with --company, in the foreground",
	RunE:  runRun,
}

var runCompany string

func init() {
	runCmd.Flags().StringVar(&runCompany, "company", "", "Only scrape this company (case-insensitive)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		svc := a.inline(ctx)

		var (
			info tasks.TaskInfo
			err  error
		)
		if runCompany != "" {
			info, err = svc.TriggerCompany(ctx, runCompany)
		} else {
			info, err = svc.TriggerAll(ctx)
		}
		if err != nil {
			return err
		}
		if err := printJSON(info); err != nil {
			return err
		}
		if info.Status == tasks.StatusFailed {
			return fmt.Errorf("run failed (%s): %s", info.ErrorKind, info.Error)
		}
		return nil
	})
}
