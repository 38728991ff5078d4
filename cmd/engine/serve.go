package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"jobingest-engine/internal/admin"
	"jobingest-engine/internal/config"
	"jobingest-engine/internal/httpapi"
	"jobingest-engine/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operator API and run the recurring schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// One scheduler per data dir.
	lock := flock.New(filepath.Join(cfg.App.DataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("another engine is already serving from %s", cfg.App.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	statuses, err := a.statusStore(ctx)
	if err != nil {
		return err
	}
	runner := tasks.NewAsyncRunner(ctx, tasks.Options{Store: statuses, Policy: retryPolicy(a.cfg), Events: a.hub})
	svc := a.service(runner)

	if err := seedCompanies(ctx, svc, cfg); err != nil {
		log.Printf("[engine] seed companies: %v", err)
	}

	sched := tasks.NewScheduler(runner)
	for _, j := range svc.ScheduledJobs(admin.Schedule{
		ScrapeAll:   cfg.Schedule.ScrapeAll,
		DailyReport: cfg.Schedule.DailyReport,
		Cleanup:     cfg.Schedule.Cleanup,
		JobDays:     cfg.Retention.JobDays,
		LogDays:     cfg.Retention.LogDays,
	}) {
		if err := sched.Add(j); err != nil {
			return err
		}
	}
	sched.Start()

	addr := net.JoinHostPort(cfg.App.Host, strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		sched.Stop()
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewRouter(httpapi.Deps{Admin: svc, Hub: a.hub, AllowedOrigins: cfg.AllowedOrigins}),
		ReadHeaderTimeout: 5 * time.Second,
		// Request contexts end with the process so SSE streams let Shutdown finish.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	log.Printf("engine listening on http://%s next_scrape=%s", addr, sched.Next("scrape_all").Format(time.RFC3339))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[engine] http shutdown: %v", err)
	}
	runner.Wait()
	log.Println("[engine] stopped")

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

// seedCompanies imports the companies file into an empty config table.
func seedCompanies(ctx context.Context, svc *admin.Service, cfg config.Config) error {
	existing, err := svc.Companies(ctx, false)
	if err != nil || len(existing) > 0 {
		return err
	}
	cfgs, err := config.LoadCompanies(cfg.ResolvePath(cfg.CompaniesFile))
	if err != nil {
		return err
	}
	n, err := svc.ImportCompanies(ctx, cfgs)
	log.Printf("[engine] seeded companies=%d", n)
	return err
}
