package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"jobingest-engine/internal/admin"
	"jobingest-engine/internal/config"
	"jobingest-engine/internal/events"
	"jobingest-engine/internal/orchestrator"
	"jobingest-engine/internal/scrape"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/scrape/workday"
	"jobingest-engine/internal/secrets"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/store/postgres"
	"jobingest-engine/internal/tasks"
	"jobingest-engine/internal/upsert"
)

// database is a Store that owns its schema.
type database interface {
	store.Store
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
}

type app struct {
	cfg  config.Config
	db   database
	hub  *events.Hub
	reg  *scrape.Registry
	orch *orchestrator.Orchestrator
	rdb  *redis.Client
}

func loadConfig() (config.Config, error) {
	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = os.Getenv("JOBINGEST_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = config.Default().App.DataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return config.Config{}, err
	}

	path := flagConfig
	if path == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return config.Config{}, fmt.Errorf("config bootstrap failed: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg.ApplyEnv()
	if flagDataDir != "" {
		cfg.App.DataDir = flagDataDir
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !v.OK() {
		return config.Config{}, v
	}
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (database, error) {
	if cfg.Database.Driver == config.DriverPostgres {
		url, err := secrets.DatabaseURL(cfg.Database.URL, cfg.Database.KeyringAccount)
		if err != nil {
			return nil, err
		}
		db, err := postgres.Open(ctx, url, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	db, err := store.Open(cfg.ResolvePath(cfg.Database.Path))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newApp opens and migrates the database and builds the scrape pipeline.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	limiter := util.NewHostLimiter(cfg.Scraping.RequestsPerSecond, cfg.Scraping.Burst)
	pacer := util.NewPacer(
		time.Duration(cfg.Scraping.MinDelayMS)*time.Millisecond,
		time.Duration(cfg.Scraping.MaxDelayMS)*time.Millisecond,
	)
	reg := scrape.NewRegistry(scrape.Deps{
		Client:  util.NewClient(limiter, pacer, cfg.Scraping.UserAgent),
		Limiter: limiter,
		Pacer:   pacer,
		Browser: workday.NewChromeBrowser(workday.ChromeOptions{
			Headless:        cfg.Browser.Headless,
			ExecPath:        cfg.Browser.ExecPath,
			UserAgent:       cfg.Scraping.UserAgent,
			PageLoadTimeout: cfg.PageLoadTimeout(),
		}),
	})

	hub := events.NewHub()
	orch := orchestrator.New(db, reg, upsert.New(db), orchestrator.Options{
		MaxConcurrency: cfg.Scraping.MaxConcurrency,
		CompanyTimeout: cfg.CompanyTimeout(),
		Events:         hub,
		Retry:          retryPolicy(cfg),
	})

	log.Printf("[engine] database driver=%s data_dir=%s", cfg.Database.Driver, cfg.App.DataDir)
	return &app{cfg: cfg, db: db, hub: hub, reg: reg, orch: orch}, nil
}

func retryPolicy(cfg config.Config) tasks.RetryPolicy {
	p := tasks.DefaultRetryPolicy()
	p.MaxAttempts = cfg.Retry.MaxAttempts
	p.InitialDelay = time.Duration(cfg.Retry.InitialDelaySeconds) * time.Second
	p.MaxDelay = time.Duration(cfg.Retry.MaxDelaySeconds) * time.Second
	p.Multiplier = cfg.Retry.Multiplier
	return p
}

// statusStore shares task status through redis when configured.
func (a *app) statusStore(ctx context.Context) (tasks.StatusStore, error) {
	if a.cfg.Redis.URL == "" {
		return tasks.NewMemoryStatusStore(), nil
	}
	rdb, err := tasks.NewRedisClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	return tasks.NewRedisStatusStore(rdb, tasks.DefaultTaskTTL), nil
}

func (a *app) service(runner tasks.Runner) *admin.Service {
	return admin.New(a.db, a.orch, a.reg, runner)
}

// inline is a service whose triggers run in the calling goroutine.
func (a *app) inline(ctx context.Context) *admin.Service {
	return a.service(tasks.NewSyncRunner(ctx, tasks.Options{Policy: retryPolicy(a.cfg)}))
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("[engine] close database: %v", err)
	}
}

// withApp loads config, opens the app for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}
