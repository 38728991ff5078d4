package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
		// KeyringAccount names the keychain entry holding the postgres password.
		KeyringAccount string `yaml:"keyring_account"`
		MaxConns       int    `yaml:"max_conns"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Scraping struct {
		MaxConcurrency        int     `yaml:"max_concurrency"`
		CompanyTimeoutSeconds int     `yaml:"company_timeout_seconds"`
		MinDelayMS            int     `yaml:"min_delay_ms"`
		MaxDelayMS            int     `yaml:"max_delay_ms"`
		RequestsPerSecond     float64 `yaml:"requests_per_second"`
		Burst                 int     `yaml:"burst"`
		UserAgent             string  `yaml:"user_agent"`
	} `yaml:"scraping"`

	Browser struct {
		Headless               bool   `yaml:"headless"`
		ExecPath               string `yaml:"exec_path"`
		PageLoadTimeoutSeconds int    `yaml:"page_load_timeout_seconds"`
	} `yaml:"browser"`

	Retry struct {
		MaxAttempts         int     `yaml:"max_attempts"`
		InitialDelaySeconds int     `yaml:"initial_delay_seconds"`
		MaxDelaySeconds     int     `yaml:"max_delay_seconds"`
		Multiplier          float64 `yaml:"multiplier"`
	} `yaml:"retry"`

	Schedule struct {
		ScrapeAll   string `yaml:"scrape_all"`
		DailyReport string `yaml:"daily_report"`
		Cleanup     string `yaml:"cleanup"`
	} `yaml:"schedule"`

	Retention struct {
		JobDays int `yaml:"job_days"`
		LogDays int `yaml:"log_days"`
	} `yaml:"retention"`

	CompaniesFile string `yaml:"companies_file"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	var c Config
	c.App.Host = "127.0.0.1"
	c.App.Port = 38471
	c.App.DataDir = "data"
	c.Database.Driver = DriverSQLite
	c.Database.Path = "jobs.db"
	c.Database.MaxConns = 10
	c.Scraping.MaxConcurrency = 3
	c.Scraping.CompanyTimeoutSeconds = 300
	c.Scraping.MinDelayMS = 1000
	c.Scraping.MaxDelayMS = 3000
	c.Scraping.RequestsPerSecond = 2
	c.Scraping.Burst = 2
	c.Browser.Headless = true
	c.Browser.PageLoadTimeoutSeconds = 30
	c.Retry.MaxAttempts = 4
	c.Retry.InitialDelaySeconds = 1
	c.Retry.MaxDelaySeconds = 60
	c.Retry.Multiplier = 2
	c.Schedule.ScrapeAll = "0 2 * * *"
	c.Schedule.DailyReport = "0 8 * * *"
	c.Schedule.Cleanup = "0 1 * * 1"
	c.Retention.JobDays = 90
	c.Retention.LogDays = 90
	c.CompaniesFile = "companies.yml"
	return c
}

// Load reads path over Default, so omitted keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// ApplyEnv lets the environment (or a .env file loaded beforehand) override
// deployment-specific settings.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("JOBINGEST_DATA_DIR")); v != "" {
		c.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBINGEST_DATABASE_URL")); v != "" {
		c.Database.Driver = DriverPostgres
		c.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBINGEST_REDIS_URL")); v != "" {
		c.Redis.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHROME_BIN")); v != "" {
		c.Browser.ExecPath = v
	}
}

// ResolvePath anchors relative file settings under the data dir.
func (c Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

func (c Config) CompanyTimeout() time.Duration {
	return time.Duration(c.Scraping.CompanyTimeoutSeconds) * time.Second
}

func (c Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Browser.PageLoadTimeoutSeconds) * time.Second
}
