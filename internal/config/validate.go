package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Error() string {
	return "config validation failed:\n- " + strings.Join(v.Errors, "\n- ")
}

// NormalizeAndValidate returns a normalized copy alongside its findings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Database.Driver = strings.ToLower(strings.TrimSpace(out.Database.Driver))
	out.Database.URL = strings.TrimSpace(out.Database.URL)
	out.Scraping.UserAgent = strings.TrimSpace(out.Scraping.UserAgent)
	out.Schedule.ScrapeAll = strings.TrimSpace(out.Schedule.ScrapeAll)
	out.Schedule.DailyReport = strings.TrimSpace(out.Schedule.DailyReport)
	out.Schedule.Cleanup = strings.TrimSpace(out.Schedule.Cleanup)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if strings.TrimSpace(out.App.DataDir) == "" {
		res.addErr("app.data_dir is required")
	}

	switch out.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(out.Database.Path) == "" {
			res.addErr("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if out.Database.URL == "" {
			res.addErr("database.url is required for the postgres driver")
		}
		if out.Database.MaxConns <= 0 {
			res.addErr("database.max_conns must be > 0")
		}
	default:
		res.addErr("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, out.Database.Driver)
	}

	if out.Scraping.MaxConcurrency <= 0 {
		res.addErr("scraping.max_concurrency must be > 0")
	} else if out.Scraping.MaxConcurrency > 10 {
		res.addWarn("scraping.max_concurrency is high (%d); each Workday run starts its own browser.", out.Scraping.MaxConcurrency)
	}
	if out.Scraping.CompanyTimeoutSeconds <= 0 {
		res.addErr("scraping.company_timeout_seconds must be > 0")
	}
	if out.Scraping.MinDelayMS < 0 || out.Scraping.MaxDelayMS < out.Scraping.MinDelayMS {
		res.addErr("scraping delays must satisfy 0 <= min_delay_ms <= max_delay_ms")
	} else if out.Scraping.MinDelayMS == 0 {
		res.addWarn("scraping.min_delay_ms is 0; career sites may rate limit you.")
	}
	if out.Scraping.RequestsPerSecond < 0 {
		res.addErr("scraping.requests_per_second must be >= 0")
	}

	if out.Browser.PageLoadTimeoutSeconds <= 0 {
		res.addErr("browser.page_load_timeout_seconds must be > 0")
	}

	if out.Retry.MaxAttempts <= 0 {
		res.addErr("retry.max_attempts must be > 0")
	}
	if out.Retry.Multiplier < 1 {
		res.addErr("retry.multiplier must be >= 1")
	}
	if out.Retry.MaxDelaySeconds < out.Retry.InitialDelaySeconds {
		res.addErr("retry.max_delay_seconds must be >= retry.initial_delay_seconds")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.scrape_all":   out.Schedule.ScrapeAll,
		"schedule.daily_report": out.Schedule.DailyReport,
		"schedule.cleanup":      out.Schedule.Cleanup,
	} {
		if spec == "" {
			res.addWarn("%s is empty; that job will not be scheduled.", name)
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			res.addErr("%s: %v", name, err)
		}
	}

	if out.Retention.JobDays <= 0 || out.Retention.LogDays <= 0 {
		res.addErr("retention.job_days and retention.log_days must be > 0")
	}

	return out, res
}
