package store

import (
	"context"
	"errors"
	"time"

	"jobingest-engine/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrRunLogFinalized = errors.New("run log already finalized")
)

type JobStore interface {
	// FindJob looks a job up by its natural key; ErrNotFound when absent.
	FindJob(ctx context.Context, source, sourceJobID string) (domain.Job, error)
	// InsertJob returns ErrDuplicateKey when (source, source_job_id) already exists.
	InsertJob(ctx context.Context, rec domain.JobRecord) (int64, error)
	// UpdateJob overwrites the mutable fields; source and source_job_id never change.
	UpdateJob(ctx context.Context, id int64, rec domain.JobRecord) error
	CountJobs(ctx context.Context) (int, error)
	ListJobs(ctx context.Context, f JobFilter) ([]domain.Job, error)
	// DeleteJobsOlderThan serves the retention job only.
	DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ConfigStore interface {
	// GetActiveConfigs returns active configs; a non-empty company matches
	// company_name case-insensitively.
	GetActiveConfigs(ctx context.Context, company string) ([]domain.CompanyScraperConfig, error)
	ListConfigs(ctx context.Context, activeOnly bool) ([]domain.CompanyScraperConfig, error)
	// CreateConfig returns ErrDuplicateKey when (company_name, scraper_type) exists.
	CreateConfig(ctx context.Context, cfg domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error)
	// UpsertConfig inserts or replaces config and is_active for (company_name, scraper_type).
	UpsertConfig(ctx context.Context, cfg domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error)
	UpdateLastScrapedAt(ctx context.Context, company string, t domain.ScraperType, at time.Time) error
}

type RunLogStore interface {
	StartRunLog(ctx context.Context, entry domain.ScrapingRunLog) (int64, error)
	// FinishRunLog moves a started row to a terminal status exactly once;
	// ErrRunLogFinalized on a second attempt.
	FinishRunLog(ctx context.Context, id int64, fin domain.RunFinish) error
	GetRunLog(ctx context.Context, id int64) (domain.ScrapingRunLog, error)
	ListRunLogs(ctx context.Context, f RunLogFilter) ([]domain.ScrapingRunLog, error)
	DeleteRunLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type StatsStore interface {
	Stats(ctx context.Context, since time.Time) (Stats, error)
}

type Store interface {
	JobStore
	ConfigStore
	RunLogStore
	StatsStore
	Close() error
}

type JobFilter struct {
	Source  string
	Company string
	Sort    string // created | posted | company | title
	Order   string // asc | desc
	Limit   int
}

type RunLogFilter struct {
	Company string
	Source  string
	Since   time.Time
	Limit   int
	Skip    int
}

const DefaultLogLimit = 50

type CountBy struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalJobs      int       `json:"total_jobs"`
	JobsAddedSince int       `json:"jobs_added_since"`
	JobsBySource   []CountBy `json:"jobs_by_source"`
	TopCompanies   []CountBy `json:"top_companies"`
	TotalRuns      int       `json:"total_runs"`
	CompletedRuns  int       `json:"completed_runs"`
	FailedRuns     int       `json:"failed_runs"`
	JobsFound      int       `json:"jobs_found"`
	ActiveScrapers int       `json:"active_scrapers"`
}

// Normalized returns f with the sort key whitelisted and defaults applied.
func (f JobFilter) Normalized() JobFilter {
	switch f.Sort {
	case "created", "posted", "company", "title":
	default:
		f.Sort = "created"
	}
	if f.Order != "asc" {
		f.Order = "desc"
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	return f
}

func (f RunLogFilter) Normalized() RunLogFilter {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = DefaultLogLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return f
}

// SortColumn maps the whitelisted sort key onto a column name.
func (f JobFilter) SortColumn() string {
	switch f.Sort {
	case "posted":
		return "posted_date"
	case "company":
		return "company"
	case "title":
		return "title"
	default:
		return "created_at"
	}
}
