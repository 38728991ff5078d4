// Package admin is the operator surface shared by the HTTP API and the CLI.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/orchestrator"
	"jobingest-engine/internal/sourcecfg"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/tasks"
)

const (
	DefaultSampleSize    = 5
	DefaultStatsDays     = 7
	DefaultRetentionDays = 90
)

type Service struct {
	store    store.Store
	orch     *orchestrator.Orchestrator
	resolver orchestrator.Resolver
	runner   tasks.Runner
	now      func() time.Time
}

func New(st store.Store, orch *orchestrator.Orchestrator, resolver orchestrator.Resolver, runner tasks.Runner) *Service {
	return &Service{store: st, orch: orch, resolver: resolver, runner: runner, now: time.Now}
}

// TriggerAll queues a run over every active company.
func (s *Service) TriggerAll(ctx context.Context) (tasks.TaskInfo, error) {
	return s.runner.Submit("scrape_all", func(ctx context.Context) (any, error) {
		return s.orch.RunAll(ctx)
	})
}

// TriggerCompany queues a run for one company; unknown names fail before queueing.
func (s *Service) TriggerCompany(ctx context.Context, name string) (tasks.TaskInfo, error) {
	name = strings.TrimSpace(name)
	cfgs, err := s.store.GetActiveConfigs(ctx, name)
	if err != nil {
		return tasks.TaskInfo{}, fmt.Errorf("trigger %q: %w", name, err)
	}
	if name == "" || len(cfgs) == 0 {
		return tasks.TaskInfo{}, fmt.Errorf("no active scraper config for %q: %w", name, store.ErrNotFound)
	}
	return s.runner.Submit("scrape_company:"+cfgs[0].CompanyName, func(ctx context.Context) (any, error) {
		return s.orch.RunCompany(ctx, name)
	})
}

func (s *Service) TaskStatus(ctx context.Context, id string) (tasks.TaskInfo, error) {
	return s.runner.Status(ctx, id)
}

func (s *Service) CancelTask(id string) error {
	return s.runner.Cancel(id)
}

func (s *Service) LastSummary() (orchestrator.Summary, bool) {
	return s.orch.LastSummary()
}

type TestResult struct {
	Company     string             `json:"company"`
	ScraperType domain.ScraperType `json:"scraper_type"`
	TotalFound  int                `json:"total_found"`
	Rejected    int                `json:"rejected"`
	Sample      []domain.JobRecord `json:"sample"`
}

// TestAdapter runs one company's adapter (active or not) and returns up to
// sample normalized records. Nothing is written.
func (s *Service) TestAdapter(ctx context.Context, name string, sample int) (TestResult, error) {
	if sample <= 0 {
		sample = DefaultSampleSize
	}
	cfg, err := s.findConfig(ctx, name)
	if err != nil {
		return TestResult{}, err
	}

	p, err := s.orch.Preview(ctx, cfg)
	if err != nil {
		return TestResult{}, fmt.Errorf("test %s: %w", cfg, err)
	}
	res := TestResult{
		Company:     cfg.CompanyName,
		ScraperType: cfg.ScraperType,
		TotalFound:  p.Found,
		Rejected:    p.Rejected,
		Sample:      p.Records[:min(sample, len(p.Records))],
	}
	log.Printf("[admin] test company=%q type=%s found=%d rejected=%d", cfg.CompanyName, cfg.ScraperType, p.Found, p.Rejected)
	return res, nil
}

func (s *Service) findConfig(ctx context.Context, name string) (domain.CompanyScraperConfig, error) {
	all, err := s.store.ListConfigs(ctx, false)
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	for _, c := range all {
		if strings.EqualFold(c.CompanyName, strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return domain.CompanyScraperConfig{}, fmt.Errorf("no scraper config for %q: %w", name, store.ErrNotFound)
}

func (s *Service) Logs(ctx context.Context, f store.RunLogFilter) ([]domain.ScrapingRunLog, error) {
	return s.store.ListRunLogs(ctx, f)
}

func (s *Service) Jobs(ctx context.Context, f store.JobFilter) ([]domain.Job, error) {
	return s.store.ListJobs(ctx, f)
}

func (s *Service) Companies(ctx context.Context, activeOnly bool) ([]domain.CompanyScraperConfig, error) {
	return s.store.ListConfigs(ctx, activeOnly)
}

// CreateCompany validates the typed config before storing it, so a bad
// document never reaches a scheduled run.
func (s *Service) CreateCompany(ctx context.Context, cfg domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error) {
	cfg.CompanyName = strings.TrimSpace(cfg.CompanyName)
	if cfg.CompanyName == "" {
		return domain.CompanyScraperConfig{}, domain.Errorf(domain.KindConfigInvalid, "create company", "company_name is required")
	}
	t, err := domain.ParseScraperType(string(cfg.ScraperType))
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	cfg.ScraperType = t
	if err := sourcecfg.Validate(cfg); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	created, err := s.store.CreateConfig(ctx, cfg)
	if err != nil {
		return domain.CompanyScraperConfig{}, fmt.Errorf("create %s: %w", cfg, err)
	}
	log.Printf("[admin] company created name=%q type=%s active=%v", created.CompanyName, created.ScraperType, created.IsActive)
	return created, nil
}

// ImportCompanies upserts seed configs, skipping invalid ones.
func (s *Service) ImportCompanies(ctx context.Context, cfgs []domain.CompanyScraperConfig) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, c := range cfgs {
		if err := sourcecfg.Validate(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
			continue
		}
		if _, err := s.store.UpsertConfig(ctx, c); err != nil {
			return n, fmt.Errorf("import %s: %w", c, err)
		}
		n++
	}
	return n, errors.Join(errs...)
}

type Validation struct {
	CompanyName string             `json:"company_name"`
	ScraperType domain.ScraperType `json:"scraper_type"`
	ConfigID    int64              `json:"config_id"`
	IsValid     bool               `json:"is_valid"`
	LastScraped *time.Time         `json:"last_scraped,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ValidateAll resolves every active config without fetching anything.
func (s *Service) ValidateAll(ctx context.Context) ([]Validation, error) {
	cfgs, err := s.store.GetActiveConfigs(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]Validation, 0, len(cfgs))
	for _, c := range cfgs {
		v := Validation{
			CompanyName: c.CompanyName,
			ScraperType: c.ScraperType,
			ConfigID:    c.ID,
			IsValid:     true,
			LastScraped: c.LastScrapedAt,
		}
		if _, err := s.resolver.Resolve(c); err != nil {
			v.IsValid = false
			v.Error = err.Error()
		}
		out = append(out, v)
	}
	return out, nil
}
