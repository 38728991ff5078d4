package admin

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/tasks"
)

type StatsReport struct {
	PeriodDays       int             `json:"period_days"`
	TotalJobs        int             `json:"total_jobs"`
	JobsAddedPeriod  int             `json:"jobs_added_period"`
	TotalJobsScraped int             `json:"total_jobs_scraped"`
	TotalRuns        int             `json:"total_runs"`
	CompletedRuns    int             `json:"completed_runs"`
	FailedRuns       int             `json:"failed_runs"`
	ActiveScrapers   int             `json:"active_scrapers"`
	JobsBySource     []store.CountBy `json:"jobs_by_source"`
	JobsByCompany    []store.CountBy `json:"jobs_by_company"`
	Start            time.Time       `json:"period_start"`
	End              time.Time       `json:"period_end"`
}

func (s *Service) Stats(ctx context.Context, days int) (StatsReport, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)

	st, err := s.store.Stats(ctx, start)
	if err != nil {
		return StatsReport{}, fmt.Errorf("stats: %w", err)
	}
	return StatsReport{
		PeriodDays:       days,
		TotalJobs:        st.TotalJobs,
		JobsAddedPeriod:  st.JobsAddedSince,
		TotalJobsScraped: st.JobsFound,
		TotalRuns:        st.TotalRuns,
		CompletedRuns:    st.CompletedRuns,
		FailedRuns:       st.FailedRuns,
		ActiveScrapers:   st.ActiveScrapers,
		JobsBySource:     st.JobsBySource,
		JobsByCompany:    st.TopCompanies,
		Start:            start,
		End:              end,
	}, nil
}

type ScraperScore struct {
	Company   string `json:"company"`
	Source    string `json:"source"`
	JobsFound int    `json:"jobs_found"`
	JobsAdded int    `json:"jobs_added"`
}

type FailedScraper struct {
	Company   string           `json:"company"`
	Source    string           `json:"source"`
	ErrorKind domain.ErrorKind `json:"error_kind"`
	Error     string           `json:"error"`
}

type DailyReport struct {
	Date                  string          `json:"date"`
	TotalJobsScraped      int             `json:"total_jobs_scraped"`
	CompaniesScraped      int             `json:"companies_scraped"`
	SuccessRate           float64         `json:"success_rate"`
	Errors                int             `json:"errors"`
	TopPerformingScrapers []ScraperScore  `json:"top_performing_scrapers"`
	FailedScrapers        []FailedScraper `json:"failed_scrapers"`
}

const reportPageSize = 500

// DailyReport summarizes per-company run rows from the last 24 hours.
func (s *Service) DailyReport(ctx context.Context) (DailyReport, error) {
	end := s.now().UTC()
	rep := DailyReport{
		Date:                  end.Format("2006-01-02"),
		TopPerformingScrapers: []ScraperScore{},
		FailedScrapers:        []FailedScraper{},
	}

	var logs []domain.ScrapingRunLog
	for skip := 0; ; skip += reportPageSize {
		page, err := s.store.ListRunLogs(ctx, store.RunLogFilter{Since: end.Add(-24 * time.Hour), Limit: reportPageSize, Skip: skip})
		if err != nil {
			return DailyReport{}, fmt.Errorf("daily report: %w", err)
		}
		logs = append(logs, page...)
		if len(page) < reportPageSize {
			break
		}
	}

	companies := map[string]bool{}
	var finished, ok int
	for _, l := range logs {
		if l.CompanyName == "" || !l.Status.Terminal() {
			continue
		}
		finished++
		companies[l.CompanyName] = true
		rep.TotalJobsScraped += l.JobsFound
		if l.Status == domain.RunCompleted {
			ok++
			rep.TopPerformingScrapers = append(rep.TopPerformingScrapers, ScraperScore{
				Company: l.CompanyName, Source: l.Source, JobsFound: l.JobsFound, JobsAdded: l.JobsAdded,
			})
			continue
		}
		rep.Errors++
		rep.FailedScrapers = append(rep.FailedScrapers, FailedScraper{
			Company: l.CompanyName, Source: l.Source, ErrorKind: l.ErrorKind, Error: l.ErrorMessage,
		})
	}
	rep.CompaniesScraped = len(companies)
	if finished > 0 {
		rep.SuccessRate = float64(ok) / float64(finished) * 100
	}
	sort.SliceStable(rep.TopPerformingScrapers, func(i, j int) bool {
		return rep.TopPerformingScrapers[i].JobsFound > rep.TopPerformingScrapers[j].JobsFound
	})
	if len(rep.TopPerformingScrapers) > 5 {
		rep.TopPerformingScrapers = rep.TopPerformingScrapers[:5]
	}

	log.Printf("[admin] daily report date=%s companies=%d scraped=%d success=%.1f%% errors=%d",
		rep.Date, rep.CompaniesScraped, rep.TotalJobsScraped, rep.SuccessRate, rep.Errors)
	return rep, nil
}

type CleanupResult struct {
	JobsDeleted int64     `json:"jobs_deleted"`
	LogsDeleted int64     `json:"logs_deleted"`
	JobCutoff   time.Time `json:"job_cutoff"`
	LogCutoff   time.Time `json:"log_cutoff"`
}

// Cleanup is the retention job; the scrape path never deletes.
func (s *Service) Cleanup(ctx context.Context, jobDays, logDays int) (CleanupResult, error) {
	if jobDays <= 0 {
		jobDays = DefaultRetentionDays
	}
	if logDays <= 0 {
		logDays = DefaultRetentionDays
	}
	now := s.now().UTC()
	res := CleanupResult{
		JobCutoff: now.AddDate(0, 0, -jobDays),
		LogCutoff: now.AddDate(0, 0, -logDays),
	}

	var err error
	if res.JobsDeleted, err = s.store.DeleteJobsOlderThan(ctx, res.JobCutoff); err != nil {
		return res, err
	}
	if res.LogsDeleted, err = s.store.DeleteRunLogsOlderThan(ctx, res.LogCutoff); err != nil {
		return res, err
	}
	log.Printf("[admin] cleanup jobs_deleted=%d logs_deleted=%d", res.JobsDeleted, res.LogsDeleted)
	return res, nil
}

// Schedule holds cron specs for the recurring jobs; blank specs are skipped.
type Schedule struct {
	ScrapeAll   string
	DailyReport string
	Cleanup     string
	JobDays     int
	LogDays     int
}

// ScheduledJobs builds the recurring jobs that share the manual trigger path.
func (s *Service) ScheduledJobs(sc Schedule) []tasks.Job {
	var jobs []tasks.Job
	if sc.ScrapeAll != "" {
		jobs = append(jobs, tasks.Job{Name: "scrape_all", Spec: sc.ScrapeAll, Work: func(ctx context.Context) (any, error) {
			return s.orch.RunAll(ctx)
		}})
	}
	if sc.DailyReport != "" {
		jobs = append(jobs, tasks.Job{Name: "daily_report", Spec: sc.DailyReport, Work: func(ctx context.Context) (any, error) {
			return s.DailyReport(ctx)
		}})
	}
	if sc.Cleanup != "" {
		jobs = append(jobs, tasks.Job{Name: "cleanup", Spec: sc.Cleanup, Work: func(ctx context.Context) (any, error) {
			return s.Cleanup(ctx, sc.JobDays, sc.LogDays)
		}})
	}
	return jobs
}
