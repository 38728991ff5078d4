package orchestrator

import (
	"fmt"
	"time"

	"jobingest-engine/internal/domain"
)

// Summary aggregates one RunAll or RunCompany invocation.
type Summary struct {
	Attempted    int `json:"attempted"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	JobsFound    int `json:"jobs_found"`
	JobsAdded    int `json:"jobs_added"`
	JobsUpdated  int `json:"jobs_updated"`
	JobsRejected int `json:"jobs_rejected"`

	Errors    []string                `json:"errors"`
	Companies []domain.ScrapingRunLog `json:"companies"`

	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// SuccessRate is a percentage; 0 when nothing was attempted.
func (s Summary) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempted) * 100
}

func (s Summary) Counters() domain.RunCounters {
	return domain.RunCounters{
		JobsFound:    s.JobsFound,
		JobsAdded:    s.JobsAdded,
		JobsUpdated:  s.JobsUpdated,
		JobsRejected: s.JobsRejected,
	}
}

func (s *Summary) add(cfg domain.CompanyScraperConfig, l domain.ScrapingRunLog) {
	s.Attempted++
	s.JobsFound += l.JobsFound
	s.JobsAdded += l.JobsAdded
	s.JobsUpdated += l.JobsUpdated
	s.JobsRejected += l.JobsRejected
	if l.Status == domain.RunCompleted {
		s.Succeeded++
	} else {
		s.Failed++
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", cfg, l.ErrorMessage))
	}
	s.Companies = append(s.Companies, l)
}

func (s *Summary) finish(at time.Time) {
	s.FinishedAt = at
	s.DurationSeconds = at.Sub(s.StartedAt).Seconds()
}
