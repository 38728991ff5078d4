package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobingest-engine/internal/store"
)

func (d *DB) countBy(ctx context.Context, query string) ([]store.CountBy, error) {
	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.CountBy, error) {
		var c store.CountBy
		err := row.Scan(&c.Key, &c.Count)
		return c, err
	})
}

func (d *DB) Stats(ctx context.Context, since time.Time) (store.Stats, error) {
	var s store.Stats
	since = since.UTC()

	if err := d.pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM jobs),
  (SELECT COUNT(*) FROM jobs WHERE created_at >= $1),
  (SELECT COUNT(*) FROM company_scraper_configs WHERE is_active)`, since).
		Scan(&s.TotalJobs, &s.JobsAddedSince, &s.ActiveScrapers); err != nil {
		return store.Stats{}, fmt.Errorf("failed to read job totals: %w", err)
	}

	if err := d.pool.QueryRow(ctx, `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status = 'completed'),
  COUNT(*) FILTER (WHERE status = 'failed'),
  COALESCE(SUM(jobs_found), 0)
FROM scraping_logs
WHERE started_at >= $1 AND company_name IS NOT NULL`, since).
		Scan(&s.TotalRuns, &s.CompletedRuns, &s.FailedRuns, &s.JobsFound); err != nil {
		return store.Stats{}, fmt.Errorf("failed to read run totals: %w", err)
	}

	var err error
	if s.JobsBySource, err = d.countBy(ctx, `
SELECT source, COUNT(*) FROM jobs GROUP BY source ORDER BY COUNT(*) DESC, source`); err != nil {
		return store.Stats{}, fmt.Errorf("failed to count jobs by source: %w", err)
	}
	if s.TopCompanies, err = d.countBy(ctx, `
SELECT company, COUNT(*) FROM jobs GROUP BY company ORDER BY COUNT(*) DESC, company LIMIT 10`); err != nil {
		return store.Stats{}, fmt.Errorf("failed to count jobs by company: %w", err)
	}
	return s, nil
}
