package store

import (
	"context"
	"fmt"
	"time"
)

func (d *DB) countBy(ctx context.Context, query string, args ...any) ([]CountBy, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CountBy{}
	for rows.Next() {
		var c CountBy
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats covers all jobs plus runs and additions since the given time.
func (d *DB) Stats(ctx context.Context, since time.Time) (Stats, error) {
	var s Stats
	ts := fmtTime(since)

	if err := d.Pool.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM jobs),
  (SELECT COUNT(*) FROM jobs WHERE created_at >= ?),
  (SELECT COUNT(*) FROM company_scraper_configs WHERE is_active = 1);`, ts).
		Scan(&s.TotalJobs, &s.JobsAddedSince, &s.ActiveScrapers); err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}

	// Aggregate rows repeat the per-company counters, so only company rows are summed.
	if err := d.Pool.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(jobs_found), 0)
FROM scraping_logs
WHERE started_at >= ? AND company_name IS NOT NULL;`, ts).
		Scan(&s.TotalRuns, &s.CompletedRuns, &s.FailedRuns, &s.JobsFound); err != nil {
		return Stats{}, fmt.Errorf("stats runs: %w", err)
	}

	var err error
	if s.JobsBySource, err = d.countBy(ctx, `
SELECT source, COUNT(*) FROM jobs GROUP BY source ORDER BY COUNT(*) DESC, source;`); err != nil {
		return Stats{}, fmt.Errorf("stats by source: %w", err)
	}
	if s.TopCompanies, err = d.countBy(ctx, `
SELECT company, COUNT(*) FROM jobs GROUP BY company ORDER BY COUNT(*) DESC, company LIMIT 10;`); err != nil {
		return Stats{}, fmt.Errorf("stats by company: %w", err)
	}
	return s, nil
}
