package store

import (
	"context"
	"fmt"
)

const schemaVersion = 1

var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  requirements TEXT NOT NULL DEFAULT '',
  salary_range TEXT NOT NULL DEFAULT '',
  job_type TEXT CHECK (job_type IN ('full-time', 'part-time', 'contract', 'internship')),
  remote_type TEXT CHECK (remote_type IN ('onsite', 'remote', 'hybrid')),
  external_url TEXT NOT NULL,
  posted_date TEXT,
  source TEXT NOT NULL,
  source_url TEXT NOT NULL DEFAULT '',
  source_job_id TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_source_job
ON jobs(source, source_job_id)
WHERE source_job_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);`,
	`CREATE TABLE IF NOT EXISTS company_scraper_configs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_name TEXT NOT NULL,
  scraper_type TEXT NOT NULL CHECK (scraper_type IN ('greenhouse', 'lever', 'workday', 'icims', 'jobvite', 'custom')),
  config TEXT NOT NULL DEFAULT '{}',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_scraped_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE (company_name, scraper_type)
);`,
	`CREATE TABLE IF NOT EXISTS scraping_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  company_name TEXT,
  status TEXT NOT NULL CHECK (status IN ('started', 'completed', 'failed')),
  jobs_found INTEGER NOT NULL DEFAULT 0,
  jobs_added INTEGER NOT NULL DEFAULT 0,
  jobs_updated INTEGER NOT NULL DEFAULT 0,
  jobs_rejected INTEGER NOT NULL DEFAULT 0,
  error_kind TEXT,
  error_message TEXT,
  started_at TEXT NOT NULL,
  completed_at TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_scraping_logs_started_at ON scraping_logs(started_at);`,
	`CREATE INDEX IF NOT EXISTS idx_scraping_logs_company ON scraping_logs(company_name);`,
}

// Migrate brings the schema up to schemaVersion in one transaction, tracked by
// PRAGMA user_version.
func (d *DB) Migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	for _, stmt := range schemaV1 {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion reports the applied schema version.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := d.Pool.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v)
	return v, err
}
