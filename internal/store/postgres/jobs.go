package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

const jobColumns = `id, title, company, location, description, requirements, salary_range,
  job_type, remote_type, external_url, posted_date, source, source_url, source_job_id,
  created_at, updated_at`

func scanJob(row pgx.Row) (domain.Job, error) {
	var (
		j                                domain.Job
		jobType, remoteType, sourceJobID *string
	)
	if err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Requirements, &j.SalaryRange,
		&jobType, &remoteType, &j.ExternalURL, &j.PostedDate, &j.Source, &j.SourceURL, &sourceJobID,
		&j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return domain.Job{}, err
	}
	if jobType != nil {
		j.JobType = domain.JobType(*jobType)
	}
	if remoteType != nil {
		j.RemoteType = domain.RemoteType(*remoteType)
	}
	if sourceJobID != nil {
		j.SourceJobID = *sourceJobID
	}
	j.PostedDate = utcPtr(j.PostedDate)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return j, nil
}

func (d *DB) FindJob(ctx context.Context, source, sourceJobID string) (domain.Job, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+jobColumns+`
FROM jobs
WHERE source = $1 AND source_job_id = $2`, source, sourceJobID)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to find job: %w", err)
	}
	return j, nil
}

func (d *DB) InsertJob(ctx context.Context, rec domain.JobRecord) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx, `
INSERT INTO jobs (title, company, location, description, requirements, salary_range,
  job_type, remote_type, external_url, posted_date, source, source_url, source_job_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`,
		rec.Title, rec.Company, rec.Location, rec.Description, rec.Requirements, rec.SalaryRange,
		nullIfEmpty(string(rec.JobType)), nullIfEmpty(string(rec.RemoteType)), rec.ExternalURL,
		utcPtr(rec.PostedDate), rec.Source, rec.SourceURL, nullIfEmpty(strings.TrimSpace(rec.SourceJobID)),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateKey
		}
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}
	return id, nil
}

func (d *DB) UpdateJob(ctx context.Context, id int64, rec domain.JobRecord) error {
	tag, err := d.pool.Exec(ctx, `
UPDATE jobs SET
  title = $1, company = $2, location = $3, description = $4, requirements = $5, salary_range = $6,
  job_type = $7, remote_type = $8, external_url = $9, posted_date = $10, source_url = $11,
  updated_at = now()
WHERE id = $12`,
		rec.Title, rec.Company, rec.Location, rec.Description, rec.Requirements, rec.SalaryRange,
		nullIfEmpty(string(rec.JobType)), nullIfEmpty(string(rec.RemoteType)), rec.ExternalURL,
		utcPtr(rec.PostedDate), rec.SourceURL, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) CountJobs(ctx context.Context) (int, error) {
	var n int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func (d *DB) ListJobs(ctx context.Context, f store.JobFilter) ([]domain.Job, error) {
	f = f.Normalized()

	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if f.Company != "" {
		args = append(args, f.Company)
		where = append(where, fmt.Sprintf("lower(company) = lower($%d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)

	query := fmt.Sprintf(`SELECT %s
FROM jobs
%s
ORDER BY %s %s NULLS LAST, id %s
LIMIT $%d`, jobColumns, clause, f.SortColumn(), f.Order, f.Order, len(args))

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (d *DB) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM jobs WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
