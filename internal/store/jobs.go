package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobingest-engine/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const jobColumns = `id, title, company, location, description, requirements, salary_range,
  job_type, remote_type, external_url, posted_date, source, source_url, source_job_id,
  created_at, updated_at`

func scanJob(r rowScanner) (domain.Job, error) {
	var (
		j                    domain.Job
		jobType, remoteType  sql.NullString
		posted, sourceJobID  sql.NullString
		createdAt, updatedAt string
	)
	if err := r.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Requirements, &j.SalaryRange,
		&jobType, &remoteType, &j.ExternalURL, &posted, &j.Source, &j.SourceURL, &sourceJobID,
		&createdAt, &updatedAt,
	); err != nil {
		return domain.Job{}, err
	}
	j.JobType = domain.JobType(jobType.String)
	j.RemoteType = domain.RemoteType(remoteType.String)
	j.SourceJobID = sourceJobID.String

	var err error
	if j.PostedDate, err = parseTimePtr(posted); err != nil {
		return domain.Job{}, fmt.Errorf("parse posted_date: %w", err)
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Job{}, fmt.Errorf("parse created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Job{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return j, nil
}

func (d *DB) FindJob(ctx context.Context, source, sourceJobID string) (domain.Job, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+`
FROM jobs
WHERE source = ? AND source_job_id = ?
LIMIT 1;`, source, sourceJobID)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("find job: %w", err)
	}
	return j, nil
}

func (d *DB) InsertJob(ctx context.Context, rec domain.JobRecord) (int64, error) {
	now := fmtTime(time.Now())
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO jobs (title, company, location, description, requirements, salary_range,
  job_type, remote_type, external_url, posted_date, source, source_url, source_job_id,
  created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.Title, rec.Company, rec.Location, rec.Description, rec.Requirements, rec.SalaryRange,
		nullIfEmpty(string(rec.JobType)), nullIfEmpty(string(rec.RemoteType)), rec.ExternalURL,
		fmtTimePtr(rec.PostedDate), rec.Source, rec.SourceURL, nullIfEmpty(strings.TrimSpace(rec.SourceJobID)),
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert job: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) UpdateJob(ctx context.Context, id int64, rec domain.JobRecord) error {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE jobs SET
  title = ?, company = ?, location = ?, description = ?, requirements = ?, salary_range = ?,
  job_type = ?, remote_type = ?, external_url = ?, posted_date = ?, source_url = ?,
  updated_at = ?
WHERE id = ?;`,
		rec.Title, rec.Company, rec.Location, rec.Description, rec.Requirements, rec.SalaryRange,
		nullIfEmpty(string(rec.JobType)), nullIfEmpty(string(rec.RemoteType)), rec.ExternalURL,
		fmtTimePtr(rec.PostedDate), rec.SourceURL, fmtTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) CountJobs(ctx context.Context) (int, error) {
	var n int
	if err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

func (d *DB) ListJobs(ctx context.Context, f JobFilter) ([]domain.Job, error) {
	f = f.Normalized()

	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Company != "" {
		where = append(where, "lower(company) = lower(?)")
		args = append(args, f.Company)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	// sort column and order are whitelisted by Normalized
	query := fmt.Sprintf(`SELECT %s
FROM jobs
%s
ORDER BY %s %s, id %s
LIMIT ?;`, jobColumns, clause, f.SortColumn(), f.Order, f.Order)
	args = append(args, f.Limit)

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (d *DB) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?;`, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
