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

const runLogColumns = `id, source, company_name, status, jobs_found, jobs_added, jobs_updated, jobs_rejected,
  error_kind, error_message, started_at, completed_at`

func scanRunLog(row pgx.Row) (domain.ScrapingRunLog, error) {
	var (
		l                  domain.ScrapingRunLog
		company, kind, msg *string
		status             string
	)
	if err := row.Scan(&l.ID, &l.Source, &company, &status, &l.JobsFound, &l.JobsAdded, &l.JobsUpdated,
		&l.JobsRejected, &kind, &msg, &l.StartedAt, &l.CompletedAt); err != nil {
		return domain.ScrapingRunLog{}, err
	}
	l.Status = domain.RunStatus(status)
	if company != nil {
		l.CompanyName = *company
	}
	if kind != nil {
		l.ErrorKind = domain.ErrorKind(*kind)
	}
	if msg != nil {
		l.ErrorMessage = *msg
	}
	l.StartedAt = l.StartedAt.UTC()
	l.CompletedAt = utcPtr(l.CompletedAt)
	return l, nil
}

func (d *DB) StartRunLog(ctx context.Context, e domain.ScrapingRunLog) (int64, error) {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	var id int64
	err := d.pool.QueryRow(ctx, `
INSERT INTO scraping_logs (source, company_name, status, started_at)
VALUES ($1, $2, $3, $4)
RETURNING id`, e.Source, nullIfEmpty(e.CompanyName), string(domain.RunStarted), e.StartedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start run log: %w", err)
	}
	return id, nil
}

func (d *DB) FinishRunLog(ctx context.Context, id int64, fin domain.RunFinish) error {
	if !fin.Status.Terminal() {
		return fmt.Errorf("finish run log %d: status %q is not terminal", id, fin.Status)
	}
	if fin.CompletedAt.IsZero() {
		fin.CompletedAt = time.Now()
	}
	var kind, msg *string
	if fin.Status == domain.RunFailed {
		kind = nullIfEmpty(string(fin.ErrorKind))
		msg = nullIfEmpty(fin.ErrorMessage)
	}

	tag, err := d.pool.Exec(ctx, `
UPDATE scraping_logs SET
  status = $1, jobs_found = $2, jobs_added = $3, jobs_updated = $4, jobs_rejected = $5,
  error_kind = $6, error_message = $7, completed_at = $8
WHERE id = $9 AND status = 'started'`,
		string(fin.Status), fin.Counters.JobsFound, fin.Counters.JobsAdded, fin.Counters.JobsUpdated,
		fin.Counters.JobsRejected, kind, msg, fin.CompletedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run log %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := d.GetRunLog(ctx, id); err != nil {
		return err
	}
	return store.ErrRunLogFinalized
}

func (d *DB) GetRunLog(ctx context.Context, id int64) (domain.ScrapingRunLog, error) {
	l, err := scanRunLog(d.pool.QueryRow(ctx, `SELECT `+runLogColumns+` FROM scraping_logs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScrapingRunLog{}, store.ErrNotFound
	}
	if err != nil {
		return domain.ScrapingRunLog{}, fmt.Errorf("failed to get run log: %w", err)
	}
	return l, nil
}

func (d *DB) ListRunLogs(ctx context.Context, f store.RunLogFilter) ([]domain.ScrapingRunLog, error) {
	f = f.Normalized()

	var (
		where []string
		args  []any
	)
	if f.Company != "" {
		args = append(args, f.Company)
		where = append(where, fmt.Sprintf("lower(company_name) = lower($%d)", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		where = append(where, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Skip)

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`SELECT %s
FROM scraping_logs
%s
ORDER BY started_at DESC, id DESC
LIMIT $%d OFFSET $%d`, runLogColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ScrapingRunLog
	for rows.Next() {
		l, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *DB) DeleteRunLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM scraping_logs WHERE started_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old run logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
