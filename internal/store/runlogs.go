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

const runLogColumns = `id, source, company_name, status, jobs_found, jobs_added, jobs_updated, jobs_rejected,
  error_kind, error_message, started_at, completed_at`

func scanRunLog(r rowScanner) (domain.ScrapingRunLog, error) {
	var (
		l                        domain.ScrapingRunLog
		company, kind, msg, done sql.NullString
		status, startedAt        string
	)
	if err := r.Scan(&l.ID, &l.Source, &company, &status, &l.JobsFound, &l.JobsAdded, &l.JobsUpdated,
		&l.JobsRejected, &kind, &msg, &startedAt, &done); err != nil {
		return domain.ScrapingRunLog{}, err
	}
	l.CompanyName = company.String
	l.Status = domain.RunStatus(status)
	l.ErrorKind = domain.ErrorKind(kind.String)
	l.ErrorMessage = msg.String

	var err error
	if l.StartedAt, err = parseTime(startedAt); err != nil {
		return domain.ScrapingRunLog{}, err
	}
	if l.CompletedAt, err = parseTimePtr(done); err != nil {
		return domain.ScrapingRunLog{}, err
	}
	return l, nil
}

func (d *DB) StartRunLog(ctx context.Context, e domain.ScrapingRunLog) (int64, error) {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO scraping_logs (source, company_name, status, started_at)
VALUES (?, ?, ?, ?);`,
		e.Source, nullIfEmpty(e.CompanyName), string(domain.RunStarted), fmtTime(e.StartedAt))
	if err != nil {
		return 0, fmt.Errorf("start run log: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) FinishRunLog(ctx context.Context, id int64, fin domain.RunFinish) error {
	if !fin.Status.Terminal() {
		return fmt.Errorf("finish run log %d: status %q is not terminal", id, fin.Status)
	}
	if fin.CompletedAt.IsZero() {
		fin.CompletedAt = time.Now()
	}
	var kind, msg any
	if fin.Status == domain.RunFailed {
		kind = nullIfEmpty(string(fin.ErrorKind))
		msg = nullIfEmpty(fin.ErrorMessage)
	}

	res, err := d.Pool.ExecContext(ctx, `
UPDATE scraping_logs SET
  status = ?, jobs_found = ?, jobs_added = ?, jobs_updated = ?, jobs_rejected = ?,
  error_kind = ?, error_message = ?, completed_at = ?
WHERE id = ? AND status = 'started';`,
		string(fin.Status), fin.Counters.JobsFound, fin.Counters.JobsAdded, fin.Counters.JobsUpdated,
		fin.Counters.JobsRejected, kind, msg, fmtTime(fin.CompletedAt), id)
	if err != nil {
		return fmt.Errorf("finish run log %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := d.GetRunLog(ctx, id); err != nil {
		return err
	}
	return ErrRunLogFinalized
}

func (d *DB) GetRunLog(ctx context.Context, id int64) (domain.ScrapingRunLog, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+runLogColumns+` FROM scraping_logs WHERE id = ?;`, id)
	l, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScrapingRunLog{}, ErrNotFound
	}
	if err != nil {
		return domain.ScrapingRunLog{}, fmt.Errorf("get run log: %w", err)
	}
	return l, nil
}

func (d *DB) ListRunLogs(ctx context.Context, f RunLogFilter) ([]domain.ScrapingRunLog, error) {
	f = f.Normalized()

	var (
		where []string
		args  []any
	)
	if f.Company != "" {
		where = append(where, "lower(company_name) = lower(?)")
		args = append(args, f.Company)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, fmtTime(f.Since))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Skip)

	rows, err := d.Pool.QueryContext(ctx, `SELECT `+runLogColumns+`
FROM scraping_logs
`+clause+`
ORDER BY started_at DESC, id DESC
LIMIT ? OFFSET ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ScrapingRunLog
	for rows.Next() {
		l, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("list run logs: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *DB) DeleteRunLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM scraping_logs WHERE started_at < ?;`, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup old run logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
