package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobingest-engine/internal/domain"
)

const configColumns = `id, company_name, scraper_type, config, is_active, last_scraped_at, created_at, updated_at`

func scanConfig(r rowScanner) (domain.CompanyScraperConfig, error) {
	var (
		c                    domain.CompanyScraperConfig
		st, doc              string
		active               int
		lastScraped          sql.NullString
		createdAt, updatedAt string
	)
	if err := r.Scan(&c.ID, &c.CompanyName, &st, &doc, &active, &lastScraped, &createdAt, &updatedAt); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	c.ScraperType = domain.ScraperType(st)
	c.IsActive = active != 0
	if err := json.Unmarshal([]byte(doc), &c.Config); err != nil {
		return domain.CompanyScraperConfig{}, fmt.Errorf("decode config for %s: %w", c.CompanyName, err)
	}

	var err error
	if c.LastScrapedAt, err = parseTimePtr(lastScraped); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	return c, nil
}

func (d *DB) queryConfigs(ctx context.Context, query string, args ...any) ([]domain.CompanyScraperConfig, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CompanyScraperConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) GetActiveConfigs(ctx context.Context, company string) ([]domain.CompanyScraperConfig, error) {
	out, err := d.queryConfigs(ctx, `SELECT `+configColumns+`
FROM company_scraper_configs
WHERE is_active = 1 AND (? = '' OR lower(company_name) = lower(?))
ORDER BY company_name, scraper_type;`, company, company)
	if err != nil {
		return nil, fmt.Errorf("get active configs: %w", err)
	}
	return out, nil
}

func (d *DB) ListConfigs(ctx context.Context, activeOnly bool) ([]domain.CompanyScraperConfig, error) {
	out, err := d.queryConfigs(ctx, `SELECT `+configColumns+`
FROM company_scraper_configs
WHERE (? = 0 OR is_active = 1)
ORDER BY company_name, scraper_type;`, boolInt(activeOnly))
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return out, nil
}

func marshalConfigDoc(c domain.CompanyScraperConfig) (string, error) {
	doc := c.Config
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode config for %s: %w", c.CompanyName, err)
	}
	return string(b), nil
}

func (d *DB) getConfig(ctx context.Context, company string, t domain.ScraperType) (domain.CompanyScraperConfig, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+configColumns+`
FROM company_scraper_configs
WHERE company_name = ? AND scraper_type = ?;`, company, string(t))
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompanyScraperConfig{}, ErrNotFound
	}
	return c, err
}

func (d *DB) CreateConfig(ctx context.Context, c domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error) {
	doc, err := marshalConfigDoc(c)
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	now := fmtTime(time.Now())
	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO company_scraper_configs (company_name, scraper_type, config, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		c.CompanyName, string(c.ScraperType), doc, boolInt(c.IsActive), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.CompanyScraperConfig{}, ErrDuplicateKey
		}
		return domain.CompanyScraperConfig{}, fmt.Errorf("create config: %w", err)
	}
	return d.getConfig(ctx, c.CompanyName, c.ScraperType)
}

func (d *DB) UpsertConfig(ctx context.Context, c domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error) {
	doc, err := marshalConfigDoc(c)
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	now := fmtTime(time.Now())
	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO company_scraper_configs (company_name, scraper_type, config, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (company_name, scraper_type) DO UPDATE SET
  config = excluded.config,
  is_active = excluded.is_active,
  updated_at = excluded.updated_at;`,
		c.CompanyName, string(c.ScraperType), doc, boolInt(c.IsActive), now, now)
	if err != nil {
		return domain.CompanyScraperConfig{}, fmt.Errorf("upsert config: %w", err)
	}
	return d.getConfig(ctx, c.CompanyName, c.ScraperType)
}

func (d *DB) UpdateLastScrapedAt(ctx context.Context, company string, t domain.ScraperType, at time.Time) error {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE company_scraper_configs
SET last_scraped_at = ?
WHERE company_name = ? AND scraper_type = ?;`, fmtTime(at), company, string(t))
	if err != nil {
		return fmt.Errorf("update last_scraped_at: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
