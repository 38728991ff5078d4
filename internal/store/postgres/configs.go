package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

const configColumns = `id, company_name, scraper_type, config, is_active, last_scraped_at, created_at, updated_at`

func scanConfig(row pgx.Row) (domain.CompanyScraperConfig, error) {
	var (
		c   domain.CompanyScraperConfig
		st  string
		doc []byte
	)
	if err := row.Scan(&c.ID, &c.CompanyName, &st, &doc, &c.IsActive, &c.LastScrapedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	c.ScraperType = domain.ScraperType(st)
	if err := json.Unmarshal(doc, &c.Config); err != nil {
		return domain.CompanyScraperConfig{}, fmt.Errorf("failed to decode config for %s: %w", c.CompanyName, err)
	}
	c.LastScrapedAt = utcPtr(c.LastScrapedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (d *DB) queryConfigs(ctx context.Context, query string, args ...any) ([]domain.CompanyScraperConfig, error) {
	rows, err := d.pool.Query(ctx, query, args...)
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
WHERE is_active AND ($1 = '' OR lower(company_name) = lower($1))
ORDER BY company_name, scraper_type`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to get active configs: %w", err)
	}
	return out, nil
}

func (d *DB) ListConfigs(ctx context.Context, activeOnly bool) ([]domain.CompanyScraperConfig, error) {
	out, err := d.queryConfigs(ctx, `SELECT `+configColumns+`
FROM company_scraper_configs
WHERE (NOT $1 OR is_active)
ORDER BY company_name, scraper_type`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	return out, nil
}

func configDoc(c domain.CompanyScraperConfig) ([]byte, error) {
	doc := c.Config
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config for %s: %w", c.CompanyName, err)
	}
	return b, nil
}

func (d *DB) CreateConfig(ctx context.Context, c domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error) {
	doc, err := configDoc(c)
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	row := d.pool.QueryRow(ctx, `
INSERT INTO company_scraper_configs (company_name, scraper_type, config, is_active)
VALUES ($1, $2, $3, $4)
RETURNING `+configColumns,
		c.CompanyName, string(c.ScraperType), doc, c.IsActive)
	out, err := scanConfig(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.CompanyScraperConfig{}, store.ErrDuplicateKey
		}
		return domain.CompanyScraperConfig{}, fmt.Errorf("failed to create config: %w", err)
	}
	return out, nil
}

func (d *DB) UpsertConfig(ctx context.Context, c domain.CompanyScraperConfig) (domain.CompanyScraperConfig, error) {
	doc, err := configDoc(c)
	if err != nil {
		return domain.CompanyScraperConfig{}, err
	}
	row := d.pool.QueryRow(ctx, `
INSERT INTO company_scraper_configs (company_name, scraper_type, config, is_active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (company_name, scraper_type) DO UPDATE SET
  config = EXCLUDED.config,
  is_active = EXCLUDED.is_active,
  updated_at = now()
RETURNING `+configColumns,
		c.CompanyName, string(c.ScraperType), doc, c.IsActive)
	out, err := scanConfig(row)
	if err != nil {
		return domain.CompanyScraperConfig{}, fmt.Errorf("failed to upsert config: %w", err)
	}
	return out, nil
}

func (d *DB) UpdateLastScrapedAt(ctx context.Context, company string, t domain.ScraperType, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
UPDATE company_scraper_configs
SET last_scraped_at = $1
WHERE company_name = $2 AND scraper_type = $3`, at.UTC(), company, string(t))
	if err != nil {
		return fmt.Errorf("failed to update last_scraped_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

