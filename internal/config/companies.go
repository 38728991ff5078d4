package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jobingest-engine/internal/domain"
)

type CompaniesFile struct {
	Companies []CompanyEntry `yaml:"companies"`
}

// CompanyEntry is one seed row; is_active defaults to true when omitted.
type CompanyEntry struct {
	CompanyName string         `yaml:"company_name"`
	ScraperType string         `yaml:"scraper_type"`
	Config      map[string]any `yaml:"config"`
	IsActive    *bool          `yaml:"is_active"`
}

// DefaultCompanies seeds a fresh install when no companies file exists.
func DefaultCompanies() []domain.CompanyScraperConfig {
	gh := func(name, token string) domain.CompanyScraperConfig {
		return domain.CompanyScraperConfig{
			CompanyName: name,
			ScraperType: domain.ScraperGreenhouse,
			Config:      map[string]any{"company_token": token},
			IsActive:    true,
		}
	}
	lever := func(name, handle string) domain.CompanyScraperConfig {
		return domain.CompanyScraperConfig{
			CompanyName: name,
			ScraperType: domain.ScraperLever,
			Config:      map[string]any{"company_handle": handle},
			IsActive:    true,
		}
	}
	return []domain.CompanyScraperConfig{
		gh("Stripe", "stripe"),
		gh("Airbnb", "airbnb"),
		gh("Coinbase", "coinbase"),
		gh("DoorDash", "doordash"),
		lever("Netflix", "netflix"),
		lever("Figma", "figma"),
	}
}

// LoadCompanies reads a companies seed file. A missing file yields the defaults.
func LoadCompanies(path string) ([]domain.CompanyScraperConfig, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCompanies(), nil
	}
	if err != nil {
		return nil, err
	}

	var cf CompaniesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]domain.CompanyScraperConfig, 0, len(cf.Companies))
	for i, e := range cf.Companies {
		t, err := domain.ParseScraperType(e.ScraperType)
		if err != nil {
			return nil, fmt.Errorf("%s: companies[%d] %q: %w", path, i, e.CompanyName, err)
		}
		active := e.IsActive == nil || *e.IsActive
		out = append(out, domain.CompanyScraperConfig{
			CompanyName: e.CompanyName,
			ScraperType: t,
			Config:      e.Config,
			IsActive:    active,
		})
	}
	return out, nil
}
