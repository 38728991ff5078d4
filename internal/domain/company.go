package domain

import (
	"fmt"
	"strings"
	"time"
)

type ScraperType string

const (
	ScraperGreenhouse ScraperType = "greenhouse"
	ScraperLever      ScraperType = "lever"
	ScraperWorkday    ScraperType = "workday"
	ScraperICIMS      ScraperType = "icims"
	ScraperJobvite    ScraperType = "jobvite"
	ScraperCustom     ScraperType = "custom"
)

var scraperTypes = []ScraperType{
	ScraperGreenhouse, ScraperLever, ScraperWorkday, ScraperICIMS, ScraperJobvite, ScraperCustom,
}

func ScraperTypes() []ScraperType {
	return append([]ScraperType(nil), scraperTypes...)
}

func ParseScraperType(s string) (ScraperType, error) {
	t := ScraperType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range scraperTypes {
		if t == known {
			return t, nil
		}
	}
	return "", Errorf(KindConfigInvalid, "parse scraper type", "unknown scraper_type %q", s)
}

// CompanyScraperConfig is one company's adapter configuration. Config is an opaque
// document; only the adapter for ScraperType interprets it.
type CompanyScraperConfig struct {
	ID            int64          `json:"id" yaml:"-"`
	CompanyName   string         `json:"company_name" yaml:"company_name"`
	ScraperType   ScraperType    `json:"scraper_type" yaml:"scraper_type"`
	Config        map[string]any `json:"config" yaml:"config"`
	IsActive      bool           `json:"is_active" yaml:"is_active"`
	LastScrapedAt *time.Time     `json:"last_scraped_at,omitempty" yaml:"-"`
	CreatedAt     time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time      `json:"updated_at" yaml:"-"`
}

func (c CompanyScraperConfig) String() string {
	return fmt.Sprintf("%s (%s)", c.CompanyName, c.ScraperType)
}
