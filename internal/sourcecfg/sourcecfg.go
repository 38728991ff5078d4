// Package sourcecfg decodes and validates the per-company adapter documents
// stored in CompanyScraperConfig.Config.
package sourcecfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jobingest-engine/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

type Greenhouse struct {
	CompanyToken string `json:"company_token" validate:"required"`
}

type Lever struct {
	CompanyHandle string `json:"company_handle" validate:"required"`
	PageSize      int    `json:"page_size" validate:"min=1,max=100"`
	MaxPostings   int    `json:"max_postings" validate:"min=1,max=10000"`
}

type Selectors struct {
	JobItem        string `json:"job_item" validate:"required"`
	JobTitle       string `json:"job_title" validate:"required"`
	JobLocation    string `json:"job_location"`
	JobDescription string `json:"job_description"`
	JobLink        string `json:"job_link"`
	NextPage       string `json:"next_page"`
	LoadMore       string `json:"load_more"`
	SearchResults  string `json:"search_results"`
}

type Workday struct {
	CareersURL string `json:"careers_url" validate:"required,http_url"`
	// WaitTimeout is in seconds.
	WaitTimeout int       `json:"wait_timeout" validate:"min=1,max=120"`
	MaxPages    int       `json:"max_pages" validate:"min=1,max=50"`
	Selectors   Selectors `json:"selectors"`
}

const (
	DefaultLeverPageSize    = 100
	DefaultLeverMaxPostings = 1000
	DefaultWorkdayWait      = 10
	DefaultWorkdayMaxPages  = 10
)

// DefaultWorkdaySelectors are the data-automation-id hooks Workday tenants share.
var DefaultWorkdaySelectors = Selectors{
	JobItem:        `[data-automation-id="jobItem"]`,
	JobTitle:       `[data-automation-id="jobTitle"]`,
	JobLocation:    `[data-automation-id="jobLocation"]`,
	JobDescription: `[data-automation-id="jobDescription"]`,
	JobLink:        `a`,
	NextPage:       `[data-automation-id="nextPage"]`,
	LoadMore:       `[data-automation-id="loadMoreJobs"]`,
	SearchResults:  `[data-automation-id="searchResults"]`,
}

var (
	validate      = validator.New()
	schemaOnce    sync.Once
	schemas       map[domain.ScraperType]*gojsonschema.Schema
	schemaLoadErr error
)

func loadSchemas() {
	schemas = map[domain.ScraperType]*gojsonschema.Schema{}
	for t, src := range map[domain.ScraperType]string{
		domain.ScraperGreenhouse: greenhouseSchema,
		domain.ScraperLever:      leverSchema,
		domain.ScraperWorkday:    workdaySchema,
	} {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			schemaLoadErr = fmt.Errorf("load %s schema: %w", t, err)
			return
		}
		schemas[t] = s
	}
}

// Supported reports whether t has a typed config (and therefore an adapter).
func Supported(t domain.ScraperType) bool {
	switch t {
	case domain.ScraperGreenhouse, domain.ScraperLever, domain.ScraperWorkday:
		return true
	default:
		return false
	}
}

// Validate checks cfg's document against its scraper type without keeping the result.
func Validate(cfg domain.CompanyScraperConfig) error {
	switch cfg.ScraperType {
	case domain.ScraperGreenhouse:
		_, err := DecodeGreenhouse(cfg.Config)
		return err
	case domain.ScraperLever:
		_, err := DecodeLever(cfg.Config)
		return err
	case domain.ScraperWorkday:
		_, err := DecodeWorkday(cfg.Config)
		return err
	default:
		if _, err := domain.ParseScraperType(string(cfg.ScraperType)); err != nil {
			return err
		}
		return domain.Errorf(domain.KindConfigInvalid, "validate config",
			"no adapter registered for scraper_type %q", cfg.ScraperType)
	}
}

func DecodeGreenhouse(doc map[string]any) (Greenhouse, error) {
	var out Greenhouse
	if err := decode(domain.ScraperGreenhouse, doc, &out); err != nil {
		return Greenhouse{}, err
	}
	out.CompanyToken = strings.TrimSpace(out.CompanyToken)
	return out, check(domain.ScraperGreenhouse, &out)
}

func DecodeLever(doc map[string]any) (Lever, error) {
	var out Lever
	if err := decode(domain.ScraperLever, doc, &out); err != nil {
		return Lever{}, err
	}
	out.CompanyHandle = strings.TrimSpace(out.CompanyHandle)
	if out.PageSize == 0 {
		out.PageSize = DefaultLeverPageSize
	}
	if out.MaxPostings == 0 {
		out.MaxPostings = DefaultLeverMaxPostings
	}
	return out, check(domain.ScraperLever, &out)
}

func DecodeWorkday(doc map[string]any) (Workday, error) {
	var out Workday
	if err := decode(domain.ScraperWorkday, doc, &out); err != nil {
		return Workday{}, err
	}
	out.CareersURL = strings.TrimSpace(out.CareersURL)
	if out.WaitTimeout == 0 {
		out.WaitTimeout = DefaultWorkdayWait
	}
	if out.MaxPages == 0 {
		out.MaxPages = DefaultWorkdayMaxPages
	}
	out.Selectors = out.Selectors.withDefaults()
	return out, check(domain.ScraperWorkday, &out)
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultWorkdaySelectors
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.JobItem, d.JobItem)
	fill(&s.JobTitle, d.JobTitle)
	fill(&s.JobLocation, d.JobLocation)
	fill(&s.JobDescription, d.JobDescription)
	fill(&s.JobLink, d.JobLink)
	fill(&s.NextPage, d.NextPage)
	fill(&s.LoadMore, d.LoadMore)
	fill(&s.SearchResults, d.SearchResults)
	return s
}

func decode(t domain.ScraperType, doc map[string]any, out any) error {
	op := fmt.Sprintf("decode %s config", t)
	if doc == nil {
		return domain.Errorf(domain.KindConfigInvalid, op, "config document is missing")
	}

	schemaOnce.Do(loadSchemas)
	if schemaLoadErr != nil {
		return domain.E(domain.KindInternal, op, schemaLoadErr)
	}

	res, err := schemas[t].Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.E(domain.KindConfigInvalid, op, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			msgs = append(msgs, field+": "+desc.Description())
		}
		return domain.Errorf(domain.KindConfigInvalid, op, "%s", strings.Join(msgs, "; "))
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return domain.E(domain.KindConfigInvalid, op, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return domain.E(domain.KindConfigInvalid, op, err)
	}
	return nil
}

func check(t domain.ScraperType, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	op := fmt.Sprintf("validate %s config", t)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.E(domain.KindConfigInvalid, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return domain.Errorf(domain.KindConfigInvalid, op, "%s", strings.Join(msgs, "; "))
}
