package lever

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/sourcecfg"
)

const (
	DefaultBaseURL = "https://api.lever.co"
	// maxPages bounds pagination even if a board keeps returning full pages.
	maxPages = 20
)

type Scraper struct {
	company string
	cfg     sourcecfg.Lever
	base    string
	client  *util.Client
}

func New(company string, cfg sourcecfg.Lever, client *util.Client, base string) *Scraper {
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = sourcecfg.DefaultLeverPageSize
	}
	if cfg.MaxPostings <= 0 {
		cfg.MaxPostings = sourcecfg.DefaultLeverMaxPostings
	}
	return &Scraper{
		company: company,
		cfg:     cfg,
		base:    strings.TrimRight(base, "/"),
		client:  client,
	}
}

func (s *Scraper) Name() string { return "lever" }

type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"` // title
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	CreatedAt        int64  `json:"createdAt"` // ms epoch
	WorkplaceType    string `json:"workplaceType"`
	Description      string `json:"description"` // html
	DescriptionPlain string `json:"descriptionPlain"`
	Categories       struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
		Team       string `json:"team"`
	} `json:"categories"`
	Lists []struct {
		Text    string `json:"text"`
		Content string `json:"content"` // html
	} `json:"lists"`
	SalaryRange *struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
		Interval string  `json:"interval"`
	} `json:"salaryRange"`
}

// boardURL identifies the board independent of paging; it is every posting's source_url.
func (s *Scraper) boardURL() string {
	return s.base + "/v0/postings/" + url.PathEscape(s.cfg.CompanyHandle)
}

func (s *Scraper) pageURL(skip int) string {
	return fmt.Sprintf("%s?mode=json&limit=%d&skip=%d", s.boardURL(), s.cfg.PageSize, skip)
}

func (s *Scraper) Fetch(ctx context.Context) ([]types.RawJobPayload, error) {
	var out []types.RawJobPayload
	board := s.boardURL()
	skip := 0

	for page := 0; page < maxPages; page++ {
		var postings []leverPosting
		if err := s.client.GetJSON(ctx, "lever get postings", s.pageURL(skip), &postings); err != nil {
			return nil, err
		}
		for _, p := range postings {
			out = append(out, s.toPayload(p, board))
		}

		if len(postings) < s.cfg.PageSize {
			break
		}
		if len(out) >= s.cfg.MaxPostings {
			log.Printf("[lever] company=%q handle=%q reached max_postings=%d", s.company, s.cfg.CompanyHandle, s.cfg.MaxPostings)
			out = out[:s.cfg.MaxPostings]
			break
		}
		skip += s.cfg.PageSize
	}

	log.Printf("[lever] company=%q handle=%q jobs=%d", s.company, s.cfg.CompanyHandle, len(out))
	return out, nil
}

func (s *Scraper) toPayload(p leverPosting, board string) types.RawJobPayload {
	desc := p.DescriptionPlain
	if strings.TrimSpace(desc) == "" {
		desc = util.HTMLToText(p.Description)
	}
	if team := util.CleanText(p.Categories.Team); team != "" {
		desc = strings.TrimSpace("Team: " + team + "\n\n" + desc)
	}

	var reqs []string
	for _, l := range p.Lists {
		title := util.CleanText(l.Text)
		body := util.HTMLToText(l.Content)
		switch {
		case title != "" && body != "":
			reqs = append(reqs, title+":\n"+body)
		case title != "":
			reqs = append(reqs, title)
		case body != "":
			reqs = append(reqs, body)
		}
	}

	out := types.RawJobPayload{
		Source:         "lever",
		SourceJobID:    strings.TrimSpace(p.ID),
		Title:          p.Text,
		Company:        s.company,
		Location:       p.Categories.Location,
		Description:    desc,
		Requirements:   strings.Join(reqs, "\n\n"),
		SalaryText:     formatSalary(p),
		EmploymentType: p.Categories.Commitment,
		WorkplaceType:  p.WorkplaceType,
		ExternalURL:    util.FirstNonEmpty(p.HostedURL, p.ApplyURL),
		SourceURL:      board,
	}
	if p.CreatedAt > 0 {
		t := time.UnixMilli(p.CreatedAt).UTC()
		out.PostedAt = &t
	}
	return out
}

func formatSalary(p leverPosting) string {
	r := p.SalaryRange
	if r == nil || (r.Min == 0 && r.Max == 0) {
		return ""
	}
	cur := strings.ToUpper(strings.TrimSpace(r.Currency))
	s := fmt.Sprintf("%.0f - %.0f", r.Min, r.Max)
	if cur != "" {
		s = cur + " " + s
	}
	if iv := strings.TrimSpace(r.Interval); iv != "" {
		s += " " + iv
	}
	return s
}
