package greenhouse

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/sourcecfg"
)

const DefaultBaseURL = "https://boards-api.greenhouse.io"

type Scraper struct {
	company string
	cfg     sourcecfg.Greenhouse
	base    string
	client  *util.Client
}

// New builds a scraper for one board. base overrides DefaultBaseURL when non-empty.
func New(company string, cfg sourcecfg.Greenhouse, client *util.Client, base string) *Scraper {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Scraper{
		company: company,
		cfg:     cfg,
		base:    strings.TrimRight(base, "/"),
		client:  client,
	}
}

func (s *Scraper) Name() string { return "greenhouse" }

type boardResponse struct {
	Jobs []ghJob `json:"jobs"`
}

type ghJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	UpdatedAt   string `json:"updated_at"`
	FirstPub    string `json:"first_published"`
	CreatedAt   string `json:"created_at"`
	Location    *struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	Metadata []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
}

func (s *Scraper) boardURL() string {
	return fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", s.base, url.PathEscape(s.cfg.CompanyToken))
}

func (s *Scraper) Fetch(ctx context.Context) ([]types.RawJobPayload, error) {
	apiURL := s.boardURL()

	var board boardResponse
	if err := s.client.GetJSON(ctx, "greenhouse get board", apiURL, &board); err != nil {
		return nil, err
	}

	out := make([]types.RawJobPayload, 0, len(board.Jobs))
	for _, j := range board.Jobs {
		out = append(out, s.toPayload(j, apiURL))
	}
	log.Printf("[greenhouse] company=%q token=%q jobs=%d", s.company, s.cfg.CompanyToken, len(out))
	return out, nil
}

func (s *Scraper) toPayload(j ghJob, apiURL string) types.RawJobPayload {
	desc := util.HTMLToText(j.Content)
	var depts []string
	for _, d := range j.Departments {
		if n := util.CleanText(d.Name); n != "" {
			depts = append(depts, n)
		}
	}
	if len(depts) > 0 {
		desc = strings.TrimSpace("Department: " + strings.Join(depts, ", ") + "\n\n" + desc)
	}

	p := types.RawJobPayload{
		Source:         "greenhouse",
		Title:          j.Title,
		Company:        s.company,
		Description:    desc,
		EmploymentType: metadataValue(j, "employment type"),
		ExternalURL:    j.AbsoluteURL,
		SourceURL:      apiURL,
		PostedAt:       parseTime(util.FirstNonEmpty(j.FirstPub, j.UpdatedAt, j.CreatedAt)),
	}
	if j.ID != 0 {
		p.SourceJobID = strconv.FormatInt(j.ID, 10)
	}
	if j.Location != nil {
		p.Location = j.Location.Name
	}
	return p
}

func metadataValue(j ghJob, name string) string {
	for _, m := range j.Metadata {
		if !strings.EqualFold(strings.TrimSpace(m.Name), name) {
			continue
		}
		switch v := m.Value.(type) {
		case string:
			return v
		case []any:
			var parts []string
			for _, x := range v {
				if s, ok := x.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	return ""
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
