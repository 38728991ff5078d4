package workday

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/sourcecfg"

	"github.com/PuerkitoBio/goquery"
)

type listing struct {
	Title    string
	Location string
	Link     string
	PostedOn string
}

var (
	altTitle       = []string{"h3", ".job-title", `[class*="title"]`, "a"}
	altLocation    = []string{".location", `[class*="location"]`, `[data-automation-id="location"]`}
	altDescription = []string{".job-description", `[class*="description"]`, `[data-automation-id="details"]`, ".job-details"}
	requirementSel = []string{`[data-automation-id="requirements"]`, ".requirements", `[class*="requirements"]`, ".qualifications", `[class*="qualifications"]`}
	postedSel      = []string{`[data-automation-id="postedOn"]`, `[data-automation-id="postedDate"]`, ".posted-date", `[class*="posted"]`}
)

func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if t := util.CleanText(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func firstBlock(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		h, err := node.Html()
		if err != nil {
			continue
		}
		if t := util.HTMLToText(h); t != "" {
			return t
		}
	}
	return ""
}

// parseListings extracts the job cards on a rendered search page. Cards are
// taken from inside the search-results container when the page has one.
func parseListings(html, pageURL string, sel sourcecfg.Selectors) ([]listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	scope := doc.Selection
	if sel.SearchResults != "" {
		if r := doc.Find(sel.SearchResults); r.Length() > 0 {
			scope = r
		}
	}

	var out []listing
	scope.Find(sel.JobItem).Each(func(_ int, item *goquery.Selection) {
		title := firstText(item, append([]string{sel.JobTitle}, altTitle...)...)
		if title == "" {
			return
		}
		l := listing{
			Title:    title,
			Location: firstText(item, append([]string{sel.JobLocation}, altLocation...)...),
			PostedOn: firstText(item, postedSel...),
		}
		if href, ok := item.Find(sel.JobLink).First().Attr("href"); ok {
			l.Link = util.AbsoluteURL(pageURL, href)
		} else if href, ok := item.Find("a[href]").First().Attr("href"); ok {
			l.Link = util.AbsoluteURL(pageURL, href)
		}
		out = append(out, l)
	})
	return out, nil
}

type details struct {
	Description  string
	Requirements string
	PostedOn     string
}

func parseDetails(html string, sel sourcecfg.Selectors) (details, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return details{}, err
	}
	root := doc.Selection
	return details{
		Description:  firstBlock(root, append([]string{sel.JobDescription}, altDescription...)...),
		Requirements: firstBlock(root, requirementSel...),
		PostedOn:     firstText(root, postedSel...),
	}, nil
}

var daysAgo = regexp.MustCompile(`(?i)(\d+)(\+?)\s+days?\s+ago`)

// parsePostedOn understands Workday's relative labels ("Posted Today",
// "Posted 3 Days Ago") and a few absolute formats. Open-ended labels such as
// "Posted 30+ Days Ago" name no date and yield nil.
func parsePostedOn(s string, now time.Time) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	low := strings.ToLower(s)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case strings.Contains(low, "today"):
		return &day
	case strings.Contains(low, "yesterday"):
		t := day.AddDate(0, 0, -1)
		return &t
	}
	if m := daysAgo.FindStringSubmatch(low); m != nil {
		if m[2] != "" {
			return nil
		}
		n, _ := strconv.Atoi(m[1])
		t := day.AddDate(0, 0, -n)
		return &t
	}

	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "Posted On"), "Posted"))
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006", "January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// looksBlocked reports a bot-challenge interstitial instead of the careers page.
func looksBlocked(html string) bool {
	low := strings.ToLower(html)
	return strings.Contains(low, "/cdn-cgi/") ||
		(strings.Contains(low, "cloudflare") && strings.Contains(low, "checking your browser")) ||
		(strings.Contains(low, "attention required") && strings.Contains(low, "cloudflare"))
}
