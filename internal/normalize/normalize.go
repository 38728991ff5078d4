// Package normalize maps adapter payloads onto the canonical job record.
package normalize

import (
	"regexp"
	"strings"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/util"
)

type rule[T any] struct {
	re  *regexp.Regexp
	out T
}

// Checked in order; the first match wins.
var jobTypeRules = []rule[domain.JobType]{
	{regexp.MustCompile(`\bintern(s|ship|ships)?\b|\bco-?op\b`), domain.JobTypeInternship},
	{regexp.MustCompile(`\b(contract|contractor|freelance|temporary|temp|consultant|consulting)\b`), domain.JobTypeContract},
	{regexp.MustCompile(`\bpart[\s-]?time\b`), domain.JobTypePartTime},
	{regexp.MustCompile(`\b(full[\s-]?time|permanent|regular)\b`), domain.JobTypeFullTime},
}

var remoteTypeRules = []rule[domain.RemoteType]{
	{regexp.MustCompile(`\bhybrid\b|\bflexible\b|\bremote[\s-](optional|friendly)\b`), domain.RemoteTypeHybrid},
	{regexp.MustCompile(`\bremote\b|\bwork from home\b|\bwfh\b|\bdistributed\b|\banywhere\b`), domain.RemoteTypeRemote},
	{regexp.MustCompile(`\bon[\s-]?site\b|\bin[\s-](office|person)\b`), domain.RemoteTypeOnsite},
}

func match[T any](rules []rule[T], s string) (T, bool) {
	s = strings.ToLower(util.CleanText(s))
	for _, r := range rules {
		if s != "" && r.re.MatchString(s) {
			return r.out, true
		}
	}
	var zero T
	return zero, false
}

// MapJobType maps an employment-type string; unknown values map to "".
func MapJobType(s string) domain.JobType {
	t, _ := match(jobTypeRules, s)
	return t
}

// MapRemoteType maps a workplace string; unknown values map to "".
func MapRemoteType(s string) domain.RemoteType {
	t, _ := match(remoteTypeRules, s)
	return t
}

// Normalize turns one payload into a JobRecord. Payloads without a title,
// company or external URL are rejected with KindNormalizationRejected.
func Normalize(raw types.RawJobPayload, cfg domain.CompanyScraperConfig) (domain.JobRecord, error) {
	rec := domain.JobRecord{
		Title:        util.CleanText(raw.Title),
		Company:      util.CleanText(util.FirstNonEmpty(raw.Company, cfg.CompanyName)),
		Location:     util.NormalizeLocation(raw.Location),
		Description:  util.CleanMultiline(raw.Description),
		Requirements: util.CleanMultiline(raw.Requirements),
		SalaryRange:  util.CleanText(raw.SalaryText),
		ExternalURL:  util.CanonicalizeURL(raw.ExternalURL),
		Source:       strings.ToLower(util.CleanText(util.FirstNonEmpty(raw.Source, string(cfg.ScraperType)))),
		SourceURL:    strings.TrimSpace(raw.SourceURL),
		SourceJobID:  strings.TrimSpace(raw.SourceJobID),
	}

	rec.JobType = MapJobType(raw.EmploymentType)
	if rec.JobType == "" && strings.TrimSpace(raw.EmploymentType) == "" {
		rec.JobType = MapJobType(rec.Title)
	}

	if strings.TrimSpace(raw.WorkplaceType) != "" {
		rec.RemoteType = MapRemoteType(raw.WorkplaceType)
	} else {
		rec.RemoteType = MapRemoteType(rec.Location + " " + rec.Title)
	}

	if rec.SalaryRange == "" {
		rec.SalaryRange = util.ExtractSalary(rec.Description + " " + rec.Requirements)
	}

	if raw.PostedAt != nil && !raw.PostedAt.IsZero() {
		t := raw.PostedAt.UTC()
		rec.PostedDate = &t
	}

	var missing []string
	if rec.Title == "" {
		missing = append(missing, "title")
	}
	if rec.Company == "" {
		missing = append(missing, "company")
	}
	if rec.ExternalURL == "" {
		missing = append(missing, "external_url")
	}
	if len(missing) > 0 {
		return domain.JobRecord{}, domain.Errorf(domain.KindNormalizationRejected, "normalize",
			"missing %s (source=%s id=%q)", strings.Join(missing, ", "), rec.Source, rec.SourceJobID)
	}
	return rec, nil
}
