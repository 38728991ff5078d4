package workday

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"jobingest-engine/internal/scrape/util"
)

type board struct {
	Scheme string
	Host   string
	Tenant string
	Site   string
	Locale string
}

var workdayHosts = []string{"myworkdayjobs.com", "myworkdaysite.com", "workday.com"}

// IsWorkdayURL reports whether raw points at a Workday-hosted careers site.
func IsWorkdayURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range workdayHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// parseBoardURL splits https://<tenant>.wd5.myworkdayjobs.com/[locale/]<site>.
func parseBoardURL(raw string) (board, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return board{}, errors.New("empty board url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return board{}, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return board{}, fmt.Errorf("missing host in %q", raw)
	}

	parts := strings.Split(u.Host, ".")
	if len(parts) < 3 {
		return board{}, fmt.Errorf("unexpected host %q", u.Host)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return board{}, fmt.Errorf("unexpected path %q", u.Path)
	}
	locale := ""
	if len(segs) >= 2 && looksLikeLocale(segs[0]) {
		locale = normalizeLocale(segs[0])
		segs = segs[1:]
	}

	return board{
		Scheme: u.Scheme,
		Host:   u.Host,
		Tenant: parts[0],
		Site:   segs[0],
		Locale: locale,
	}, nil
}

func looksLikeLocale(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	return isAlpha(s[0:2]) && isAlpha(s[3:5])
}

func normalizeLocale(s string) string {
	return strings.ToLower(s[0:2]) + "-" + strings.ToUpper(s[3:5])
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

// sourceJobID prefers the requisition suffix of the job link
// (".../Senior-Engineer_JR-10423" -> "JR-10423"), then the last path segment,
// then a hash of company, title and location.
func sourceJobID(link, company, title, location string) string {
	if link != "" {
		if u, err := url.Parse(link); err == nil {
			seg := path.Base(strings.TrimRight(u.Path, "/"))
			if seg != "" && seg != "." && seg != "/" {
				if i := strings.LastIndex(seg, "_"); i >= 0 && i < len(seg)-1 && hasDigit(seg[i+1:]) {
					return seg[i+1:]
				}
				return seg
			}
		}
	}
	key := strings.ToLower(strings.Join([]string{company, title, location}, "|"))
	return util.HashString(key)
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
