package workday

import (
	"context"
	"errors"
	"log"
	"time"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/sourcecfg"
)

var ErrWorkdayBlocked = errors.New("workday blocked by bot challenge")

const (
	defaultSettle     = 2 * time.Second
	defaultDetailWait = 5 * time.Second
)

type Scraper struct {
	company string
	cfg     sourcecfg.Workday
	browser Browser
	limiter *util.HostLimiter
	pacer   *util.Pacer

	// Settle is the pause after a load-more/next click; DetailWait bounds the
	// wait for a job description on detail pages.
	Settle     time.Duration
	DetailWait time.Duration
	now        func() time.Time
}

// New builds a scraper; limiter and pacer may be nil.
func New(company string, cfg sourcecfg.Workday, browser Browser, limiter *util.HostLimiter, pacer *util.Pacer) *Scraper {
	return &Scraper{
		company:    company,
		cfg:        cfg,
		browser:    browser,
		limiter:    limiter,
		pacer:      pacer,
		Settle:     defaultSettle,
		DetailWait: defaultDetailWait,
		now:        time.Now,
	}
}

func (s *Scraper) Name() string { return "workday" }

// sessionErr keeps context errors intact so the caller sees timeout or cancel.
func sessionErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return domain.E(domain.KindSourceUnavailable, op, err)
}

func (s *Scraper) navigate(ctx context.Context, sess Session, url string) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, url); err != nil {
			return err
		}
	}
	if err := sess.Navigate(url); err != nil {
		return sessionErr(ctx, "workday navigate", err)
	}
	return nil
}

func (s *Scraper) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Scraper) Fetch(ctx context.Context) ([]types.RawJobPayload, error) {
	sel := s.cfg.Selectors
	if sel.JobItem == "" {
		sel = sourcecfg.DefaultWorkdaySelectors
	}
	if b, err := parseBoardURL(s.cfg.CareersURL); err == nil && IsWorkdayURL(s.cfg.CareersURL) {
		log.Printf("[workday] company=%q tenant=%q site=%q", s.company, b.Tenant, b.Site)
	}

	sess, err := s.browser.Open(ctx)
	if err != nil {
		return nil, sessionErr(ctx, "workday open browser", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Printf("[workday] company=%q close session err=%v", s.company, cerr)
		}
	}()

	if err := s.navigate(ctx, sess, s.cfg.CareersURL); err != nil {
		return nil, err
	}

	wait := time.Duration(s.cfg.WaitTimeout) * time.Second
	if err := sess.WaitVisible(sel.JobItem, wait); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if html, herr := sess.HTML(); herr == nil && looksBlocked(html) {
			return nil, domain.E(domain.KindSourceUnavailable, "workday wait for listings", ErrWorkdayBlocked)
		}
		return nil, domain.Errorf(domain.KindRenderTimeout, "workday wait for listings",
			"selector %q not visible after %s", sel.JobItem, wait)
	}

	listings, err := s.collectListings(ctx, sess, sel)
	if err != nil {
		return nil, err
	}

	out := make([]types.RawJobPayload, 0, len(listings))
	for _, l := range listings {
		p := types.RawJobPayload{
			Source:      "workday",
			SourceJobID: sourceJobID(l.Link, s.company, l.Title, l.Location),
			Title:       l.Title,
			Company:     s.company,
			Location:    l.Location,
			ExternalURL: util.FirstNonEmpty(l.Link, s.cfg.CareersURL),
			SourceURL:   s.cfg.CareersURL,
			PostedAt:    parsePostedOn(l.PostedOn, s.now()),
		}
		if l.Link != "" {
			if err := s.hydrate(ctx, sess, sel, &p); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}

	log.Printf("[workday] company=%q jobs=%d", s.company, len(out))
	return out, nil
}

// collectListings walks load-more / next-page until neither exists, a page adds
// nothing new, or MaxPages is reached.
func (s *Scraper) collectListings(ctx context.Context, sess Session, sel sourcecfg.Selectors) ([]listing, error) {
	maxPages := s.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = sourcecfg.DefaultWorkdayMaxPages
	}

	var out []listing
	seen := map[string]bool{}
	for page := 0; page < maxPages; page++ {
		html, err := sess.HTML()
		if err != nil {
			return nil, sessionErr(ctx, "workday read page", err)
		}
		found, err := parseListings(html, s.cfg.CareersURL, sel)
		if err != nil {
			return nil, domain.E(domain.KindSourceUnavailable, "workday parse page", err)
		}

		added := 0
		for _, l := range found {
			key := sourceJobID(l.Link, s.company, l.Title, l.Location)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
			added++
		}
		if added == 0 && page > 0 {
			break
		}

		if err := s.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		clicked, err := sess.Click(sel.LoadMore)
		if err != nil {
			return nil, sessionErr(ctx, "workday load more", err)
		}
		if !clicked {
			if clicked, err = sess.Click(sel.NextPage); err != nil {
				return nil, sessionErr(ctx, "workday next page", err)
			}
		}
		if !clicked {
			break
		}
		if err := s.pause(ctx, s.Settle); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// hydrate opens the job page for description, requirements and posted date.
// Detail failures other than timeout or cancel keep the listing as-is.
func (s *Scraper) hydrate(ctx context.Context, sess Session, sel sourcecfg.Selectors, p *types.RawJobPayload) error {
	if err := s.navigate(ctx, sess, p.ExternalURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[workday] company=%q job=%q detail err=%v", s.company, p.SourceJobID, err)
		return nil
	}
	if err := sess.WaitVisible(sel.JobDescription, s.DetailWait); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	html, err := sess.HTML()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	d, err := parseDetails(html, sel)
	if err != nil {
		return nil
	}
	p.Description = d.Description
	p.Requirements = d.Requirements
	if p.PostedAt == nil {
		p.PostedAt = parsePostedOn(d.PostedOn, s.now())
	}
	return nil
}
