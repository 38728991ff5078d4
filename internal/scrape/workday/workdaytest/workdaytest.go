// Package workdaytest provides an in-memory workday.Browser for tests.
package workdaytest

import (
	"context"
	"errors"
	"sync"
	"time"

	"jobingest-engine/internal/scrape/workday"
)

// Browser serves canned listing pages and detail pages. Clicking NextSelector
// advances to the next listing page.
type Browser struct {
	Pages        []string
	Details      map[string]string
	NextSelector string

	// NeverRender makes the listing wait fail after its timeout.
	NeverRender bool
	// Hang makes the listing wait block until the session context ends.
	Hang bool
	// Waiting is closed when a hanging wait begins.
	Waiting chan struct{}
	OpenErr error

	mu     sync.Mutex
	opened int
	closed int
}

func (b *Browser) Open(ctx context.Context) (workday.Session, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &session{b: b, ctx: ctx}, nil
}

func (b *Browser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type session struct {
	b    *Browser
	ctx  context.Context
	url  string
	page int
}

func (s *session) isDetail() bool {
	_, ok := s.b.Details[s.url]
	return ok
}

func (s *session) Navigate(url string) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.url = url
	return nil
}

func (s *session) WaitVisible(selector string, timeout time.Duration) error {
	if s.isDetail() {
		return nil
	}
	switch {
	case s.b.Hang:
		if s.b.Waiting != nil {
			close(s.b.Waiting)
		}
		<-s.ctx.Done()
		return s.ctx.Err()
	case s.b.NeverRender:
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-t.C:
			return errors.New("waiting for " + selector + ": deadline exceeded")
		}
	}
	return nil
}

func (s *session) HTML() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if h, ok := s.b.Details[s.url]; ok {
		return h, nil
	}
	if len(s.b.Pages) == 0 {
		return "<html><body></body></html>", nil
	}
	return s.b.Pages[s.page], nil
}

func (s *session) Click(selector string) (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return false, err
	}
	if selector != s.b.NextSelector || s.page >= len(s.b.Pages)-1 {
		return false, nil
	}
	s.page++
	return true, nil
}

func (s *session) Close() error {
	s.b.mu.Lock()
	s.b.closed++
	s.b.mu.Unlock()
	return nil
}
