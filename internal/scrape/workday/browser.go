package workday

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser opens rendering sessions. A Session is bound to the context passed to
// Open; cancelling that context tears the browser down.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

type Session interface {
	Navigate(url string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(selector string, timeout time.Duration) error
	HTML() (string, error)
	// Click clicks the first enabled element matching selector and reports
	// whether one existed.
	Click(selector string) (bool, error)
	Close() error
}

type ChromeOptions struct {
	Headless        bool
	ExecPath        string
	UserAgent       string
	PageLoadTimeout time.Duration
}

// ChromeBrowser launches one headless Chrome process per session.
type ChromeBrowser struct {
	opts ChromeOptions
}

func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	return &ChromeBrowser{opts: opts}
}

func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeSession{
		ctx:      browserCtx,
		loadWait: b.opts.PageLoadTimeout,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type chromeSession struct {
	ctx      context.Context
	loadWait time.Duration
	cancel   func()
	once     sync.Once
}

func (s *chromeSession) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.loadWait)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) HTML() (string, error) {
	var out string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return out, nil
}

const clickScript = `(function(sel) {
  const el = document.querySelector(sel);
  if (!el || el.disabled || el.getAttribute("aria-disabled") === "true") return false;
  el.scrollIntoView();
  el.click();
  return true;
})(%q)`

func (s *chromeSession) Click(selector string) (bool, error) {
	var clicked bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(fmt.Sprintf(clickScript, selector), &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

// Close kills the Chrome process. Safe to call more than once.
func (s *chromeSession) Close() error {
	s.once.Do(s.cancel)
	return nil
}
