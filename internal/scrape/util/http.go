package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobingest-engine/internal/domain"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; JobIngest/1.0)"

// Client is the shared HTTP path for API adapters: it paces, rate-limits per host
// and classifies failures as source_unavailable.
type Client struct {
	HTTP      *http.Client
	Limiter   *HostLimiter
	Pacer     *Pacer
	UserAgent string
}

func NewClient(limiter *HostLimiter, pacer *Pacer, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Limiter:   limiter,
		Pacer:     pacer,
		UserAgent: userAgent,
	}
}

// GetJSON issues a GET and decodes the JSON body into out. Context errors are
// returned as-is so callers can tell a timeout or cancel from an unavailable source.
func (c *Client) GetJSON(ctx context.Context, op, rawURL string, out any) error {
	if c.Pacer != nil {
		if err := c.Pacer.Wait(ctx); err != nil {
			return err
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.WaitURL(ctx, rawURL); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.E(domain.KindConfigInvalid, op, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.E(domain.KindSourceUnavailable, op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return domain.Errorf(domain.KindSourceUnavailable, op, "status %d body=%s", res.StatusCode, Truncate(string(b), 240))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.E(domain.KindSourceUnavailable, op, fmt.Errorf("decode: %w", err))
	}
	return nil
}
