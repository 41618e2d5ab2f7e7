package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"canvas-analytics-etl/internal/config"
	"canvas-analytics-etl/internal/logger"
	"canvas-analytics-etl/pkg/errors"

	"github.com/rs/zerolog"
)

// Client wraps authenticated, paginated access to the Canvas REST API.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Canvas.Timeout,
		},
		log: logger.Get(),
	}
}

// nextLinkRe matches the rel="next" entry of an RFC 5988 Link header.
var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

func parseNextLink(header string) string {
	m := nextLinkRe.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

// FetchRecords follows rel="next" links starting at url and returns every
// record collected. Each page is retried on 429 and network failures with a
// linearly growing backoff; once retries are exhausted the pages already
// collected are returned with complete=false. Errors never propagate to the
// caller.
func (c *Client) FetchRecords(ctx context.Context, url string) (records []json.RawMessage, complete bool) {
	complete = true

	for url != "" {
		page, next, err := c.fetchPageWithRetry(ctx, url)
		if err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("Abandoning subject after exhausting retries")
			return records, false
		}

		records = append(records, page...)
		url = next
	}

	return records, complete
}

func (c *Client) fetchPageWithRetry(ctx context.Context, url string) ([]json.RawMessage, string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Canvas.RetryLimit; attempt++ {
		if attempt > 1 {
			// Linear backoff: backoff × attempt number of the failed try.
			delay := c.cfg.Canvas.Backoff * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
			}
		}

		page, next, err := c.fetchPage(ctx, url)
		if err == nil {
			return page, next, nil
		}
		if !errors.IsRetryable(err) {
			return nil, "", err
		}

		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Str("url", url).Msg("Page fetch failed, retrying")
	}

	return nil, "", fmt.Errorf("retry limit reached: %w", lastErr)
}

// fetchPage performs a single authenticated GET. A 2xx response whose body
// is not a JSON array counts as the final, empty page.
func (c *Client) fetchPage(ctx context.Context, url string) ([]json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Canvas.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.NewRetryableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, "", errors.NewRetryableError(fmt.Errorf("HTTP 429"), "rate limited")
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, "", errors.NewRetryableError(fmt.Errorf("HTTP %d", resp.StatusCode), "server error")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		c.log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Unexpected status, ending pagination")
		return nil, "", nil
	}

	var page []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		c.log.Warn().
			Err(fmt.Errorf("%w: %v", errors.ErrUnexpectedShape, err)).
			Str("url", url).
			Msg("Treating response as final empty page")
		return nil, "", nil
	}

	return page, parseNextLink(resp.Header.Get("Link")), nil
}
