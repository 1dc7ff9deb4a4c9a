package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/inbucket/html2text"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/retry"
)

const (
	maxResponseSize     = 1 << 20 // 1MB limit
	defaultFetchTimeout = 15 * time.Second
)

const fetchURLSchema = `
{
  "type": "object",
  "properties": {
    "url": { "type": "string", "description": "Absolute http or https URL to fetch" }
  },
  "required": ["url"]
}
`

type Fetch struct {
	client  *http.Client
	retrier *retry.Retrier
}

func NewFetchWithTimeout(timeout time.Duration, retryCfg *retry.Config) *Fetch {
	return &Fetch{
		client:  newHTTPClient(timeout),
		retrier: retry.NewRetrier(retryConfigOr(retryCfg)),
	}
}

func NewFetch() *Fetch {
	return NewFetchWithTimeout(defaultFetchTimeout, nil)
}

// FetchURL downloads a page and renders HTML as plain text. Client errors
// are not retried.
func (f *Fetch) FetchURL(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	u, err := url.Parse(input.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid url: %q", input.URL)
	}

	var body string
	err = f.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", core.AppUserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}

		body, err = html2text.FromReader(io.LimitReader(resp.Body, maxResponseSize), html2text.Options{
			OmitLinks:    false,
			PrettyTables: true,
		})
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return body, nil
}

func (f *Fetch) GetDefinitions() map[string]Definition {
	return map[string]Definition{
		"fetch_url": {"Fetch a web page and return its readable text", fetchURLSchema, f.FetchURL},
	}
}
