package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandevgo/hackpal/pkg/retry"
	"golang.org/x/net/html"
)

const (
	duckDuckGoURL        = "https://html.duckduckgo.com/html/"
	defaultSearchTimeout = 20 * time.Second
	defaultSearchResults = 5
	maxSearchResults     = 10
)

const webSearchSchema = `
{
  "type": "object",
  "properties": {
    "query": { "type": "string", "description": "The search query" },
    "max_results": { "type": "integer", "description": "Number of results, 1 to 10 (default 5)" }
  },
  "required": ["query"]
}
`

type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Search queries the DuckDuckGo HTML endpoint, which needs no API key.
type Search struct {
	client   *http.Client
	retrier  *retry.Retrier
	endpoint string
}

func NewSearchWithEndpoint(endpoint string, timeout time.Duration, retryCfg *retry.Config) *Search {
	return &Search{
		client:   newHTTPClient(timeout),
		retrier:  retry.NewRetrier(retryConfigOr(retryCfg)),
		endpoint: endpoint,
	}
}

func NewSearch() *Search {
	return NewSearchWithEndpoint(duckDuckGoURL, defaultSearchTimeout, nil)
}

func (s *Search) WebSearch(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	input.Query = strings.TrimSpace(input.Query)
	if input.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	limit := input.MaxResults
	if limit <= 0 {
		limit = defaultSearchResults
	}
	limit = min(limit, maxSearchResults)

	var results []SearchResult
	err := s.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?q="+url.QueryEscape(input.Query), nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
		req.Header.Set("Accept", "text/html")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		results, err = parseResults(io.LimitReader(resp.Body, maxResponseSize), limit)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		return "No results found for: " + input.Query, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n\n", input.Query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "%s\n", r.Snippet)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func (s *Search) GetDefinitions() map[string]Definition {
	return map[string]Definition{
		"web_search": {"Search the web and return titles, links and snippets", webSearchSchema, s.WebSearch},
	}
}

func parseResults(r io.Reader, limit int) ([]SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		results []SearchResult
		current *SearchResult
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				if current != nil && current.URL != "" {
					results = append(results, *current)
				}
				current = &SearchResult{URL: cleanResultURL(attr(n, "href")), Title: text(n)}
				return
			case strings.Contains(class, "result__snippet") && current != nil:
				current.Snippet = text(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if current != nil && current.URL != "" && len(results) < limit {
		results = append(results, *current)
	}
	return results, nil
}

// cleanResultURL unwraps DuckDuckGo redirect links.
func cleanResultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var parts []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(parts, " ")
}
