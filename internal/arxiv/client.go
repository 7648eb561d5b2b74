// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv catalog for papers in a submission-date
// window. See docs/ARCHITECTURE.md § Source Client.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/digest-engine/internal/httputil"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// maxPageSize is the largest page the arXiv API serves reliably.
const maxPageSize = 200

// RawResult is one catalog entry: identifier, display text, locators, and
// the submission date used for windowing.
type RawResult struct {
	ID          string
	Title       string
	Abstract    string
	ArxivURL    string
	PDFURL      string
	PublishedAt time.Time
}

// Client fetches date-bounded, category-filtered result sets from arXiv,
// ordered by submission date descending.
type Client struct {
	// HTTP is the underlying HTTP client.
	HTTP *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// Limiter paces page requests; the arXiv API asks for no more than one
	// request every three seconds. A nil limiter means no pacing.
	Limiter *rate.Limiter

	// Retry wraps each page request.
	Retry httputil.Policy
}

// NewClient returns a client with the standard politeness settings.
func NewClient(httpClient *http.Client, userAgent string, retry httputil.Policy) *Client {
	return &Client{
		HTTP:      httpClient,
		UserAgent: userAgent,
		Limiter:   rate.NewLimiter(rate.Every(3*time.Second), 1),
		Retry:     retry,
	}
}

// Fetch returns up to maxResults papers in the given categories whose
// submission timestamp falls inside [from, to], newest first. Each page
// request goes through the retry policy; when retries are exhausted the
// error propagates so the caller can distinguish a failed fetch from an
// empty result set.
func (c *Client) Fetch(ctx context.Context, categories []string, from, to time.Time, maxResults int) ([]RawResult, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories provided")
	}

	query := buildQuery(categories, from, to)

	var results []RawResult
	start := 0
	total := -1

	for maxResults <= 0 || len(results) < maxResults {
		pageSize := maxPageSize
		if maxResults > 0 && maxResults-len(results) < pageSize {
			pageSize = maxResults - len(results)
		}

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var feed atomFeed
		err := c.Retry.Do(ctx, "arxiv fetch", func() error {
			f, err := c.fetchPage(ctx, query, start, pageSize)
			if err != nil {
				return err
			}
			feed = f
			return nil
		})
		if err != nil {
			return nil, err
		}

		if total < 0 {
			total = feed.TotalResults
		}

		for _, entry := range feed.Entries {
			r, ok := entry.toResult()
			if !ok {
				continue
			}
			results = append(results, r)
		}

		start += len(feed.Entries)
		if len(feed.Entries) == 0 || start >= total {
			break
		}
	}

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (c *Client) fetchPage(ctx context.Context, query string, start, pageSize int) (atomFeed, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("max_results", fmt.Sprintf("%d", pageSize))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return atomFeed{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return atomFeed{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return atomFeed{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return atomFeed{}, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed, nil
}

// buildQuery constructs the search_query parameter: categories OR-joined,
// AND-ed with a submittedDate range at minute precision.
func buildQuery(categories []string, from, to time.Time) string {
	var cats []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cats = append(cats, "cat:"+c)
	}

	q := "(" + strings.Join(cats, " OR ") + ")"
	q += fmt.Sprintf(" AND submittedDate:[%s0000 TO %s2359]",
		from.UTC().Format("20060102"), to.UTC().Format("20060102"))
	return q
}
