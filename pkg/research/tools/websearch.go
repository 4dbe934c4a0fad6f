package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultSearchURL  = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 3

	// Plain Go user agents get an empty result page from the HTML endpoint.
	searchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// SearchClient resolves research questions to candidate source URLs through
// the DuckDuckGo HTML endpoint.
type SearchClient struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
	log        *slog.Logger
}

// NewSearchClient builds a resolver returning at most maxResults URLs per
// query. A non-positive maxResults takes the default of 3.
func NewSearchClient(maxResults int, logger *slog.Logger) *SearchClient {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultSearchURL,
		maxResults: maxResults,
		log:        logger,
	}
}

// Resolve returns source URLs for the query. It never fails: when the search
// errors or comes back empty, the result is a single synthesized search-page
// URL so downstream extraction always has something to visit.
func (s *SearchClient) Resolve(ctx context.Context, query string) []string {
	links, err := s.search(ctx, query)
	if err != nil {
		s.log.Warn("web search failed, synthesizing search URL", "query", query, "error", err)
		return []string{searchPageURL(query)}
	}
	if len(links) == 0 {
		s.log.Warn("web search returned no results, synthesizing search URL", "query", query)
		return []string{searchPageURL(query)}
	}
	return links
}

func (s *SearchClient) search(ctx context.Context, query string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var links []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if link := normalizeResult(href); link != "" {
			links = append(links, link)
		}
		return len(links) < s.maxResults
	})
	return links, nil
}

// normalizeResult turns a raw result href into a direct URL. DuckDuckGo wraps
// targets in a protocol-relative redirect carrying the real URL in the uddg
// query parameter.
func normalizeResult(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.String()
}

func searchPageURL(query string) string {
	return "https://duckduckgo.com/?q=" + url.QueryEscape(query)
}
