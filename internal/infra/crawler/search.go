package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// DefaultSearchURL is the DuckDuckGo HTML endpoint; the query goes in q
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

const maxSearchBody = 2 << 20

// SearchStrategy scrapes a search result page for a matching login link
type SearchStrategy struct {
	searchURL string
	client    *http.Client
	limiter   *rate.Limiter
	matcher   Matcher
}

// NewSearchStrategy creates a search strategy.
// Queries are limited to one every interval across all workers.
func NewSearchStrategy(searchURL string, client *http.Client, interval time.Duration, matcher Matcher) *SearchStrategy {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if matcher == nil {
		matcher = RuleMatcher{}
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &SearchStrategy{
		searchURL: searchURL,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		matcher:   matcher,
	}
}

func (s *SearchStrategy) Name() string { return "search" }

// Discover queries "<app> login" and returns the first matching result link
func (s *SearchStrategy) Discover(ctx context.Context, appName string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u, err := url.Parse(s.searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url: %w", err)
	}
	q := u.Query()
	q.Set("q", appName+" login")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	links, err := ExtractLinks(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return "", fmt.Errorf("failed to parse results: %w", err)
	}
	for _, link := range links {
		if s.matcher.Match(appName, link) {
			return link, nil
		}
	}
	return "", nil
}

// ExtractLinks returns every anchor target in document order, with search
// engine redirect wrappers removed.
func ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					if link := unwrapRedirect(attr.Val); link != "" {
						links = append(links, link)
					}
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// unwrapRedirect resolves DuckDuckGo (uddg=) and Google (/url?q=) wrappers
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
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
	if u.Path == "/url" {
		if target := u.Query().Get("q"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
