// Package websearch implements the web search and content retrieval tools
// behind the Cursor context surface.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
)

const (
	// browserUserAgent identifies the scraper as a regular browser; the
	// search engine serves a reduced page to unknown agents.
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

	defaultSearchLimit = 5
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Provider abstracts the search backend so the scraping strategy can be
// swapped without touching callers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) []Result
}

// DuckDuckGo scrapes the DuckDuckGo HTML interface.
type DuckDuckGo struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewDuckDuckGo constructs the default search provider.
func NewDuckDuckGo(logger *log.Logger) *DuckDuckGo {
	return &DuckDuckGo{
		baseURL: "https://duckduckgo.com",
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Search returns up to limit results. Failures are logged and yield an empty
// slice rather than an error; the caller always gets a well-formed batch.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) []Result {
	if strings.TrimSpace(query) == "" {
		return []Result{}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	u := fmt.Sprintf("%s/html/?q=%s", d.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		d.logger.Warn("search request build failed", "error", err)
		return []Result{}
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Warn("search request failed", "error", err)
		return []Result{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("search returned non-200", "status", resp.Status)
		return []Result{}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		d.logger.Warn("search result parse failed", "error", err)
		return []Result{}
	}
	return parseResults(doc, limit)
}

// parseResults extracts title/snippet/link triples from div.result__body
// blocks in the rendered search page.
func parseResults(doc *html.Node, limit int) []Result {
	results := make([]Result, 0, limit)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result__body") {
			results = append(results, parseResultBlock(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResultBlock(block *html.Node) Result {
	res := Result{Title: "No title", Content: "No snippet", URL: "#"}
	if a := findByClass(block, "a", "result__a"); a != nil {
		if title := strings.TrimSpace(nodeText(a)); title != "" {
			res.Title = title
		}
		if href := attr(a, "href"); href != "" {
			res.URL = href
		}
	}
	if snippet := findByClass(block, "div", "result__snippet"); snippet != nil {
		if text := strings.TrimSpace(nodeText(snippet)); text != "" {
			res.Content = text
		}
	}
	return res
}

func findByClass(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
