package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	defaultContentMaxLength = 10000
	defaultRetrieveTimeout  = 10 * time.Second
	truncationMarker        = "... (content truncated)"
)

var (
	collapseNewlines = regexp.MustCompile(`\n+`)
	collapseSpaces   = regexp.MustCompile(`\s+`)
)

// ContentItem is one retrieved URL. Exactly one of Content or Error is set.
type ContentItem struct {
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Retriever fetches and cleans page content for the retrieve tool.
type Retriever struct {
	http      *http.Client
	maxLength int
}

// NewRetriever constructs a retriever; maxLength <= 0 uses the default.
func NewRetriever(maxLength int) *Retriever {
	if maxLength <= 0 {
		maxLength = defaultContentMaxLength
	}
	return &Retriever{
		http:      &http.Client{Timeout: defaultRetrieveTimeout},
		maxLength: maxLength,
	}
}

// Retrieve fetches each URL independently. Per-URL failures become items
// carrying an error string; they never abort the batch.
func (r *Retriever) Retrieve(ctx context.Context, urls []string) []ContentItem {
	items := make([]ContentItem, 0, len(urls))
	for _, u := range urls {
		content, err := r.fetch(ctx, u)
		if err != nil {
			items = append(items, ContentItem{URL: u, Error: err.Error()})
			continue
		}
		items = append(items, ContentItem{URL: u, Content: content})
	}
	return items
}

func (r *Retriever) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request returned status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(r.maxLength)*4))
	if err != nil {
		return "", err
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "text/html"):
		content = cleanHTML(content)
	case strings.Contains(contentType, "application/json"):
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			content = buf.String()
		}
	}

	if len(content) > r.maxLength {
		cut := r.maxLength
		// Back off to a rune boundary so truncation never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + truncationMarker
	}
	return content, nil
}

// cleanHTML strips non-content elements, extracts visible text (preferring
// article/main over the whole body) and normalizes whitespace.
func cleanHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	root := doc
	if main := findFirstElement(doc, "article", "main", "body"); main != nil {
		root = main
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	out := collapseNewlines.ReplaceAllString(sb.String(), "\n")
	out = collapseSpaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// findFirstElement returns the first element matching any tag, trying tags in
// priority order.
func findFirstElement(doc *html.Node, tags ...string) *html.Node {
	for _, tag := range tags {
		if n := findElement(doc, tag); n != nil {
			return n
		}
	}
	return nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
