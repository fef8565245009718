package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

const searchPage = `<html><body>
<div class="results">
  <div class="result results_links results_links_deep web-result">
    <div class="result__body links_main links_deep">
      <h2 class="result__title"><a class="result__a" href="https://go.dev/">The Go Programming Language</a></h2>
      <div class="result__snippet">Build simple, secure, scalable systems with Go.</div>
    </div>
  </div>
  <div class="result__body">
    <h2><a class="result__a" href="https://go.dev/doc/">Documentation</a></h2>
    <div class="result__snippet">Learn how to use Go.</div>
  </div>
  <div class="result__body">
    <h2><a class="result__a" href="https://pkg.go.dev/">Packages</a></h2>
  </div>
</div>
</body></html>`

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestSearch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("expected q=golang, got %q", got)
		}
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(discardLogger())
	d.baseURL = srv.URL

	results := d.Search(context.Background(), "golang", 2)
	if len(results) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(results))
	}
	if results[0].Title != "The Go Programming Language" {
		t.Fatalf("title = %q", results[0].Title)
	}
	if results[0].URL != "https://go.dev/" {
		t.Fatalf("url = %q", results[0].URL)
	}
	if !strings.Contains(results[0].Content, "scalable systems") {
		t.Fatalf("content = %q", results[0].Content)
	}
}

func TestSearch_MissingSnippetUsesPlaceholder(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(discardLogger())
	d.baseURL = srv.URL

	results := d.Search(context.Background(), "golang", 10)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[2].Content != "No snippet" {
		t.Fatalf("expected snippet placeholder, got %q", results[2].Content)
	}
}

func TestSearch_FailuresYieldEmptyBatch(t *testing.T) {
	t.Parallel()
	d := NewDuckDuckGo(discardLogger())
	d.baseURL = "http://127.0.0.1:0"
	if got := d.Search(context.Background(), "golang", 5); len(got) != 0 {
		t.Fatalf("expected empty results on transport failure, got %v", got)
	}
	if got := d.Search(context.Background(), "   ", 5); len(got) != 0 {
		t.Fatalf("expected empty results for blank query, got %v", got)
	}
}

func TestRetrieve_HTMLCleaning(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><style>body{color:red}</style></head>
<body><script>alert("x")</script><article><h1>Heading</h1>
<p>Paragraph    one.</p></article></body></html>`)
	}))
	defer srv.Close()

	r := NewRetriever(0)
	items := r.Retrieve(context.Background(), []string{srv.URL})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Error != "" {
		t.Fatalf("unexpected error: %q", items[0].Error)
	}
	got := items[0].Content
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Fatalf("script/style leaked into content: %q", got)
	}
	if !strings.Contains(got, "Heading") || !strings.Contains(got, "Paragraph one.") {
		t.Fatalf("expected cleaned text, got %q", got)
	}
}

func TestRetrieve_JSONPrettyPrinted(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"a":1,"b":[2,3]}`)
	}))
	defer srv.Close()

	r := NewRetriever(0)
	items := r.Retrieve(context.Background(), []string{srv.URL})
	if !strings.Contains(items[0].Content, "\n  \"a\": 1") {
		t.Fatalf("expected indented JSON, got %q", items[0].Content)
	}
}

func TestRetrieve_Truncation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("x", 500))
	}))
	defer srv.Close()

	r := NewRetriever(100)
	items := r.Retrieve(context.Background(), []string{srv.URL})
	if !strings.HasSuffix(items[0].Content, truncationMarker) {
		t.Fatalf("expected truncation marker, got tail %q", items[0].Content[len(items[0].Content)-30:])
	}
	if len(items[0].Content) != 100+len(truncationMarker) {
		t.Fatalf("unexpected truncated length %d", len(items[0].Content))
	}
}

func TestRetrieve_TruncationKeepsRuneBoundary(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		// Three-byte runes; a cut at byte 100 would land mid-rune.
		fmt.Fprint(w, strings.Repeat("日", 200))
	}))
	defer srv.Close()

	r := NewRetriever(100)
	items := r.Retrieve(context.Background(), []string{srv.URL})
	if items[0].Error != "" {
		t.Fatalf("unexpected error %q", items[0].Error)
	}
	if !utf8.ValidString(items[0].Content) {
		t.Fatal("truncated content contains a split rune")
	}
	body := strings.TrimSuffix(items[0].Content, truncationMarker)
	if len(body) != 99 {
		t.Fatalf("expected cut backed off to 99 bytes, got %d", len(body))
	}
}

func TestRetrieve_PerURLFailureIsolation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "ok content")
	}))
	defer srv.Close()

	r := NewRetriever(0)
	items := r.Retrieve(context.Background(), []string{"http://bad.invalid/", srv.URL})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Error == "" {
		t.Fatal("expected error for unreachable URL")
	}
	if items[0].Content != "" {
		t.Fatalf("failed item must not carry content, got %q", items[0].Content)
	}
	if items[1].Content != "ok content" {
		t.Fatalf("sibling URL should still resolve, got %+v", items[1])
	}
}
