package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kurtgav/tinker/internal/tools"
)

const ddgPage = `
<html><body>
<div class="results">
  <div class="result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=abc">The Go Programming Language</a>
    </h2>
    <a class="result__snippet" href="//go.dev">Build simple, secure, scalable systems.</a>
  </div>
  <div class="result">
    <h2 class="result__title">
      <a class="result__a" href="https://go.dev/doc/">Documentation</a>
    </h2>
    <div class="result__snippet">Learn how to use Go.</div>
  </div>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL)
	results, err := d.Search(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "golang" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "The Go Programming Language" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].URL != "https://go.dev/" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Snippet != "Build simple, secure, scalable systems." {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if results[1].URL != "https://go.dev/doc/" {
		t.Errorf("plain url mangled: %q", results[1].URL)
	}
}

func TestDuckDuckGoCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.URL)
	results, err := d.Search(context.Background(), "golang", Options{Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "brave-key" {
			t.Errorf("token header = %q", got)
		}
		w.Write([]byte(`{"web":{"results":[{"title":"Go","url":"https://go.dev","description":"The language"}]}}`))
	}))
	defer srv.Close()

	b := NewBrave("brave-key")
	b.baseURL = srv.URL

	results, err := b.Search(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Go" || results[0].Snippet != "The language" {
		t.Errorf("results = %+v", results)
	}
}

func TestManagerUnconfiguredProvider(t *testing.T) {
	m := NewManager("brave")
	if _, err := m.Search(context.Background(), "q", Options{}); err == nil {
		t.Error("expected error for unconfigured provider")
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "First", URL: "https://a.example", Snippet: "one"},
		{Title: "", URL: "https://b.example"},
	})

	if !strings.HasPrefix(out, "1. [First](https://a.example)\n   one") {
		t.Errorf("formatted output = %q", out)
	}
	if !strings.Contains(out, "2. [No Title](https://b.example)") {
		t.Errorf("missing-title fallback absent: %q", out)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}

func TestWebSearchTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	mgr := NewManager("duckduckgo")
	mgr.Register(NewDuckDuckGo(srv.URL))

	reg := tools.NewRegistry()
	RegisterTool(reg, mgr)

	out, err := reg.Get("web_search").Handler(context.Background(), "latest spacex launch")
	if err != nil {
		t.Fatalf("web_search: %v", err)
	}
	if !strings.Contains(out, "1. [The Go Programming Language]") {
		t.Errorf("output = %q", out)
	}

	if _, err := reg.Get("web_search").Handler(context.Background(), "   "); err == nil {
		t.Error("expected error for empty query")
	}
}
