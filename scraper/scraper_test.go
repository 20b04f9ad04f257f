package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"fukuyama-landprice/config"
	"fukuyama-landprice/utils"
)

type fakeRenderer struct {
	calls    atomic.Int32
	failures int32
	text     string
}

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return "", errors.New("temporary failure")
	}
	return f.text + " from " + url, nil
}

func testConfig() *config.Config {
	return &config.Config{MaxConcurrency: 2, RateLimitMs: 0, MaxRetries: 3}
}

func TestExtractPageText(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "pre block",
			html: `<html><body><nav>menu</nav><pre>{"DistrictName":"曙町"},</pre></body></html>`,
			want: `{"DistrictName":"曙町"},`,
		},
		{
			name: "multiple pre blocks",
			html: `<html><body><pre>a</pre><pre>b</pre></body></html>`,
			want: "a\nb",
		},
		{
			name: "body fallback",
			html: `<html><body>  <p>plain text</p>  </body></html>`,
			want: "plain text",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractPageText(tc.html)
			if err != nil {
				t.Fatalf("ExtractPageText: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/data.txt": true,
		"HTTP://example.com":           true,
		"./data/transactions.txt":      false,
		"/tmp/http.txt":                false,
	}
	for in, want := range cases {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoaderReadsFilesAndSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("\ufeffalpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("beta"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(testConfig(), utils.NewNopLogger())
	docs, err := l.Load(context.Background(), []string{a, b, a})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Text != "alpha" || docs[1].Text != "beta" {
		t.Errorf("unexpected documents %+v", docs)
	}
}

func TestLoaderReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")
	if err := os.WriteFile(ok, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(testConfig(), utils.NewNopLogger())
	docs, err := l.Load(context.Background(), []string{filepath.Join(dir, "missing.txt"), ok})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(docs) != 1 || docs[0].Location != ok {
		t.Errorf("expected the readable file to be returned, got %+v", docs)
	}
}

func TestLoaderRetriesRemote(t *testing.T) {
	r := &fakeRenderer{failures: 2, text: "page"}
	cfg := testConfig()
	l := NewLoader(cfg, utils.NewNopLogger()).WithRenderer(r)
	l.retry.BaseDelay = 0

	docs, err := l.Load(context.Background(), []string{"https://example.com/x"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || !strings.HasPrefix(docs[0].Text, "page") {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if got := r.calls.Load(); got != 3 {
		t.Errorf("expected 3 render calls, got %d", got)
	}
}
