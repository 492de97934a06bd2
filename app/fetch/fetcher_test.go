package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const feedBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Example</title></channel></rss>`

func TestFetchSendsHeaders(t *testing.T) {
	var userAgent, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "Test Agent/1.0", 0)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if userAgent != "Test Agent/1.0" {
		t.Errorf("Expected user agent 'Test Agent/1.0', got '%s'", userAgent)
	}
	if !strings.Contains(accept, "application/rss+xml") {
		t.Errorf("Expected Accept header to list feed types, got '%s'", accept)
	}
	if string(result.Body) != feedBody {
		t.Errorf("Expected body to be returned unchanged, got: %s", result.Body)
	}
	if result.Discovered {
		t.Error("Expected Discovered to be false")
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(server.Client(), "test", 0).Fetch(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got: %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", statusErr.Code)
	}
}

func TestFetchBodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	_, err := NewFetcher(server.Client(), "test", 1024).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Expected ErrBodyTooLarge, got: %v", err)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	fetcher := NewFetcher(nil, "test", 0)

	for _, u := range []string{"", "not a url", "ftp://example.com/feed", "/relative/path"} {
		if _, err := fetcher.Fetch(context.Background(), u); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Expected ErrInvalidURL for %q, got: %v", u, err)
		}
	}
}

func TestFetchDecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<rss><channel><title>Caf\xe9</title></channel></rss>"))
	}))
	defer server.Close()

	result, err := NewFetcher(server.Client(), "test", 0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	body := string(result.Body)
	if !strings.Contains(body, "Café") {
		t.Errorf("Expected body decoded to UTF-8, got: %s", body)
	}
	if !strings.Contains(body, `encoding="utf-8"`) {
		t.Errorf("Expected XML declaration rewritten to utf-8, got: %s", body)
	}
}

func TestFetchAutodiscovery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><head>
<link rel="stylesheet" href="/style.css">
<link rel="alternate" type="application/rss+xml" title="Feed" href="/feed.xml">
</head><body>Hello</body></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedBody))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result, err := NewFetcher(server.Client(), "test", 0).Fetch(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !result.Discovered {
		t.Error("Expected Discovered to be true")
	}
	if result.URL != server.URL+"/feed.xml" {
		t.Errorf("Expected URL '%s/feed.xml', got '%s'", server.URL, result.URL)
	}
	if string(result.Body) != feedBody {
		t.Errorf("Expected feed body, got: %s", result.Body)
	}
}

func TestFetchHTMLWithoutFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Nothing</title></head></html>`))
	}))
	defer server.Close()

	result, err := NewFetcher(server.Client(), "test", 0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Discovered {
		t.Error("Expected Discovered to be false")
	}
	if !strings.Contains(string(result.Body), "Nothing") {
		t.Errorf("Expected page body to be returned, got: %s", result.Body)
	}
}

func TestDiscoverFeedURL(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
		ok   bool
	}{
		{
			name: "relative rss link",
			page: `<html><head><link rel="alternate" type="application/rss+xml" href="feed.xml"></head></html>`,
			want: "https://example.com/blog/feed.xml",
			ok:   true,
		},
		{
			name: "absolute atom link",
			page: `<html><head><link rel="alternate" type="application/atom+xml" href="https://feeds.example.com/atom"></head></html>`,
			want: "https://feeds.example.com/atom",
			ok:   true,
		},
		{
			name: "non-feed alternate ignored",
			page: `<html><head><link rel="alternate" hreflang="fr" type="text/html" href="/fr/"></head></html>`,
			ok:   false,
		},
		{
			name: "empty href skipped",
			page: `<html><head><link rel="alternate" type="application/rss+xml" href=""><link rel="alternate" type="application/atom+xml" href="/atom.xml"></head></html>`,
			want: "https://example.com/atom.xml",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := discoverFeedURL([]byte(tt.page), "https://example.com/blog/")
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestToUTF8(t *testing.T) {
	t.Run("utf-8 untouched", func(t *testing.T) {
		body := []byte(`<?xml version="1.0" encoding="UTF-8"?><rss/>`)
		got, err := toUTF8(body, "application/xml; charset=utf-8")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(body) {
			t.Errorf("Expected body unchanged, got: %s", got)
		}
	})

	t.Run("header charset wins", func(t *testing.T) {
		body := []byte("<?xml version=\"1.0\" encoding=\"utf-8\"?><title>\xe9t\xe9</title>")
		got, err := toUTF8(body, "text/xml; charset=windows-1252")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(got), "été") {
			t.Errorf("Expected windows-1252 decoding, got: %s", got)
		}
	})

	t.Run("unknown charset untouched", func(t *testing.T) {
		body := []byte(`<?xml version="1.0" encoding="x-unknown"?><rss/>`)
		got, err := toUTF8(body, "")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(body) {
			t.Errorf("Expected body unchanged, got: %s", got)
		}
	})
}

func TestFetchPageSkipsAutodiscovery(t *testing.T) {
	page := `<html><head><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head><body>Article</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	result, err := NewFetcher(server.Client(), "test", 0).FetchPage(context.Background(), server.URL+"/post")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Discovered || string(result.Body) != page {
		t.Errorf("Expected the page itself, got: %s", result.Body)
	}
}
