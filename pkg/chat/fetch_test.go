package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractTextStripsScriptsAndStyles(t *testing.T) {
	html := `<html><head><title>T</title><style>body{color:red}</style></head>
<body><script>alert(1)</script><p>Hello   world</p><noscript>js off</noscript></body></html>`

	text, err := ExtractText(html)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", text)
	}
}

func TestExtractTextCapsLength(t *testing.T) {
	body := "<html><body>" + strings.Repeat("a", MaxPageContent*2) + "</body></html>"
	text, err := ExtractText(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(text) != MaxPageContent {
		t.Fatalf("expected %d chars, got %d", MaxPageContent, len(text))
	}
}

func TestFetchPageText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>  My Page  </title></head><body><p>some content</p></body></html>`))
	}))
	defer ts.Close()

	f := NewFetcher()
	title, text, err := f.FetchPageText(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if title != "My Page" {
		t.Fatalf("expected title %q, got %q", "My Page", title)
	}
	if text != "some content" {
		t.Fatalf("expected text %q, got %q", "some content", text)
	}
}

func TestFetchPageTextErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	f := NewFetcher()
	_, _, err := f.FetchPageText(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected an error for HTTP 404")
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if !strings.Contains(ferr.Reason, "404") {
		t.Fatalf("expected status in reason, got %q", ferr.Reason)
	}
}
