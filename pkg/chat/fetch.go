package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/retrace-dev/retrace/internal/utils"
)

// MaxPageContent caps the extracted text attached to a transcript.
const MaxPageContent = 10000

const fetchUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:83.0) Gecko/20100101 Firefox/83.0"

// FetchError wraps a failed page-content retrieval. It is surfaced inline
// in the chat so the user can retry; it never aborts the chat flow.
type FetchError struct {
	URL    string
	Reason string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Reason)
}

// Fetcher retrieves and cleans page content.
type Fetcher struct {
	client *retryablehttp.Client
}

func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &Fetcher{client: client}
}

// FetchPageText GETs the page and returns its title and visible text,
// capped at MaxPageContent characters.
func (f *Fetcher) FetchPageText(ctx context.Context, pageURL string) (title, text string, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", &FetchError{URL: pageURL, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", &FetchError{URL: pageURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", "", &FetchError{URL: pageURL, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &FetchError{URL: pageURL, Reason: err.Error()}
	}

	title = extractTitle(string(body))
	text, err = ExtractText(string(body))
	if err != nil {
		return title, "", &FetchError{URL: pageURL, Reason: err.Error()}
	}
	utils.Log.Debugf("fetched %s: title=%q, %d chars of text", pageURL, title, len(text))
	return title, text, nil
}

// ExtractText pulls the visible text out of an HTML document, dropping
// script, style and noscript content and collapsing whitespace.
func ExtractText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var root *goquery.Selection
	if body := doc.Find("body"); body.Length() > 0 {
		root = body
	} else {
		root = doc.Selection
	}

	text := collapseWhitespace(root.Text())
	if len(text) > MaxPageContent {
		text = text[:MaxPageContent]
	}
	return text, nil
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')
				space = true
			}
			continue
		}
		b.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(b.String())
}

func extractTitle(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}
	title, _ := findTitle(doc)
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", ""))
}

func findTitle(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := findTitle(c); ok {
			return result, ok
		}
	}
	return "", false
}
