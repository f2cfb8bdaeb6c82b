// Package llm dispatches chat messages to one of several LLM providers.
// Providers differ only in wire shape; each implementation normalizes its
// vendor's request/response format to the same Send contract so the chat
// flow never cares which backend is configured.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config selects and parameterizes a provider. Endpoint is required for
// the custom provider and optional everywhere else (it overrides the
// vendor default, which is handy for proxies and tests).
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient HTTPClient
}

// HTTPClient is the subset of http.Client the providers need; tests swap
// in fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider is the normalized gateway contract: one message in, one
// assistant reply out. pageContext, when non-empty, is the fetched page
// text the reply should be grounded on.
type Provider interface {
	Name() string
	Send(ctx context.Context, message, pageContext string) (string, error)
}

// ProviderError is any LLM call failure: missing credential, non-success
// upstream status, or a structurally unexpected payload. The reason is
// meant to be shown to the user verbatim.
type ProviderError struct {
	Provider string
	Reason   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// New builds the provider selected by cfg. Adding a vendor means adding
// one implementation here; call sites stay untouched.
func New(cfg Config) (Provider, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Provider)) {
	case "", "openai":
		return newOpenAI(cfg)
	case "anthropic":
		return newAnthropic(cfg)
	case "gemini":
		return newGemini(cfg)
	case "custom":
		return newCustom(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// postJSON issues the request and returns the raw response body together
// with the status code. Transport failures come back as ProviderError.
func postJSON(ctx context.Context, client HTTPClient, name, endpoint string, body []byte, headers map[string]string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, &ProviderError{Provider: name, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, &ProviderError{Provider: name, Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &ProviderError{Provider: name, Reason: err.Error()}
	}
	return string(respBody), resp.StatusCode, nil
}

const contextPreamble = "You are answering questions about a web page the user visited. Page content:\n\n"

// withContext folds the fetched page text into a system-style context
// block for providers that take plain strings.
func withContext(pageContext string) string {
	return contextPreamble + pageContext
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
