package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultGeminiModel        = "gemini-1.5-flash"
	defaultGeminiEndpointBase = "https://generativelanguage.googleapis.com/v1beta/models/"
)

type geminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   HTTPClient
}

func newGemini(cfg Config) (*geminiProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &ProviderError{Provider: "gemini", Reason: "no API key configured (set llm.api_key)"}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultGeminiEndpointBase + model + ":generateContent"
	}
	return &geminiProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   cfg.HTTPClient,
	}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func (p *geminiProvider) Send(ctx context.Context, message, pageContext string) (string, error) {
	prompt := message
	if pageContext != "" {
		prompt = withContext(pageContext) + "\n\nUser question: " + message
	}
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: "gemini", Reason: err.Error()}
	}

	// Gemini authenticates via query parameter rather than a header.
	endpoint := p.endpoint + "?key=" + p.apiKey

	respBody, status, err := postJSON(ctx, p.client, "gemini", endpoint, body, nil)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		reason := gjson.Get(respBody, "error.message").Str
		if reason == "" {
			reason = "upstream returned HTTP " + itoa(status)
		}
		return "", &ProviderError{Provider: "gemini", Reason: reason}
	}

	content := gjson.Get(respBody, "candidates.0.content.parts.0.text").Str
	if strings.TrimSpace(content) == "" {
		return "", &ProviderError{Provider: "gemini", Reason: "response contained no candidate output"}
	}
	return content, nil
}
