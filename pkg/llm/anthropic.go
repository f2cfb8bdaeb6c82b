package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultAnthropicModel    = "claude-3-5-haiku-latest"
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
	anthropicMaxTokens       = 1024
)

type anthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   HTTPClient
}

func newAnthropic(cfg Config) (*anthropicProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &ProviderError{Provider: "anthropic", Reason: "no API key configured (set llm.api_key)"}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultAnthropicEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   cfg.HTTPClient,
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *anthropicProvider) Send(ctx context.Context, message, pageContext string) (string, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: message}},
	}
	if pageContext != "" {
		reqBody.System = withContext(pageContext)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Reason: err.Error()}
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}

	respBody, status, err := postJSON(ctx, p.client, "anthropic", p.endpoint, body, headers)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		reason := gjson.Get(respBody, "error.message").Str
		if reason == "" {
			reason = "upstream returned HTTP " + itoa(status)
		}
		return "", &ProviderError{Provider: "anthropic", Reason: reason}
	}

	content := gjson.Get(respBody, "content.0.text").Str
	if strings.TrimSpace(content) == "" {
		return "", &ProviderError{Provider: "anthropic", Reason: "response contained no candidate output"}
	}
	return content, nil
}
