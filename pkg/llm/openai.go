package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

// openAIProvider speaks the chat-completions wire format. It doubles as
// the "custom" provider, which points the same shape at a user-supplied
// endpoint and makes the API key optional (self-hosted backends often
// don't need one).
type openAIProvider struct {
	name     string
	apiKey   string
	model    string
	endpoint string
	client   HTTPClient
}

func newOpenAI(cfg Config) (*openAIProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &ProviderError{Provider: "openai", Reason: "no API key configured (set llm.api_key)"}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIProvider{
		name:     "openai",
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   cfg.HTTPClient,
	}, nil
}

func newCustom(cfg Config) (*openAIProvider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, &ProviderError{Provider: "custom", Reason: "custom provider requires an endpoint (set llm.endpoint)"}
	}
	return &openAIProvider{
		name:     "custom",
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		endpoint: endpoint,
		client:   cfg.HTTPClient,
	}, nil
}

func (p *openAIProvider) Name() string { return p.name }

type openAIChatRequest struct {
	Model    string          `json:"model,omitempty"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *openAIProvider) Send(ctx context.Context, message, pageContext string) (string, error) {
	reqBody := openAIChatRequest{Model: p.model}
	if pageContext != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: withContext(pageContext)})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: message})

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Reason: err.Error()}
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, status, err := postJSON(ctx, p.client, p.name, p.endpoint, body, headers)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		reason := gjson.Get(respBody, "error.message").Str
		if reason == "" {
			reason = "upstream returned HTTP " + itoa(status)
		}
		return "", &ProviderError{Provider: p.name, Reason: reason}
	}

	content := gjson.Get(respBody, "choices.0.message.content").Str
	if strings.TrimSpace(content) == "" {
		return "", &ProviderError{Provider: p.name, Reason: "response contained no candidate output"}
	}
	return content, nil
}
