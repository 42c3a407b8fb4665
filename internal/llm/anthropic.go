/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicDefaultModel = "claude-sonnet-4-5"
	anthropicVersion      = "2023-06-01"
)

type anthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newAnthropic(opts Options) *anthropicProvider {
	p := &anthropicProvider{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		client:  &http.Client{},
	}
	if p.baseURL == "" {
		p.baseURL = anthropicBaseURL
	}
	if p.model == "" {
		p.model = anthropicDefaultModel
	}
	return p
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := claudeRequest{
		Model:     p.model,
		MaxTokens: 2048,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	var resp claudeResponse
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", &MalformedResponseError{Provider: p.Name(), Raw: "empty content"}
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	ID      string               `json:"id"`
	Type    string               `json:"type"`
	Role    string               `json:"role"`
	Content []claudeContentBlock `json:"content"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
