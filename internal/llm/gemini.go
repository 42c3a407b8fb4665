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
	"fmt"
	"net/http"
	"strings"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.0-flash"
)

type geminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newGemini(opts Options) *geminiProvider {
	p := &geminiProvider{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		client:  &http.Client{},
	}
	if p.baseURL == "" {
		p.baseURL = geminiBaseURL
	}
	if p.model == "" {
		p.model = geminiDefaultModel
	}
	return p
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	// The key travels in a header, never the URL: transport errors quote
	// the full URL and would otherwise leak the credential.
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	headers := map[string]string{"x-goog-api-key": p.apiKey}
	var resp geminiResponse
	if err := postJSON(ctx, p.client, p.Name(), url, headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &MalformedResponseError{Provider: p.Name(), Raw: "no candidates in response"}
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}
