/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import "net/http"

const (
	openRouterBaseURL      = "https://openrouter.ai/api/v1"
	openRouterDefaultModel = "anthropic/claude-sonnet-4.5"
)

// OpenRouter speaks the OpenAI chat completions format behind its own
// endpoint and model namespace.
func newOpenRouter(opts Options) *openAIProvider {
	p := &openAIProvider{
		name:    "openrouter",
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		client:  &http.Client{},
	}
	if p.baseURL == "" {
		p.baseURL = openRouterBaseURL
	}
	if p.model == "" {
		p.model = openRouterDefaultModel
	}
	return p
}
