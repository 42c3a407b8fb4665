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
	"net/http"
	"strings"
)

const localDefaultModel = "llama3"

// newLocal targets a self-hosted OpenAI-compatible server (Ollama,
// llama.cpp, vLLM). No credential required.
func newLocal(opts Options) *openAIProvider {
	p := &openAIProvider{
		name:    "local",
		baseURL: strings.TrimSuffix(opts.BaseURL, "/") + "/v1",
		model:   opts.Model,
		client:  &http.Client{},
	}
	if p.model == "" {
		p.model = localDefaultModel
	}
	return p
}
