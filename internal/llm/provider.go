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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// requestTimeout bounds every provider call.
const requestTimeout = 30 * time.Second

// Provider is a completion backend: prompt in, raw text out. One
// implementation per vendor keeps vendor branching out of the synthesizer.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures a provider built by New.
type Options struct {
	APIKey  string
	Model   string // empty selects the vendor default
	BaseURL string // empty selects the vendor default; required for "local"
}

// New builds the named provider. A missing credential for a keyed vendor is
// an AuthError up front rather than a failed call later.
func New(name string, opts Options) (Provider, error) {
	switch name {
	case "anthropic":
		if opts.APIKey == "" {
			return nil, &AuthError{Provider: name, Message: "API key not set"}
		}
		return newAnthropic(opts), nil
	case "openai":
		if opts.APIKey == "" {
			return nil, &AuthError{Provider: name, Message: "API key not set"}
		}
		return newOpenAI(opts), nil
	case "gemini":
		if opts.APIKey == "" {
			return nil, &AuthError{Provider: name, Message: "API key not set"}
		}
		return newGemini(opts), nil
	case "openrouter":
		if opts.APIKey == "" {
			return nil, &AuthError{Provider: name, Message: "API key not set"}
		}
		return newOpenRouter(opts), nil
	case "local":
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("local provider requires an endpoint URL")
		}
		return newLocal(opts), nil
	}
	return nil, fmt.Errorf("unsupported provider: %s", name)
}

// postJSON sends a JSON request and decodes the JSON response, mapping HTTP
// failure classes onto the provider error taxonomy.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, reqBody, respBody any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &UnavailableError{Provider: provider, Err: fmt.Errorf("request timed out after %s", requestTimeout)}
		}
		return &UnavailableError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UnavailableError{Provider: provider, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Provider: provider, Message: httpErrorDetail(resp.StatusCode, body)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, Message: httpErrorDetail(resp.StatusCode, body)}
	default:
		return &UnavailableError{Provider: provider, Err: fmt.Errorf("%s", httpErrorDetail(resp.StatusCode, body))}
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return &MalformedResponseError{Provider: provider, Raw: string(body)}
	}
	return nil
}

func httpErrorDetail(status int, body []byte) string {
	detail := string(body)
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	return fmt.Sprintf("API returned status %d: %s", status, detail)
}
