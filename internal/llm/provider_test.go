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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewProviderValidation(t *testing.T) {
	t.Run("keyed providers require a key", func(t *testing.T) {
		for _, name := range []string{"anthropic", "openai", "gemini", "openrouter"} {
			_, err := New(name, Options{})
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Errorf("New(%q) without key: got %v, want *AuthError", name, err)
			}
		}
	})

	t.Run("local requires a url", func(t *testing.T) {
		if _, err := New("local", Options{}); err == nil {
			t.Error("expected error for local provider without URL")
		}
		if _, err := New("local", Options{BaseURL: "http://localhost:11434"}); err != nil {
			t.Errorf("local with URL: %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := New("cohere", Options{APIKey: "x"}); err == nil {
			t.Error("expected error for unsupported provider")
		}
	})
}

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}

		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContentBlock{{Type: "text", Text: "SELECT 1"}},
		})
	}))
	defer server.Close()

	p, err := New("anthropic", Options{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Complete(context.Background(), "count the users")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "SELECT 1" {
		t.Errorf("Complete = %q", got)
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "SELECT COUNT(*) FROM users"}}},
		})
	}))
	defer server.Close()

	p, err := New("openai", Options{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Complete(context.Background(), "count the users")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "SELECT COUNT(*) FROM users" {
		t.Errorf("Complete = %q", got)
	}
}

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("credential material in query string: %q", r.URL.RawQuery)
		}

		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "SELECT name FROM users"}}}},
			},
		})
	}))
	defer server.Close()

	p, err := New("gemini", Options{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Complete(context.Background(), "list names")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "SELECT name FROM users" {
		t.Errorf("Complete = %q", got)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{
			name:   "401 maps to AuthError",
			status: http.StatusUnauthorized,
			check: func(err error) bool {
				var e *AuthError
				return errors.As(err, &e)
			},
		},
		{
			name:   "403 maps to AuthError",
			status: http.StatusForbidden,
			check: func(err error) bool {
				var e *AuthError
				return errors.As(err, &e)
			},
		},
		{
			name:   "429 maps to RateLimitError",
			status: http.StatusTooManyRequests,
			check: func(err error) bool {
				var e *RateLimitError
				return errors.As(err, &e)
			},
		},
		{
			name:   "500 maps to UnavailableError",
			status: http.StatusInternalServerError,
			check: func(err error) bool {
				var e *UnavailableError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			p, err := New("openai", Options{APIKey: "k", BaseURL: server.URL})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			_, err = p.Complete(context.Background(), "q")
			if err == nil || !tt.check(err) {
				t.Errorf("got %v (%T)", err, err)
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer server.Close()

	p, err := New("openai", Options{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Complete(context.Background(), "q")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Errorf("got %v (%T), want *MalformedResponseError", err, err)
	}
}

func TestTransportErrorsOmitCredentials(t *testing.T) {
	// Transport errors quote the request URL, so a key placed there
	// would surface in the message the UI prints.
	const secret = "sk-leaky-credential"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	for _, name := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		p, err := New(name, Options{APIKey: secret, BaseURL: url})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		_, err = p.Complete(context.Background(), "q")
		if err == nil {
			t.Fatalf("%s: expected a transport error", name)
		}
		if strings.Contains(err.Error(), secret) {
			t.Errorf("%s: API key leaked into error: %v", name, err)
		}
	}
}

func TestUnreachableServer(t *testing.T) {
	// Connection refused: grab a port from a server we immediately close.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p, err := New("local", Options{BaseURL: url})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Complete(context.Background(), "q")
	var unavail *UnavailableError
	if !errors.As(err, &unavail) {
		t.Errorf("got %v (%T), want *UnavailableError", err, err)
	}
}
