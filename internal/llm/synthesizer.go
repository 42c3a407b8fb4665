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
	"errors"
	"fmt"
	"time"

	"dbchat/internal/database"
	"dbchat/internal/schema"
)

const (
	maxAttempts    = 3
	initialBackoff = 1 * time.Second

	// defaultPromptBudget bounds the schema context in characters so the
	// prompt stays inside the model's context window.
	defaultPromptBudget = 24000
)

// Synthesizer turns a natural-language question into a single SQL statement
// using a completion provider.
type Synthesizer struct {
	provider     Provider
	promptBudget int

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewSynthesizer creates a synthesizer over the given provider.
func NewSynthesizer(p Provider) *Synthesizer {
	return &Synthesizer{
		provider:     p,
		promptBudget: defaultPromptBudget,
		sleep:        time.Sleep,
	}
}

// Generate builds the prompt, calls the provider, and extracts exactly one
// SQL statement from the response. Transient provider failures (rate limit,
// unavailable) are retried up to maxAttempts with exponential backoff; auth
// failures and malformed responses surface immediately.
func (s *Synthesizer) Generate(ctx context.Context, question string, model *schema.Model) (string, error) {
	prompt := buildPrompt(question, model, s.promptBudget)

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", &UnavailableError{Provider: s.provider.Name(), Err: ctx.Err()}
			default:
			}
			s.sleep(backoff)
			backoff *= 2
		}

		raw, err := s.provider.Complete(ctx, prompt)
		if err != nil {
			if retryable(err) {
				lastErr = err
				continue
			}
			return "", err
		}

		sql := ExtractSQL(raw)
		if sql == "" {
			return "", &MalformedResponseError{Provider: s.provider.Name(), Raw: raw}
		}
		return sql, nil
	}

	return "", lastErr
}

// retryable reports whether an error class warrants another attempt.
func retryable(err error) bool {
	var rate *RateLimitError
	var unavail *UnavailableError
	return errors.As(err, &rate) || errors.As(err, &unavail)
}

func buildPrompt(question string, model *schema.Model, budget int) string {
	return fmt.Sprintf(`You are a %s expert. Given the following database schema and a natural language query, generate a SQL query that answers the question.

Database Schema:
%s

Natural Language Query: %s

Requirements:
1. Generate ONLY the SQL query, no explanations or markdown formatting
2. Use proper %s syntax
3. Consider the column types and table relationships
4. Use appropriate JOINs when needed
5. Include proper WHERE clauses, GROUP BY, ORDER BY as needed
6. Use meaningful column aliases
7. Do NOT include semicolons at the end
8. Return ONLY the SQL query text, nothing else

SQL Query:`, dialectName(model.Engine), model.PromptText(budget, question), question, dialectName(model.Engine))
}

func dialectName(t database.Type) string {
	switch t {
	case database.TypeSQLite:
		return "SQLite"
	case database.TypePostgres:
		return "PostgreSQL"
	case database.TypeMySQL:
		return "MySQL"
	case database.TypeMSSQL:
		return "Microsoft SQL Server"
	}
	return "SQL"
}
