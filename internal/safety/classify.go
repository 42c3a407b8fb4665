/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package safety

import (
	"fmt"
	"strings"
	"unicode"
)

// Class is the safety classification of a statement.
type Class int

const (
	// ClassReadOnly covers SELECT-class statements that cannot change data.
	ClassReadOnly Class = iota
	// ClassMutating covers everything else.
	ClassMutating
)

func (c Class) String() string {
	if c == ClassReadOnly {
		return "read-only"
	}
	return "mutating"
}

// PolicyViolation reports a statement the gate refused to execute.
type PolicyViolation struct {
	Query  string
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Reason)
}

// Statement openers that can begin a read-only query. WITH and EXPLAIN are
// only read-only when no mutating keyword appears in the body, which the
// token scan below checks.
var readOnlyOpeners = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"EXPLAIN":  true,
	"SHOW":     true,
	"DESCRIBE": true,
	"VALUES":   true,
}

// Keywords that mark a statement as mutating wherever they appear outside
// string literals and comments. A generated column named "update" can
// misclassify, but the error is on the safe side.
var mutatingKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"REPLACE":  true,
	"UPSERT":   true,
	"CREATE":   true,
	"ALTER":    true,
	"DROP":     true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"VACUUM":   true,
	"REINDEX":  true,
	"ATTACH":   true,
	"DETACH":   true,
	"PRAGMA":   true,
	"SET":      true,
	"CALL":     true,
	"EXEC":     true,
	"EXECUTE":  true,
	"COPY":     true,
	"INTO":     true, // SELECT ... INTO writes a new table
	"LOCK":     true,
}

// Classify strips comments and string literals, rejects multi-statement
// input outright, and classifies the single remaining statement. Prefix
// matching alone is trivially bypassed ("SELECT 1; DROP TABLE t"), so the
// whole token stream is inspected.
func Classify(query string) (Class, error) {
	stripped := stripLiteralsAndComments(query)

	statements := 0
	for _, part := range strings.Split(stripped, ";") {
		if strings.TrimSpace(part) != "" {
			statements++
		}
	}
	switch {
	case statements == 0:
		return ClassMutating, &PolicyViolation{Query: query, Reason: "empty statement"}
	case statements > 1:
		return ClassMutating, &PolicyViolation{Query: query, Reason: "multiple statements are not allowed"}
	}

	tokens := wordTokens(stripped)
	if len(tokens) == 0 {
		return ClassMutating, &PolicyViolation{Query: query, Reason: "empty statement"}
	}

	if !readOnlyOpeners[tokens[0]] {
		return ClassMutating, nil
	}
	for _, tok := range tokens {
		if mutatingKeywords[tok] {
			return ClassMutating, nil
		}
	}
	return ClassReadOnly, nil
}

// stripLiteralsAndComments blanks out string literals, quoted identifiers,
// line comments, and block comments so keyword scanning and statement
// splitting cannot be fooled by quoted text.
func stripLiteralsAndComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\'' || s[i] == '"' || s[i] == '`':
			quote := s[i]
			i++
			for i < len(s) {
				if s[i] == quote {
					// Doubled quote is an escaped quote inside the literal.
					if i+1 < len(s) && s[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteByte(' ')

		case s[i] == '[': // MSSQL bracketed identifier
			for i < len(s) && s[i] != ']' {
				i++
			}
			if i < len(s) {
				i++
			}
			out.WriteByte(' ')

		case strings.HasPrefix(s[i:], "--"):
			for i < len(s) && s[i] != '\n' {
				i++
			}

		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end == -1 {
				i = len(s)
			} else {
				i += end + 4
			}
			out.WriteByte(' ')

		default:
			out.WriteByte(s[i])
			i++
		}
	}
	return out.String()
}

// wordTokens returns the uppercase word tokens of a stripped statement.
func wordTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToUpper(f))
	}
	return tokens
}
