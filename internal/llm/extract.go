/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import "strings"

// ExtractSQL pulls a single SQL statement out of an LLM response, removing
// markdown fences, comments, and surrounding prose. Returns "" when no
// statement can be found.
func ExtractSQL(input string) string {
	input = strings.TrimSpace(input)

	// Strip markdown code fences.
	if after, found := strings.CutPrefix(input, "```sql"); found {
		input = after
	} else if after, found := strings.CutPrefix(input, "```"); found {
		input = after
	}
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	input = scrubComments(input)

	lines := strings.Split(input, "\n")
	var sqlLines []string
	foundSQL := false
	hitSemicolon := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// A semicolon ends the first statement; anything after is dropped.
		if before, found := cutAtSemicolon(line); found {
			line = strings.TrimSpace(before)
			hitSemicolon = true
		}

		upperLine := strings.ToUpper(line)
		isSQLStart := strings.HasPrefix(upperLine, "SELECT") ||
			strings.HasPrefix(upperLine, "INSERT") ||
			strings.HasPrefix(upperLine, "UPDATE") ||
			strings.HasPrefix(upperLine, "DELETE") ||
			strings.HasPrefix(upperLine, "WITH") ||
			strings.HasPrefix(upperLine, "CREATE") ||
			strings.HasPrefix(upperLine, "ALTER") ||
			strings.HasPrefix(upperLine, "DROP") ||
			strings.HasPrefix(upperLine, "EXPLAIN")

		if isSQLStart {
			foundSQL = true
		}

		if foundSQL && line != "" {
			// Explanatory prose after the statement ends extraction.
			if !isSQLStart && (strings.HasPrefix(upperLine, "THIS ") ||
				strings.HasPrefix(upperLine, "THE ") ||
				strings.HasPrefix(upperLine, "WILL ") ||
				strings.HasPrefix(upperLine, "RETURNS ") ||
				strings.HasPrefix(upperLine, "NOTE:") ||
				strings.HasPrefix(upperLine, "EXPLANATION:")) {
				break
			}
			sqlLines = append(sqlLines, line)
		}

		if hitSemicolon {
			break
		}
	}

	result := strings.Join(sqlLines, " ")
	result = strings.TrimSuffix(strings.TrimSpace(result), "```")

	// Collapse runs of whitespace.
	return strings.Join(strings.Fields(result), " ")
}

// scrubComments removes line and block comments, leaving string literals
// and quoted identifiers intact so quoted text containing "--" or "/*"
// survives.
func scrubComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\'' || s[i] == '"' || s[i] == '`':
			quote := s[i]
			out.WriteByte(s[i])
			i++
			for i < len(s) {
				out.WriteByte(s[i])
				if s[i] == quote {
					// Doubled quote is an escaped quote inside the literal.
					if i+1 < len(s) && s[i+1] == quote {
						out.WriteByte(s[i+1])
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}

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

// cutAtSemicolon returns the text before the first semicolon that sits
// outside string literals and quoted identifiers.
func cutAtSemicolon(s string) (string, bool) {
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\'' || s[i] == '"' || s[i] == '`':
			quote := s[i]
			i++
			for i < len(s) {
				if s[i] == quote {
					if i+1 < len(s) && s[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}

		case s[i] == ';':
			return s[:i], true

		default:
			i++
		}
	}
	return s, false
}
