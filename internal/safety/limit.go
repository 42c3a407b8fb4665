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
	"regexp"
	"strings"

	"dbchat/internal/database"
)

var (
	limitPattern      = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	fetchFirstPattern = regexp.MustCompile(`(?i)\bfetch\s+(first|next)\s+\d+`)
	topPattern        = regexp.MustCompile(`(?i)\bselect\s+(distinct\s+)?top\b`)
	selectPrefix      = regexp.MustCompile(`(?i)^select\b`)
	distinctPrefix    = regexp.MustCompile(`(?i)^select\s+distinct\b`)
)

// HasRowLimit reports whether the query already bounds its result size in
// the engine's dialect.
func HasRowLimit(query string, engine database.Type) bool {
	stripped := stripLiteralsAndComments(query)
	if engine == database.TypeMSSQL {
		return topPattern.MatchString(stripped) || fetchFirstPattern.MatchString(stripped)
	}
	return limitPattern.MatchString(stripped) || fetchFirstPattern.MatchString(stripped)
}

// InjectRowLimit adds an explicit row bound to a SELECT statement that
// lacks one. Statements the rewrite cannot handle safely (MSSQL queries
// starting with WITH, EXPLAIN plans) are returned unchanged; the executor's
// scan cap still bounds them.
func InjectRowLimit(query string, limit int, engine database.Type) string {
	if limit <= 0 || HasRowLimit(query, engine) {
		return query
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), "; \t\n")

	if engine == database.TypeMSSQL {
		// T-SQL requires DISTINCT before TOP.
		if m := distinctPrefix.FindString(trimmed); m != "" {
			return "SELECT DISTINCT TOP (" + fmt.Sprint(limit) + ")" + trimmed[len(m):]
		}
		if selectPrefix.MatchString(trimmed) {
			return "SELECT TOP (" + fmt.Sprint(limit) + ")" + trimmed[len("SELECT"):]
		}
		return query
	}

	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") || strings.HasPrefix(upper, "VALUES") {
		return trimmed + " LIMIT " + fmt.Sprint(limit)
	}
	return query
}
