/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// PromptText renders the model as schema context for the LLM prompt.
// budget is a character budget; zero or negative means unlimited. When the
// full rendering exceeds the budget, tables are kept in order of lexical
// overlap with the question so the most relevant ones survive. A rendering
// that fits the budget is never truncated.
func (m *Model) PromptText(budget int, question string) string {
	blocks := make([]string, len(m.Tables))
	total := 0
	for i := range m.Tables {
		blocks[i] = renderTable(&m.Tables[i])
		total += len(blocks[i])
	}

	if budget <= 0 || total <= budget {
		return strings.Join(blocks, "")
	}

	// Over budget: rank tables by overlap with the question, keeping the
	// original order among equally-ranked tables.
	type ranked struct {
		index int
		score int
	}
	order := make([]ranked, len(m.Tables))
	terms := questionTerms(question)
	for i := range m.Tables {
		order[i] = ranked{index: i, score: relevance(&m.Tables[i], terms)}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].score > order[b].score
	})

	keep := make([]bool, len(m.Tables))
	used := 0
	for i, r := range order {
		if used+len(blocks[r.index]) > budget && i > 0 {
			continue
		}
		keep[r.index] = true
		used += len(blocks[r.index])
	}

	var sb strings.Builder
	for i, block := range blocks {
		if keep[i] {
			sb.WriteString(block)
		}
	}
	return sb.String()
}

func renderTable(t *Table) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(t.Name)
	if t.RowEstimate >= 0 {
		sb.WriteString(fmt.Sprintf(" (~%d rows)", t.RowEstimate))
	}
	sb.WriteString("\n  Columns:\n")

	for _, col := range t.Columns {
		sb.WriteString(fmt.Sprintf("    - %s (%s)", col.Name, col.DataType))
		if col.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		if col.Nullable {
			sb.WriteString(" NULL")
		}
		if col.ForeignKey {
			sb.WriteString(" -> references " + col.References)
			if col.SelfReferential {
				sb.WriteString(" (self)")
			}
			if col.Unresolved {
				sb.WriteString(" (unresolved)")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// questionTerms lowercases and splits the question into word tokens.
func questionTerms(question string) map[string]bool {
	terms := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len(word) > 1 {
			terms[word] = true
			terms[singular(word)] = true
		}
	}
	return terms
}

// relevance counts how many of the table's identifiers overlap the
// question terms. Table name matches weigh more than column matches.
func relevance(t *Table, terms map[string]bool) int {
	score := 0
	for _, part := range splitIdent(t.Name) {
		if terms[part] || terms[singular(part)] {
			score += 3
		}
	}
	for _, col := range t.Columns {
		for _, part := range splitIdent(col.Name) {
			if terms[part] || terms[singular(part)] {
				score++
			}
		}
	}
	return score
}

// splitIdent breaks an identifier on underscores and dots.
func splitIdent(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '.'
	})
}

// singular trims a plural 's' so "users" matches "user" in questions.
func singular(word string) string {
	if len(word) > 2 && strings.HasSuffix(word, "s") {
		return word[:len(word)-1]
	}
	return word
}
