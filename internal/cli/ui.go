/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"dbchat/internal/database"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// UI handles terminal output for the interactive session
type UI struct {
	noColor        bool
	RenderMarkdown bool
}

// NewUI creates a new UI instance
func NewUI(noColor bool, renderMarkdown bool) *UI {
	return &UI{
		noColor:        noColor,
		RenderMarkdown: renderMarkdown,
	}
}

// colorize applies color if colors are enabled
func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

// PrintWelcome prints the welcome banner
func (ui *UI) PrintWelcome() {
	banner := `
  _  _      DB Chat
 | || |     Ask your database questions in plain language
 |_||_|     Type /help for commands, /quit to leave
 (_)(_)
`
	fmt.Println(ui.colorize(ColorCyan, banner))
}

// GetPrompt returns the prompt string for readline
func (ui *UI) GetPrompt() string {
	return ui.colorize(ColorGreen+ColorBold, "You: ")
}

// PrintSystemMessage prints a system message
func (ui *UI) PrintSystemMessage(text string) {
	fmt.Println(ui.colorize(ColorYellow, "System: ") + text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	ui.ClearThinkingLine()
	fmt.Println(ui.colorize(ColorRed, "Error: ") + text)
}

// PrintSQL prints a generated SQL statement
func (ui *UI) PrintSQL(query string) {
	fmt.Println(ui.colorize(ColorGray, "SQL: "+query))
}

// PrintResult prints a query result as an aligned table, one row per
// line with column headers.
func (ui *UI) PrintResult(columns []string, rows [][]any, truncated bool) {
	ui.ClearThinkingLine()

	if len(columns) == 0 {
		ui.PrintSystemMessage("(no columns)")
		return
	}

	// Compute column widths from headers and cell values
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i := range columns {
			var text string
			if i < len(row) {
				text = formatCell(row[i])
			}
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	var sb strings.Builder
	for i, col := range columns {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(pad(col, widths[i]))
	}
	fmt.Println(ui.colorize(ColorBold, sb.String()))

	sb.Reset()
	for i := range columns {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", widths[i]))
	}
	fmt.Println(ui.colorize(ColorGray, sb.String()))

	for _, row := range cells {
		sb.Reset()
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(pad(cell, widths[i]))
		}
		fmt.Println(sb.String())
	}

	summary := fmt.Sprintf("(%d row%s)", len(rows), plural(len(rows)))
	if truncated {
		summary = fmt.Sprintf("(%d rows shown, more available - use /export for the full result)", len(rows))
	}
	fmt.Println(ui.colorize(ColorGray, summary))
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// PrintMarkdown renders markdown text to the terminal, falling back to
// plain text when rendering is disabled or fails.
func (ui *UI) PrintMarkdown(text string) {
	if ui.RenderMarkdown {
		var style string
		if ui.noColor {
			style = "notty"
		} else {
			style = "dark"
		}

		// Cap the width so tables stay readable on wide terminals
		width := ui.getTerminalWidth()
		if width > 120 {
			width = 120
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithStylePath(style),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			rendered, err := r.Render(text)
			if err == nil {
				fmt.Print(rendered)
				return
			}
		}
	}

	fmt.Print(text + "\n")
}

// PrintSeparator prints a separator line
func (ui *UI) PrintSeparator() {
	fmt.Println(ui.colorize(ColorGray, strings.Repeat("─", 80)))
}

// getTerminalWidth returns the terminal width, or 80 when unknown
func (ui *UI) getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 2 {
		return width - 2
	}
	return 80
}

// Database-themed action words for the thinking animation
var thinkingActions = []string{
	"Consulting the catalog",
	"Scanning the schema",
	"Joining the dots",
	"Indexing thoughts",
	"Planning the query",
	"Normalizing ideas",
	"Walking foreign keys",
	"Counting the rows",
	"Grouping by insight",
	"Committing to an answer",
}

func thinkingMaxWidth() int {
	maxWidth := 40
	for _, action := range thinkingActions {
		if width := len(action) + 5; width > maxWidth {
			maxWidth = width
		}
	}
	return maxWidth
}

// ClearThinkingLine clears the thinking animation line
func (ui *UI) ClearThinkingLine() {
	fmt.Print("\r" + strings.Repeat(" ", thinkingMaxWidth()) + "\r")
}

// ShowThinking displays an animated "thinking" indicator until done is
// closed or the context is canceled.
func (ui *UI) ShowThinking(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frameIndex := 0
	actionIndex := rand.Intn(len(thinkingActions))
	actionChangeCounter := 0
	maxWidth := thinkingMaxWidth()

	fmt.Print("\r" + ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, thinkingActions[actionIndex]) + "...")

	for {
		select {
		case <-done:
			ui.ClearThinkingLine()
			return
		case <-ctx.Done():
			ui.ClearThinkingLine()
			return
		case <-ticker.C:
			frameIndex = (frameIndex + 1) % len(frames)
			actionChangeCounter++

			// Change action text every 4 ticks (2 seconds)
			if actionChangeCounter >= 4 {
				actionIndex = rand.Intn(len(thinkingActions))
				actionChangeCounter = 0
			}

			msg := ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, thinkingActions[actionIndex]) + "..."
			if padding := maxWidth - len(thinkingActions[actionIndex]) - 5; padding > 0 {
				msg += strings.Repeat(" ", padding)
			}
			fmt.Print("\r" + msg)
		}
	}
}

// PromptForPassword prompts for a database password with hidden input.
// Returns an error if the input is interrupted (e.g., Ctrl+C).
func (ui *UI) PromptForPassword(ctx context.Context, user string) (string, error) {
	fmt.Print(ui.colorize(ColorYellow, fmt.Sprintf("Password for %s: ", user)))

	type result struct {
		password string
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultChan <- result{password: strings.TrimSpace(string(password)), err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case res := <-resultChan:
		fmt.Println()
		if res.err != nil {
			return "", res.err
		}
		return res.password, nil
	}
}

// PrintConnected reports a successful connection
func (ui *UI) PrintConnected(t database.Type, target string) {
	ui.PrintSystemMessage(fmt.Sprintf("Connected to %s database %s", t, target))
}
