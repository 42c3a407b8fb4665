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
	"strconv"
	"strings"

	"dbchat/internal/database"
	"dbchat/internal/safety"
)

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Command string
	Args    []string
}

// ParseSlashCommand parses a slash command from user input
func ParseSlashCommand(input string) *SlashCommand {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	input = strings.TrimPrefix(input, "/")

	// Split into command and arguments, respecting quotes
	parts := parseQuotedArgs(input)
	if len(parts) == 0 {
		return nil
	}

	return &SlashCommand{
		Command: strings.ToLower(parts[0]),
		Args:    parts[1:],
	}
}

// parseQuotedArgs splits a string into arguments, respecting quoted strings
func parseQuotedArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case (r == '"' || r == '\'') && !inQuote:
			inQuote = true
			quoteChar = r
		case r == quoteChar && inQuote:
			inQuote = false
			quoteChar = 0
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && inQuote && i+1 < len(runes):
			next := runes[i+1]
			if next == quoteChar || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

// HandleSlashCommand processes slash commands, returns true if handled
func (c *Client) HandleSlashCommand(ctx context.Context, cmd *SlashCommand) bool {
	if cmd == nil {
		return false
	}

	switch cmd.Command {
	case "help":
		c.printHelp()
		return true

	case "connect":
		c.handleConnect(ctx, cmd.Args)
		return true

	case "disconnect":
		c.handleDisconnect()
		return true

	case "open":
		c.handleOpen(ctx, cmd.Args)
		return true

	case "save":
		c.handleSave(cmd.Args)
		return true

	case "connections":
		c.handleConnections()
		return true

	case "forget":
		c.handleForget(cmd.Args)
		return true

	case "schema":
		c.handleSchema()
		return true

	case "tables":
		c.handleTables()
		return true

	case "sql":
		c.handleSQL(ctx, cmd.Args)
		return true

	case "last":
		c.handleLast()
		return true

	case "export":
		c.handleExport(ctx, cmd.Args)
		return true

	case "provider":
		c.handleProvider(cmd.Args)
		return true

	case "mode":
		c.handleMode(cmd.Args)
		return true

	case "reload":
		c.handleReload()
		return true

	default:
		return false
	}
}

const helpText = `# DB Chat Commands

| Command | Description |
|---------|-------------|
| ` + "`/connect <engine> [key=value ...]`" + ` | Connect to a database (sqlite, postgres, mysql, mssql) |
| ` + "`/disconnect`" + ` | Close the current connection |
| ` + "`/open <name>`" + ` | Connect using a saved connection |
| ` + "`/save <name> [description]`" + ` | Save the current connection under a name |
| ` + "`/connections`" + ` | List saved connections |
| ` + "`/forget <name>`" + ` | Remove a saved connection |
| ` + "`/schema`" + ` | Show the introspected schema |
| ` + "`/tables`" + ` | List table names |
| ` + "`/sql <statement>`" + ` | Run a SQL statement directly |
| ` + "`/last`" + ` | Show the last executed SQL |
| ` + "`/export <file> [statement]`" + ` | Write a result to a TSV file |
| ` + "`/provider <name> [model]`" + ` | Switch synthesis provider |
| ` + "`/mode [read-only\\|read-write]`" + ` | Show or change the execution mode |
| ` + "`/reload`" + ` | Reload the configuration file |
| ` + "`/quit`" + ` | Exit |

Connection keys: ` + "`path`" + ` (sqlite), ` + "`host`" + `, ` + "`port`" + `, ` + "`db`" + `, ` + "`user`" + `, ` + "`sslmode`" + ` (postgres).
Anything that is not a command is answered by generating SQL against the
connected schema.
`

func (c *Client) printHelp() {
	c.ui.PrintMarkdown(helpText)
}

// parseConnectArgs builds connection parameters from key=value pairs,
// starting from the configured per-engine defaults.
func (c *Client) parseConnectArgs(t database.Type, args []string) (database.Params, error) {
	p := c.defaultParams(t)

	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			// A bare argument is the sqlite path or the database name
			if t == database.TypeSQLite {
				p.Path = arg
			} else {
				p.Database = arg
			}
			continue
		}
		switch strings.ToLower(key) {
		case "path":
			p.Path = value
		case "host":
			p.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return p, fmt.Errorf("invalid port %q", value)
			}
			p.Port = port
		case "db", "database":
			p.Database = value
		case "user":
			p.User = value
		case "password":
			p.Password = value
		case "sslmode":
			p.SSLMode = value
		default:
			return p, fmt.Errorf("unknown connection key %q", key)
		}
	}

	return p, nil
}

func (c *Client) handleConnect(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.ui.PrintError("usage: /connect <sqlite|postgres|mysql|mssql> [key=value ...]")
		return
	}

	t := database.Type(strings.ToLower(args[0]))
	if !t.Valid() {
		c.ui.PrintError(fmt.Sprintf("unknown engine %q (expected sqlite, postgres, mysql, or mssql)", args[0]))
		return
	}

	params, err := c.parseConnectArgs(t, args[1:])
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	// Networked engines need a password; prompt if not supplied
	if t != database.TypeSQLite && params.Password == "" && params.User != "" {
		password, err := c.ui.PromptForPassword(ctx, params.User)
		if err != nil {
			c.ui.PrintError(err.Error())
			return
		}
		params.Password = password
	}

	c.connect(ctx, t, params)
}

// connect establishes the session connection and loads the schema.
func (c *Client) connect(ctx context.Context, t database.Type, params database.Params) {
	if err := c.session.Connect(ctx, t, params); err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	target := params.Database
	if t == database.TypeSQLite {
		target = params.Path
	}
	c.ui.PrintConnected(t, target)

	model, err := c.session.LoadSchema(ctx)
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.lastType, c.lastParams = t, params
	c.ui.PrintSystemMessage(fmt.Sprintf("Schema loaded: %d table%s", len(model.Tables), plural(len(model.Tables))))
}

func (c *Client) handleDisconnect() {
	if err := c.session.Disconnect(); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.lastType, c.lastParams = "", database.Params{}
	c.reloadCredentials(c.cfg.Get())
	c.ui.PrintSystemMessage("Disconnected")
}

func (c *Client) handleOpen(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.ui.PrintError("usage: /open <name>")
		return
	}
	if c.store == nil {
		c.ui.PrintError("saved connections are not available")
		return
	}

	t, params, err := c.store.Resolve(args[0])
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.connect(ctx, t, params)
}

func (c *Client) handleSave(args []string) {
	if len(args) == 0 {
		c.ui.PrintError("usage: /save <name> [description]")
		return
	}
	if c.store == nil {
		c.ui.PrintError("saved connections are not available")
		return
	}
	if c.lastType == "" {
		c.ui.PrintError("not connected")
		return
	}

	description := strings.Join(args[1:], " ")
	if err := c.store.Add(args[0], c.lastType, c.lastParams, description); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Saved connection '%s'", args[0]))
}

func (c *Client) handleConnections() {
	if c.store == nil || c.store.Count() == 0 {
		c.ui.PrintSystemMessage("No saved connections")
		return
	}

	columns := []string{"name", "engine", "target", "description"}
	var rows [][]any
	for _, p := range c.store.List() {
		target := p.Path
		if target == "" {
			target = fmt.Sprintf("%s:%d/%s", p.Host, p.Port, p.Database)
		}
		rows = append(rows, []any{p.Name, p.Engine, target, p.Description})
	}
	c.ui.PrintResult(columns, rows, false)
}

func (c *Client) handleForget(args []string) {
	if len(args) != 1 {
		c.ui.PrintError("usage: /forget <name>")
		return
	}
	if c.store == nil {
		c.ui.PrintError("saved connections are not available")
		return
	}
	if err := c.store.Remove(args[0]); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Removed connection '%s'", args[0]))
}

func (c *Client) handleSchema() {
	model := c.session.Model()
	if model == nil {
		c.ui.PrintError("schema not loaded (connect first)")
		return
	}
	fmt.Print(model.PromptText(0, ""))
}

func (c *Client) handleTables() {
	model := c.session.Model()
	if model == nil {
		c.ui.PrintError("schema not loaded (connect first)")
		return
	}

	columns := []string{"table", "columns", "rows"}
	var rows [][]any
	for _, t := range model.Tables {
		estimate := "?"
		if t.RowEstimate >= 0 {
			estimate = strconv.FormatInt(t.RowEstimate, 10)
		}
		rows = append(rows, []any{t.Name, len(t.Columns), estimate})
	}
	c.ui.PrintResult(columns, rows, false)
}

func (c *Client) handleSQL(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.ui.PrintError("usage: /sql <statement>")
		return
	}

	query := strings.Join(args, " ")
	result, err := c.session.Run(ctx, query)
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.printQueryResult(result)
}

func (c *Client) handleLast() {
	last := c.session.LastSQL()
	if last == "" {
		c.ui.PrintSystemMessage("No SQL executed yet")
		return
	}
	c.ui.PrintSQL(last)
}

func (c *Client) handleMode(args []string) {
	if len(args) == 0 {
		c.ui.PrintSystemMessage(fmt.Sprintf("Mode: %s", c.session.Mode()))
		return
	}

	mode := safety.Mode(strings.ToLower(args[0]))
	if err := c.session.SetMode(mode); err != nil {
		c.ui.PrintError("usage: /mode [read-only|read-write]")
		return
	}
	if mode == safety.ModeReadWrite {
		c.ui.PrintSystemMessage("Mode: read-write (mutating statements will execute)")
	} else {
		c.ui.PrintSystemMessage("Mode: read-only")
	}
}

func (c *Client) handleProvider(args []string) {
	if len(args) == 0 {
		c.ui.PrintError("usage: /provider <anthropic|openai|gemini|openrouter|local> [model]")
		return
	}

	model := ""
	if len(args) > 1 {
		model = args[1]
	}
	if err := c.useProvider(args[0], model); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Provider: %s", args[0]))
}

func (c *Client) handleReload() {
	if err := c.cfg.Reload(); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.ui.PrintSystemMessage("Configuration reloaded")
}
