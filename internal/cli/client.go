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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"dbchat/internal/config"
	"dbchat/internal/connstore"
	"dbchat/internal/creds"
	"dbchat/internal/database"
	"dbchat/internal/llm"
	"dbchat/internal/safety"
	"dbchat/internal/session"
	"dbchat/internal/tsv"
)

// Client drives the interactive chat loop. It owns the session, the
// saved-connection store, and the credential store feeding the
// synthesis provider.
type Client struct {
	ui      *UI
	cfg     *config.ReloadableConfig
	session *session.Session
	store   *connstore.Store
	creds   *creds.Store

	provider string
	model    string

	lastType   database.Type
	lastParams database.Params

	watchers []*creds.KeyFileWatcher
}

// NewClient wires a client from the loaded configuration. store may be
// nil when the saved-connections file could not be opened.
func NewClient(ui *UI, cfg *config.ReloadableConfig, store *connstore.Store) (*Client, error) {
	credStore := creds.NewStore()
	snapshot := cfg.Get()

	c := &Client{
		ui:      ui,
		cfg:     cfg,
		session: session.New(credStore, snapshot.Limits.MaxRowsPreview),
		store:   store,
		creds:   credStore,
	}

	c.reloadCredentials(snapshot)
	c.startKeyWatchers(snapshot)
	cfg.OnReload(c.reloadCredentials)

	if err := c.useProvider(snapshot.LLM.Provider, snapshot.LLM.Model); err != nil {
		// The provider may become usable later (key file appears, or the
		// user switches with /provider), so report rather than fail.
		ui.PrintError(err.Error())
	}

	return c, nil
}

// reloadCredentials refreshes the credential store from the config.
// Keys read from files or the environment live only in memory.
func (c *Client) reloadCredentials(cfg *config.Config) {
	for _, provider := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		key, err := cfg.APIKey(provider)
		if err != nil {
			c.ui.PrintError(err.Error())
			continue
		}
		c.creds.Set(provider, key)
	}
}

// startKeyWatchers watches configured key files so rotated keys are
// picked up without restarting.
func (c *Client) startKeyWatchers(cfg *config.Config) {
	for _, provider := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		path := cfg.KeyFile(provider)
		if path == "" {
			continue
		}
		watcher, err := creds.NewKeyFileWatcher(c.creds, provider, path)
		if err != nil {
			continue // File may not exist yet
		}
		c.watchers = append(c.watchers, watcher)
	}
}

// useProvider builds a synthesizer for the named provider and installs
// it on the session.
func (c *Client) useProvider(name, model string) error {
	opts := llm.Options{Model: model}
	if key, ok := c.creds.Get(name); ok {
		opts.APIKey = key
	}
	if name == "local" {
		opts.BaseURL = c.cfg.Get().LLM.LocalURL
	}

	provider, err := llm.New(name, opts)
	if err != nil {
		return err
	}
	c.provider, c.model = name, model
	c.session.SetSynthesizer(llm.NewSynthesizer(provider))
	return nil
}

// defaultParams maps the configured per-engine defaults onto connection
// parameters.
func (c *Client) defaultParams(t database.Type) database.Params {
	cfg := c.cfg.Get()
	switch t {
	case database.TypeSQLite:
		return database.Params{Path: cfg.Defaults.SQLite.Path}
	case database.TypePostgres:
		d := cfg.Defaults.Postgres
		return database.Params{Host: d.Host, Port: d.Port, Database: d.Database, User: d.User, SSLMode: d.SSLMode}
	case database.TypeMySQL:
		d := cfg.Defaults.MySQL
		return database.Params{Host: d.Host, Port: d.Port, Database: d.Database, User: d.User}
	case database.TypeMSSQL:
		d := cfg.Defaults.MSSQL
		return database.Params{Host: d.Host, Port: d.Port, Database: d.Database, User: d.User}
	default:
		return database.Params{}
	}
}

// Close releases watchers and disconnects the session.
func (c *Client) Close() {
	for _, w := range c.watchers {
		w.Stop()
	}
	c.session.Disconnect()
}

// historyFilePath returns the readline history file location.
func historyFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "dbchat", "history")
}

// Run starts the interactive loop and blocks until the user exits or
// the context is canceled.
func (c *Client) Run(ctx context.Context) error {
	c.ui.PrintWelcome()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.ui.GetPrompt(),
		HistoryFile:       historyFilePath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// Closing readline unblocks Readline() when the context ends
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF || ctx.Err() != nil {
				fmt.Println()
				c.ui.PrintSystemMessage("Goodbye!")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "quit" || input == "exit" {
			c.ui.PrintSystemMessage("Goodbye!")
			return nil
		}

		if cmd := ParseSlashCommand(input); cmd != nil {
			if c.HandleSlashCommand(ctx, cmd) {
				continue
			}
			c.ui.PrintError(fmt.Sprintf("Unknown command: /%s (type /help for available commands)", cmd.Command))
			continue
		}

		// Everything else is a question for the database
		if err := c.processQuestion(ctx, input); err != nil {
			c.ui.PrintError(err.Error())
		}

		c.ui.PrintSeparator()
	}
}

// processQuestion runs one question through synthesis and execution.
func (c *Client) processQuestion(ctx context.Context, question string) error {
	if c.session.Model() == nil {
		return fmt.Errorf("not connected (use /connect or /open first)")
	}

	done := make(chan struct{})
	go c.ui.ShowThinking(ctx, done)

	result, err := c.session.Ask(ctx, question)
	close(done)
	c.ui.ClearThinkingLine()

	if err != nil {
		return err
	}

	c.ui.PrintSQL(result.GeneratedQuery)
	c.printQueryResult(result)
	return nil
}

func (c *Client) printQueryResult(result *safety.QueryResult) {
	c.ui.PrintResult(result.Columns, result.Rows, result.Truncated)
}

// handleExport re-runs a statement with the export row limit and writes
// the result to a TSV file. With no statement it exports the last query.
func (c *Client) handleExport(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.ui.PrintError("usage: /export <file> [statement]")
		return
	}

	path := args[0]
	query := strings.Join(args[1:], " ")
	if query == "" {
		query = c.session.LastSQL()
	}
	if query == "" {
		c.ui.PrintError("nothing to export (run a query first)")
		return
	}

	result, err := c.session.Export(ctx, query, c.cfg.Get().Limits.MaxRowsExport)
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	if err := tsv.WriteFile(path, &database.Result{
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
	}); err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	note := ""
	if result.Truncated {
		note = fmt.Sprintf(" (capped at %d rows)", c.cfg.Get().Limits.MaxRowsExport)
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Wrote %d row%s to %s%s", len(result.Rows), plural(len(result.Rows)), path, note))
}
