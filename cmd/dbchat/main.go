/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dbchat/internal/cli"
	"dbchat/internal/config"
	"dbchat/internal/connstore"
	"dbchat/internal/crypto"
	"dbchat/internal/database"
)

const version = "1.0.0"

var (
	configFile     string
	providerName   string
	modelName      string
	localURL       string
	noColor        bool
	noMarkdown     bool
	maxRowsPreview int
	maxRowsExport  int
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "dbchat",
	Short: "DB Chat - ask your database questions in plain language",
	Long: `dbchat connects to a SQLite, PostgreSQL, MySQL, or SQL Server database,
introspects its schema, and turns natural-language questions into SQL
using an LLM provider (Anthropic, OpenAI, Gemini, OpenRouter, or a local
OpenAI-compatible service).

Generated statements pass through a safety gate: in the default
read-only mode only reading statements execute, and results are capped
with an injected row limit. Without arguments dbchat starts an
interactive chat session.`,
	RunE: runChat,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	pf.StringVar(&providerName, "provider", "", "LLM provider: anthropic, openai, gemini, openrouter, or local")
	pf.StringVar(&modelName, "model", "", "Provider-specific model name")
	pf.StringVar(&localURL, "local-url", "", "Base URL of a local OpenAI-compatible service")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&noMarkdown, "no-markdown", false, "Disable markdown rendering")
	pf.IntVar(&maxRowsPreview, "max-rows-preview", 0, "Rows shown inline for a query result")
	pf.IntVar(&maxRowsExport, "max-rows-export", 0, "Rows written by an export")
	pf.StringVar(&logLevel, "log-level", "", "Log level: none, info, debug, trace")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// collectFlags captures which flags were explicitly set so they can
// override the config file.
func collectFlags(cmd *cobra.Command) config.CLIFlags {
	return config.CLIFlags{
		ConfigFile:        configFile,
		ConfigFileSet:     cmd.Flags().Changed("config"),
		Provider:          providerName,
		ProviderSet:       cmd.Flags().Changed("provider"),
		Model:             modelName,
		ModelSet:          cmd.Flags().Changed("model"),
		LocalURL:          localURL,
		LocalURLSet:       cmd.Flags().Changed("local-url"),
		MaxRowsPreview:    maxRowsPreview,
		MaxRowsPreviewSet: cmd.Flags().Changed("max-rows-preview"),
		MaxRowsExport:     maxRowsExport,
		MaxRowsExportSet:  cmd.Flags().Changed("max-rows-export"),
		LogLevel:          logLevel,
		LogLevelSet:       cmd.Flags().Changed("log-level"),
	}
}

// loadConfig resolves the config path and loads the layered config.
func loadConfig(cmd *cobra.Command) (*config.Config, config.CLIFlags, string, error) {
	flags := collectFlags(cmd)

	path := configFile
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			exePath = "dbchat"
		}
		path = config.GetDefaultConfigPath(exePath)
	}

	cfg, err := config.LoadConfig(path, flags)
	if err != nil {
		return nil, flags, "", err
	}

	database.SetLogLevel(database.ParseLogLevel(cfg.LogLevel))
	return cfg, flags, path, nil
}

// openConnectionStore opens the saved-connections store, creating the
// encryption key on first use. Returns nil when the store is unusable.
func openConnectionStore(cfg *config.Config) (*connstore.Store, error) {
	connectionsPath := cfg.ConnectionsFile
	if connectionsPath == "" {
		connectionsPath = config.GetDefaultConnectionsPath()
	}
	secretPath := cfg.SecretFile
	if secretPath == "" {
		secretPath = config.GetDefaultSecretPath()
	}

	key, err := crypto.LoadOrCreateKey(secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open encryption key: %w", err)
	}
	return connstore.Open(connectionsPath, key)
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return ctx, cancel
}

func runChat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, flags, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openConnectionStore(cfg)
	if err != nil {
		// Saved connections are a convenience; chat still works without
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	ui := cli.NewUI(noColor, !noMarkdown)
	reloadable := config.NewReloadableConfig(cfg, path, flags)

	client, err := cli.NewClient(ui, reloadable, store)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := signalContext()
	defer cancel()

	return client.Run(ctx)
}
