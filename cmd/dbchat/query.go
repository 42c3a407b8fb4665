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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dbchat/internal/config"
	"dbchat/internal/database"
	"dbchat/internal/llm"
	"dbchat/internal/safety"
	"dbchat/internal/schema"
	"dbchat/internal/tsv"
)

var (
	queryEngine     string
	queryPath       string
	queryHost       string
	queryPort       int
	queryDatabase   string
	queryUser       string
	queryPassword   string
	querySSLMode    string
	queryConnection string
	queryMode       string
	querySQLOnly    bool
	queryExportPath string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a single question and exit",
	Long: `query runs one natural-language question through synthesis and the
safety gate, prints the result as TSV, and exits. Connection parameters
come from flags, a saved connection, or the configured defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryEngine, "engine", "", "Database engine: sqlite, postgres, mysql, or mssql")
	f.StringVar(&queryPath, "path", "", "SQLite database file path")
	f.StringVar(&queryHost, "host", "", "Database host")
	f.IntVar(&queryPort, "port", 0, "Database port")
	f.StringVar(&queryDatabase, "db", "", "Database name")
	f.StringVar(&queryUser, "user", "", "Database user")
	f.StringVar(&queryPassword, "password", "", "Database password (prefer DBCHAT_DB_PASSWORD)")
	f.StringVar(&querySSLMode, "sslmode", "", "Postgres SSL mode")
	f.StringVar(&queryConnection, "connection", "", "Saved connection name")
	f.StringVar(&queryMode, "mode", "", "Execution mode: read-only or read-write")
	f.BoolVar(&querySQLOnly, "sql-only", false, "Print the generated SQL without executing it")
	f.StringVar(&queryExportPath, "export", "", "Write the full result to a TSV file")
}

// resolveTarget determines the engine and parameters for a one-shot
// query from the saved connection or flags over configured defaults.
func resolveTarget(cfg *config.Config) (database.Type, database.Params, error) {
	if queryConnection != "" {
		store, err := openConnectionStore(cfg)
		if err != nil {
			return "", database.Params{}, err
		}
		return store.Resolve(queryConnection)
	}

	if queryEngine == "" {
		return "", database.Params{}, fmt.Errorf("either --connection or --engine is required")
	}
	t := database.Type(strings.ToLower(queryEngine))
	if !t.Valid() {
		return "", database.Params{}, fmt.Errorf("unknown engine %q (expected sqlite, postgres, mysql, or mssql)", queryEngine)
	}

	p := defaultParamsFor(cfg, t)
	if queryPath != "" {
		p.Path = queryPath
	}
	if queryHost != "" {
		p.Host = queryHost
	}
	if queryPort != 0 {
		p.Port = queryPort
	}
	if queryDatabase != "" {
		p.Database = queryDatabase
	}
	if queryUser != "" {
		p.User = queryUser
	}
	if queryPassword != "" {
		p.Password = queryPassword
	}
	if querySSLMode != "" {
		p.SSLMode = querySSLMode
	}
	if p.Password == "" {
		// Keeps the password out of shell history and process listings
		p.Password = os.Getenv("DBCHAT_DB_PASSWORD")
	}
	return t, p, nil
}

// defaultParamsFor maps configured per-engine defaults onto connection
// parameters.
func defaultParamsFor(cfg *config.Config, t database.Type) database.Params {
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

func runQuery(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	question := args[0]

	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	t, params, err := resolveTarget(cfg)
	if err != nil {
		return err
	}

	mode := safety.ModeReadOnly
	if queryMode != "" {
		mode = safety.Mode(strings.ToLower(queryMode))
		if mode != safety.ModeReadOnly && mode != safety.ModeReadWrite {
			return fmt.Errorf("unknown mode %q (expected read-only or read-write)", queryMode)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := database.Connect(ctx, t, params)
	if err != nil {
		return err
	}
	defer conn.Close()

	raw, err := conn.Introspect(ctx)
	if err != nil {
		return err
	}
	model, err := schema.Build(raw)
	if err != nil {
		return err
	}

	apiKey, err := cfg.APIKey(cfg.LLM.Provider)
	if err != nil {
		return err
	}
	opts := llm.Options{APIKey: apiKey, Model: cfg.LLM.Model}
	if cfg.LLM.Provider == "local" {
		opts.BaseURL = cfg.LLM.LocalURL
	}
	provider, err := llm.New(cfg.LLM.Provider, opts)
	if err != nil {
		return err
	}

	query, err := llm.NewSynthesizer(provider).Generate(ctx, question, model)
	if err != nil {
		return err
	}

	if querySQLOnly {
		fmt.Println(query)
		return nil
	}

	gate := safety.NewGate(conn, cfg.Limits.MaxRowsPreview)

	if queryExportPath != "" {
		result, err := gate.RunWithLimit(ctx, query, mode, cfg.Limits.MaxRowsExport)
		if err != nil {
			return err
		}
		return tsv.WriteFile(queryExportPath, &database.Result{
			Columns:   result.Columns,
			Rows:      result.Rows,
			Truncated: result.Truncated,
		})
	}

	result, err := gate.Run(ctx, query, mode)
	if err != nil {
		return err
	}

	fmt.Println(tsv.FormatResult(&database.Result{
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
	}))
	return nil
}
