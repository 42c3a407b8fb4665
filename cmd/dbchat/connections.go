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
	"strings"

	"github.com/spf13/cobra"

	"dbchat/internal/database"
	"dbchat/internal/tsv"
)

var (
	addEngine      string
	addPath        string
	addHost        string
	addPort        int
	addDatabase    string
	addUser        string
	addPassword    string
	addSSLMode     string
	addDescription string
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Manage saved connections",
	Long: `connections lists, adds, and removes saved connection profiles.
Passwords are stored encrypted with a key kept in the secret file.`,
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	RunE:  runConnectionsList,
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save a connection under a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionsAdd,
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionsRemove,
}

func init() {
	f := connectionsAddCmd.Flags()
	f.StringVar(&addEngine, "engine", "", "Database engine: sqlite, postgres, mysql, or mssql")
	f.StringVar(&addPath, "path", "", "SQLite database file path")
	f.StringVar(&addHost, "host", "", "Database host")
	f.IntVar(&addPort, "port", 0, "Database port")
	f.StringVar(&addDatabase, "db", "", "Database name")
	f.StringVar(&addUser, "user", "", "Database user")
	f.StringVar(&addPassword, "password", "", "Database password (stored encrypted)")
	f.StringVar(&addSSLMode, "sslmode", "", "Postgres SSL mode")
	f.StringVar(&addDescription, "description", "", "Free-form description")
	_ = connectionsAddCmd.MarkFlagRequired("engine")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsAddCmd)
	connectionsCmd.AddCommand(connectionsRemoveCmd)
}

func runConnectionsList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openConnectionStore(cfg)
	if err != nil {
		return err
	}

	if store.Count() == 0 {
		fmt.Println("No saved connections")
		return nil
	}

	fmt.Println(tsv.BuildRow("name", "engine", "target", "description"))
	for _, p := range store.List() {
		target := p.Path
		if target == "" {
			target = fmt.Sprintf("%s:%d/%s", p.Host, p.Port, p.Database)
		}
		fmt.Println(tsv.BuildRow(p.Name, p.Engine, target, p.Description))
	}
	return nil
}

func runConnectionsAdd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openConnectionStore(cfg)
	if err != nil {
		return err
	}

	t := database.Type(strings.ToLower(addEngine))
	if !t.Valid() {
		return fmt.Errorf("unknown engine %q (expected sqlite, postgres, mysql, or mssql)", addEngine)
	}

	params := defaultParamsFor(cfg, t)
	if addPath != "" {
		params.Path = addPath
	}
	if addHost != "" {
		params.Host = addHost
	}
	if addPort != 0 {
		params.Port = addPort
	}
	if addDatabase != "" {
		params.Database = addDatabase
	}
	if addUser != "" {
		params.User = addUser
	}
	if addPassword != "" {
		params.Password = addPassword
	}
	if addSSLMode != "" {
		params.SSLMode = addSSLMode
	}

	if err := params.Validate(t); err != nil {
		return err
	}
	if err := store.Add(args[0], t, params, addDescription); err != nil {
		return err
	}

	fmt.Printf("Saved connection '%s'\n", args[0])
	return nil
}

func runConnectionsRemove(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openConnectionStore(cfg)
	if err != nil {
		return err
	}

	if err := store.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed connection '%s'\n", args[0])
	return nil
}
