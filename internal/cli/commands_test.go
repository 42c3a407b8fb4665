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
	"reflect"
	"testing"

	"dbchat/internal/config"
	"dbchat/internal/database"
)

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *SlashCommand
	}{
		{"not a command", "how many users are there", nil},
		{"bare slash", "/", nil},
		{"simple", "/help", &SlashCommand{Command: "help", Args: []string{}}},
		{"uppercase normalized", "/HELP", &SlashCommand{Command: "help", Args: []string{}}},
		{"with args", "/connect sqlite path=app.db", &SlashCommand{Command: "connect", Args: []string{"sqlite", "path=app.db"}}},
		{"quoted arg", `/save prod "the production database"`, &SlashCommand{Command: "save", Args: []string{"prod", "the production database"}}},
		{"single quotes", "/open 'my conn'", &SlashCommand{Command: "open", Args: []string{"my conn"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSlashCommand(tt.input)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("ParseSlashCommand(%q) = %+v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseSlashCommand(%q) = nil", tt.input)
			}
			if got.Command != tt.expected.Command {
				t.Errorf("command = %q, want %q", got.Command, tt.expected.Command)
			}
			if len(got.Args) != len(tt.expected.Args) || (len(got.Args) > 0 && !reflect.DeepEqual(got.Args, tt.expected.Args)) {
				t.Errorf("args = %v, want %v", got.Args, tt.expected.Args)
			}
		})
	}
}

func TestParseQuotedArgs(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`say "hello world"`, []string{"say", "hello world"}},
		{`mix 'single quoted' plain`, []string{"mix", "single quoted", "plain"}},
		{`esc "a \"quote\" inside"`, []string{"esc", `a "quote" inside`}},
		{`back "a \\ slash"`, []string{"back", `a \ slash`}},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseQuotedArgs(tt.input)
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("parseQuotedArgs(%q) = %#v, want %#v", tt.input, got, tt.expected)
		}
	}
}

func newParseClient(t *testing.T) *Client {
	t.Helper()
	for _, v := range []string{"DBCHAT_PROVIDER", "DBCHAT_PG_HOST", "DBCHAT_PG_PORT", "DBCHAT_PG_DATABASE", "DBCHAT_PG_USER", "DBCHAT_PG_SSLMODE"} {
		t.Setenv(v, "")
	}
	cfg, err := config.LoadConfig("", config.CLIFlags{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Defaults.Postgres.Database = "defaultdb"
	cfg.Defaults.Postgres.User = "defaultuser"
	return &Client{cfg: config.NewReloadableConfig(cfg, "", config.CLIFlags{})}
}

func TestParseConnectArgs(t *testing.T) {
	c := newParseClient(t)

	t.Run("sqlite bare path", func(t *testing.T) {
		p, err := c.parseConnectArgs(database.TypeSQLite, []string{"/data/app.db"})
		if err != nil {
			t.Fatal(err)
		}
		if p.Path != "/data/app.db" {
			t.Errorf("path = %q", p.Path)
		}
	})

	t.Run("postgres key value pairs", func(t *testing.T) {
		p, err := c.parseConnectArgs(database.TypePostgres, []string{
			"host=db.example.com", "port=5433", "db=sales", "user=alice", "sslmode=require",
		})
		if err != nil {
			t.Fatal(err)
		}
		if p.Host != "db.example.com" || p.Port != 5433 || p.Database != "sales" || p.User != "alice" || p.SSLMode != "require" {
			t.Errorf("params = %+v", p)
		}
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		p, err := c.parseConnectArgs(database.TypePostgres, []string{"host=pg.local"})
		if err != nil {
			t.Fatal(err)
		}
		if p.Port != 5432 || p.Database != "defaultdb" || p.User != "defaultuser" || p.SSLMode != "prefer" {
			t.Errorf("defaults not applied: %+v", p)
		}
	})

	t.Run("bare arg is the database name", func(t *testing.T) {
		p, err := c.parseConnectArgs(database.TypeMySQL, []string{"inventory"})
		if err != nil {
			t.Fatal(err)
		}
		if p.Database != "inventory" {
			t.Errorf("database = %q", p.Database)
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		if _, err := c.parseConnectArgs(database.TypePostgres, []string{"port=abc"}); err == nil {
			t.Error("expected error for non-numeric port")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := c.parseConnectArgs(database.TypePostgres, []string{"timeout=5"}); err == nil {
			t.Error("expected error for unknown key")
		}
	})
}
