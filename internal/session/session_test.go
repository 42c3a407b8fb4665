/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dbchat/internal/creds"
	"dbchat/internal/database"
	"dbchat/internal/safety"
	"dbchat/internal/schema"
)

// stubSynth returns a fixed statement for every question.
type stubSynth struct {
	sql   string
	err   error
	calls int
}

func (s *stubSynth) Generate(ctx context.Context, question string, model *schema.Model) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.sql, nil
}

// newTestSession connects to a throwaway SQLite database seeded with a
// users table.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()

	s := New(creds.NewStore(), 10)
	path := filepath.Join(t.TempDir(), "test.db")
	if err := s.Connect(ctx, database.TypeSQLite, database.Params{Path: path}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { s.Disconnect() })

	seed := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO users (name) VALUES ('alice'), ('bob'), ('carol')`,
	}
	prev := s.Mode()
	if err := s.SetMode(safety.ModeReadWrite); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	for _, stmt := range seed {
		if _, err := s.Run(ctx, stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	if err := s.SetMode(prev); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(creds.NewStore(), 10)

	if s.State() != StateDisconnected {
		t.Fatalf("initial state = %v", s.State())
	}
	if _, err := s.Ask(ctx, "anything"); err == nil {
		t.Error("Ask before connect should fail")
	}
	if _, err := s.LoadSchema(ctx); err == nil {
		t.Error("LoadSchema before connect should fail")
	}

	path := filepath.Join(t.TempDir(), "test.db")
	if err := s.Connect(ctx, database.TypeSQLite, database.Params{Path: path}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.State() != StateConnected {
		t.Errorf("state after connect = %v", s.State())
	}

	if _, err := s.LoadSchema(ctx); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if s.State() != StateSchemaLoaded {
		t.Errorf("state after schema load = %v", s.State())
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if s.State() != StateDisconnected || s.Model() != nil {
		t.Error("disconnect did not reset session")
	}

	// Disconnect is safe from any state, including disconnected
	if err := s.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestSessionAsk(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	if _, err := s.LoadSchema(ctx); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	synth := &stubSynth{sql: "SELECT COUNT(*) AS user_count FROM users"}
	s.SetSynthesizer(synth)

	result, err := s.Ask(ctx, "how many users are there?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if synth.calls != 1 {
		t.Errorf("synthesizer calls = %d", synth.calls)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != int64(3) {
		t.Errorf("result = %+v", result)
	}
	if result.Columns[0] != "user_count" {
		t.Errorf("columns = %v", result.Columns)
	}
	if s.LastSQL() == "" {
		t.Error("LastSQL not recorded")
	}
	if s.State() != StateSchemaLoaded {
		t.Errorf("state after Ask = %v", s.State())
	}
}

func TestSessionAskRequiresSchema(t *testing.T) {
	s := newTestSession(t)
	s.SetSynthesizer(&stubSynth{sql: "SELECT 1"})

	if _, err := s.Ask(context.Background(), "q"); err == nil {
		t.Error("Ask without schema should fail")
	}
}

func TestSessionAskSurfacesSynthesisErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	if _, err := s.LoadSchema(ctx); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	wantErr := errors.New("provider exploded")
	s.SetSynthesizer(&stubSynth{err: wantErr})

	_, err := s.Ask(ctx, "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestSessionModeGating(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	if _, err := s.LoadSchema(ctx); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	s.SetSynthesizer(&stubSynth{sql: "DELETE FROM users"})

	_, err := s.Ask(ctx, "remove everyone")
	var violation *safety.PolicyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("got %v, want *PolicyViolation in read-only mode", err)
	}

	if err := s.SetMode(safety.ModeReadWrite); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	result, err := s.Ask(ctx, "remove everyone")
	if err != nil {
		t.Fatalf("Ask in read-write mode: %v", err)
	}
	if result.Columns[0] != "rows_affected" || result.Rows[0][0] != int64(3) {
		t.Errorf("result = %+v", result)
	}
}

func TestSessionRejectsUnknownMode(t *testing.T) {
	s := New(creds.NewStore(), 10)
	if err := s.SetMode(safety.Mode("yolo")); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSessionExport(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	if _, err := s.LoadSchema(ctx); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	result, err := s.Export(ctx, "SELECT name FROM users ORDER BY name", 2)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(result.Rows) != 2 || !result.Truncated {
		t.Errorf("rows=%d truncated=%v", len(result.Rows), result.Truncated)
	}
}

func TestSessionDisconnectClearsCredentials(t *testing.T) {
	store := creds.NewStore()
	store.Set("anthropic", "sk-secret")

	s := New(store, 10)
	path := filepath.Join(t.TempDir(), "test.db")
	if err := s.Connect(context.Background(), database.TypeSQLite, database.Params{Path: path}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, ok := store.Get("anthropic"); ok {
		t.Error("credentials survived disconnect")
	}
}
