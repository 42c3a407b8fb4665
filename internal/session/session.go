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
	"fmt"
	"sync"

	"dbchat/internal/creds"
	"dbchat/internal/database"
	"dbchat/internal/safety"
	"dbchat/internal/schema"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateSchemaLoaded
	StateQuerying
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSchemaLoaded:
		return "schema loaded"
	case StateQuerying:
		return "querying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Synthesizer turns a natural-language question into a SQL statement for
// the given schema.
type Synthesizer interface {
	Generate(ctx context.Context, question string, model *schema.Model) (string, error)
}

// Session owns one database connection, its schema model, and the
// credentials used to talk to the synthesis provider. At most one query
// is in flight at a time.
type Session struct {
	mu sync.Mutex

	state State
	conn  *database.Connection
	model *schema.Model
	gate  *safety.Gate
	synth Synthesizer
	creds *creds.Store
	mode  safety.Mode

	maxPreviewRows int
	lastSQL        string
}

// New creates a disconnected session. Queries run read-only until
// SetMode says otherwise.
func New(store *creds.Store, maxPreviewRows int) *Session {
	return &Session{
		state:          StateDisconnected,
		creds:          store,
		mode:           safety.ModeReadOnly,
		maxPreviewRows: maxPreviewRows,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the current safety mode.
func (s *Session) Mode() safety.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between read-only and read-write execution.
func (s *Session) SetMode(mode safety.Mode) error {
	if mode != safety.ModeReadOnly && mode != safety.ModeReadWrite {
		return fmt.Errorf("unknown mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// SetSynthesizer installs the query synthesizer used by Ask. Swapping
// providers mid-session is allowed.
func (s *Session) SetSynthesizer(synth Synthesizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth = synth
}

// Credentials returns the session's credential store.
func (s *Session) Credentials() *creds.Store { return s.creds }

// LastSQL returns the most recently executed statement, or "" if none.
func (s *Session) LastSQL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSQL
}

// Model returns the schema model, or nil before LoadSchema.
func (s *Session) Model() *schema.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Connect opens a connection to the given database. Any existing
// connection is closed first, and its schema model discarded.
func (s *Session) Connect(ctx context.Context, t database.Type, p database.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.model = nil
		s.gate = nil
	}

	conn, err := database.Connect(ctx, t, p)
	if err != nil {
		s.state = StateDisconnected
		return err
	}
	s.conn = conn
	s.gate = safety.NewGate(conn, s.maxPreviewRows)
	s.state = StateConnected
	return nil
}

// LoadSchema introspects the connected database and builds the schema
// model used for query synthesis.
func (s *Session) LoadSchema(ctx context.Context) (*schema.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	raw, err := s.conn.Introspect(ctx)
	if err != nil {
		return nil, err
	}
	model, err := schema.Build(raw)
	if err != nil {
		return nil, err
	}
	s.model = model
	s.state = StateSchemaLoaded
	return model, nil
}

// Ask answers a natural-language question: it synthesizes SQL against
// the loaded schema, runs it through the safety gate, and returns the
// result. Only one Ask or Run executes at a time.
func (s *Session) Ask(ctx context.Context, question string) (*safety.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return nil, fmt.Errorf("schema not loaded")
	}
	if s.synth == nil {
		return nil, fmt.Errorf("no synthesis provider configured")
	}

	s.state = StateQuerying
	defer func() { s.state = StateSchemaLoaded }()

	query, err := s.synth.Generate(ctx, question, s.model)
	if err != nil {
		return nil, err
	}
	result, err := s.gate.Run(ctx, query, s.mode)
	if err != nil {
		return nil, err
	}
	s.lastSQL = result.GeneratedQuery
	return result, nil
}

// Run executes a user-supplied SQL statement through the same safety
// gate as synthesized queries.
func (s *Session) Run(ctx context.Context, query string) (*safety.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	prev := s.state
	s.state = StateQuerying
	defer func() { s.state = prev }()

	result, err := s.gate.Run(ctx, query, s.mode)
	if err != nil {
		return nil, err
	}
	s.lastSQL = result.GeneratedQuery
	return result, nil
}

// Export executes a statement through the safety gate with the export
// row limit instead of the preview cap.
func (s *Session) Export(ctx context.Context, query string, rowLimit int) (*safety.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	prev := s.state
	s.state = StateQuerying
	defer func() { s.state = prev }()

	return s.gate.RunWithLimit(ctx, query, s.mode, rowLimit)
}

// Disconnect closes the connection and clears session credentials. It
// is safe to call from any state.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	s.model = nil
	s.gate = nil
	s.lastSQL = ""
	s.state = StateDisconnected
	if s.creds != nil {
		s.creds.Clear()
	}
	return err
}
