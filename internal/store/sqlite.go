package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
// The schema is created automatically if it doesn't exist; parent
// directories are created as needed.
func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: log,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Info("sqlite store initialized")
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			preferences TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			current_sequence_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user_updated
			ON sessions(user_id, updated_at);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_call TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_created
			ON messages(session_id, created_at);

		CREATE TABLE IF NOT EXISTS sequences (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			company_name TEXT NOT NULL DEFAULT '',
			role_name TEXT NOT NULL DEFAULT '',
			candidate_persona TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sequences_user
			ON sequences(user_id);

		CREATE TABLE IF NOT EXISTS steps (
			id TEXT PRIMARY KEY,
			sequence_id TEXT NOT NULL,
			step_number INTEGER NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			timing TEXT NOT NULL DEFAULT '',
			wait_time INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (sequence_id) REFERENCES sequences(id),
			UNIQUE (sequence_id, step_number)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, company, role, preferences, created_at, updated_at
		FROM users WHERE id = ?`, id)

	var u model.User
	var prefs sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Company, &u.Role, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Preferences = map[string]string{}
	if prefs.Valid && prefs.String != "" {
		if err := json.Unmarshal([]byte(prefs.String), &u.Preferences); err != nil {
			return nil, fmt.Errorf("decoding preferences: %w", err)
		}
	}

	return &u, nil
}

// UpsertUser inserts or replaces a user row.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *model.User) error {
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, company, role, preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			company = excluded.company,
			role = excluded.role,
			preferences = excluded.preferences,
			updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, user.Company, user.Role, string(prefs),
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, current_sequence_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.CurrentSequenceID,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a session with its messages loaded.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, current_sequence_id, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	session.Messages, err = s.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// LatestSessionForUser returns the most recently updated session for a user.
func (s *SQLiteStore) LatestSessionForUser(ctx context.Context, userID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, current_sequence_id, created_at, updated_at
		FROM sessions WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT 1`, userID)

	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	session.Messages, err = s.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var session model.Session
	var current sql.NullString
	err := row.Scan(&session.ID, &session.UserID, &current, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if current.Valid {
		session.CurrentSequenceID = &current.String
	}
	return &session, nil
}

// TouchSession bumps a session's updated_at timestamp.
func (s *SQLiteStore) TouchSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return requireAffected(res)
}

// AppendMessage inserts a new message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	toolCall, err := encodeToolCall(msg.ToolCall)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, tool_call, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, toolCall, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// UpdateMessageToolCall replaces the tool-call metadata on a message.
func (s *SQLiteStore) UpdateMessageToolCall(ctx context.Context, messageID string, tc *model.ToolCallInfo) error {
	toolCall, err := encodeToolCall(tc)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET tool_call = ? WHERE id = ?`, toolCall, messageID)
	if err != nil {
		return fmt.Errorf("updating message tool call: %w", err)
	}
	return requireAffected(res)
}

// ListMessages returns a session's messages in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, tool_call, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var role string
		var toolCall sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &toolCall, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = model.Role(role)
		if toolCall.Valid && toolCall.String != "" {
			var tc model.ToolCallInfo
			if err := json.Unmarshal([]byte(toolCall.String), &tc); err != nil {
				return nil, fmt.Errorf("decoding tool call: %w", err)
			}
			msg.ToolCall = &tc
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// CreateSequence inserts a sequence without steps.
func (s *SQLiteStore) CreateSequence(ctx context.Context, seq *model.Sequence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequences (id, user_id, name, company_name, role_name, candidate_persona, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seq.ID, seq.UserID, seq.Name, seq.CompanyName, seq.RoleName,
		seq.CandidatePersona, seq.CreatedAt, seq.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting sequence: %w", err)
	}
	return nil
}

// CreateSequenceWithSteps inserts a sequence, its steps, and the session's
// current-sequence pointer in one transaction. Either everything commits
// or nothing does.
func (s *SQLiteStore) CreateSequenceWithSteps(ctx context.Context, seq *model.Sequence, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (id, user_id, name, company_name, role_name, candidate_persona, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seq.ID, seq.UserID, seq.Name, seq.CompanyName, seq.RoleName,
		seq.CandidatePersona, seq.CreatedAt, seq.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting sequence: %w", err)
	}

	for i := range seq.Steps {
		step := &seq.Steps[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO steps (id, sequence_id, step_number, type, content, subject, timing, wait_time, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			step.ID, step.SequenceID, step.StepNumber, string(step.Type),
			step.Content, step.Subject, step.Timing, step.WaitTime,
			step.CreatedAt, step.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting step %d: %w", step.StepNumber, err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET current_sequence_id = ?, updated_at = ? WHERE id = ?`,
		seq.ID, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("updating session pointer: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("updating session pointer: %w", err)
	}

	return tx.Commit()
}

// GetSequence retrieves a sequence with its steps in step-number order.
func (s *SQLiteStore) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, company_name, role_name, candidate_persona, created_at, updated_at
		FROM sequences WHERE id = ?`, id)

	var seq model.Sequence
	err := row.Scan(&seq.ID, &seq.UserID, &seq.Name, &seq.CompanyName,
		&seq.RoleName, &seq.CandidatePersona, &seq.CreatedAt, &seq.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning sequence: %w", err)
	}

	seq.Steps, err = s.listSteps(ctx, seq.ID)
	if err != nil {
		return nil, err
	}

	return &seq, nil
}

// ListSequencesByUser returns all sequences owned by a user, steps included.
func (s *SQLiteStore) ListSequencesByUser(ctx context.Context, userID string) ([]model.Sequence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, company_name, role_name, candidate_persona, created_at, updated_at
		FROM sequences WHERE user_id = ?
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sequences: %w", err)
	}
	defer rows.Close()

	var sequences []model.Sequence
	for rows.Next() {
		var seq model.Sequence
		if err := rows.Scan(&seq.ID, &seq.UserID, &seq.Name, &seq.CompanyName,
			&seq.RoleName, &seq.CandidatePersona, &seq.CreatedAt, &seq.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sequences {
		sequences[i].Steps, err = s.listSteps(ctx, sequences[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return sequences, nil
}

// UpdateSequence writes the mutable sequence fields back to the database.
func (s *SQLiteStore) UpdateSequence(ctx context.Context, seq *model.Sequence) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sequences
		SET name = ?, company_name = ?, role_name = ?, candidate_persona = ?, updated_at = ?
		WHERE id = ?`,
		seq.Name, seq.CompanyName, seq.RoleName, seq.CandidatePersona,
		seq.UpdatedAt, seq.ID)
	if err != nil {
		return fmt.Errorf("updating sequence: %w", err)
	}
	return requireAffected(res)
}

// AddStep inserts a single step.
func (s *SQLiteStore) AddStep(ctx context.Context, step *model.Step) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (id, sequence_id, step_number, type, content, subject, timing, wait_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.SequenceID, step.StepNumber, string(step.Type),
		step.Content, step.Subject, step.Timing, step.WaitTime,
		step.CreatedAt, step.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID.
func (s *SQLiteStore) GetStep(ctx context.Context, id string) (*model.Step, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sequence_id, step_number, type, content, subject, timing, wait_time, created_at, updated_at
		FROM steps WHERE id = ?`, id)

	var step model.Step
	var stepType string
	err := row.Scan(&step.ID, &step.SequenceID, &step.StepNumber, &stepType,
		&step.Content, &step.Subject, &step.Timing, &step.WaitTime,
		&step.CreatedAt, &step.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning step: %w", err)
	}
	step.Type = model.StepType(stepType)

	return &step, nil
}

// UpdateStep writes the mutable step fields back to the database.
func (s *SQLiteStore) UpdateStep(ctx context.Context, step *model.Step) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE steps
		SET type = ?, content = ?, subject = ?, timing = ?, wait_time = ?, updated_at = ?
		WHERE id = ?`,
		string(step.Type), step.Content, step.Subject, step.Timing,
		step.WaitTime, step.UpdatedAt, step.ID)
	if err != nil {
		return fmt.Errorf("updating step: %w", err)
	}
	return requireAffected(res)
}

// MaxStepNumber returns the highest step number in a sequence, or 0 when
// the sequence has no steps.
func (s *SQLiteStore) MaxStepNumber(ctx context.Context, sequenceID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(step_number), 0) FROM steps WHERE sequence_id = ?`, sequenceID)

	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("querying max step number: %w", err)
	}
	return max, nil
}

func (s *SQLiteStore) listSteps(ctx context.Context, sequenceID string) ([]model.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sequence_id, step_number, type, content, subject, timing, wait_time, created_at, updated_at
		FROM steps WHERE sequence_id = ?
		ORDER BY step_number ASC`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var step model.Step
		var stepType string
		if err := rows.Scan(&step.ID, &step.SequenceID, &step.StepNumber, &stepType,
			&step.Content, &step.Subject, &step.Timing, &step.WaitTime,
			&step.CreatedAt, &step.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		step.Type = model.StepType(stepType)
		steps = append(steps, step)
	}

	return steps, rows.Err()
}

func encodeToolCall(tc *model.ToolCallInfo) (sql.NullString, error) {
	if tc == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tc)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding tool call: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
