package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/traceviz/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. trace log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Sessions ---

func (s *LibSQLStore) CreateSession(ctx context.Context, sess *Session) error {
	names, err := marshalNamesOrNil(sess.AgentNames)
	if err != nil {
		return fmt.Errorf("marshal agent_names: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, agent_names, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, nullStr(sess.Name), names, timeOrNow(sess.CreatedAt), timeOrNow(sess.UpdatedAt),
	)
	return err
}

func (s *LibSQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	sess := &Session{}
	var name, names sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.name, s.agent_names, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM steps WHERE session_id = s.id)
		 FROM sessions s WHERE s.id = ?`, id,
	).Scan(&sess.ID, &name, &names, &sess.CreatedAt, &sess.UpdatedAt, &sess.StepCount)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("session", id)
	}
	if err != nil {
		return nil, err
	}
	sess.Name = name.String
	if names.Valid && names.String != "" {
		if err := json.Unmarshal([]byte(names.String), &sess.AgentNames); err != nil {
			return nil, fmt.Errorf("unmarshal agent_names: %w", err)
		}
	}
	return sess, nil
}

func (s *LibSQLStore) UpdateSession(ctx context.Context, id string, update SessionUpdate) error {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.AgentNames != nil {
		names, err := marshalNamesOrNil(update.AgentNames)
		if err != nil {
			return fmt.Errorf("marshal agent_names: %w", err)
		}
		sets = append(sets, "agent_names = ?")
		args = append(args, names)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE sessions SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "session", id)
}

func (s *LibSQLStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*Session, error) {
	var where []string
	var args []any

	if filter.Since != nil {
		where = append(where, "s.updated_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT s.id, s.name, s.agent_names, s.created_at, s.updated_at,
	          (SELECT COUNT(*) FROM steps WHERE session_id = s.id)
	          FROM sessions s`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var name, names sql.NullString
		if err := rows.Scan(&sess.ID, &name, &names, &sess.CreatedAt, &sess.UpdatedAt, &sess.StepCount); err != nil {
			return nil, err
		}
		sess.Name = name.String
		if names.Valid && names.String != "" {
			if err := json.Unmarshal([]byte(names.String), &sess.AgentNames); err != nil {
				return nil, fmt.Errorf("unmarshal agent_names: %w", err)
			}
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *LibSQLStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "session", id)
}

// DeleteSessionsBefore removes sessions not updated since the cutoff and returns
// how many were deleted. Step rows go with them via ON DELETE CASCADE.
func (s *LibSQLStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Step log ---

// AppendSteps appends steps to a session's log with monotonically increasing
// per-session sequence numbers and returns the last assigned sequence.
func (s *LibSQLStore) AppendSteps(ctx context.Context, sessionID string, steps []schema.VisualizerStep) (int64, error) {
	if len(steps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Acquire write lock by executing a write-intent statement.
	// In WAL mode, BeginTx alone may start a deferred transaction.
	// We use an immediate-mode write to force lock acquisition.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return 0, fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return 0, fmt.Errorf("cleanup write lock: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return 0, storeNotFound("session", sessionID)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM steps WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get next sequence: %w", err)
	}

	now := time.Now().UTC()
	for i := range steps {
		step := &steps[i]
		payload, err := json.Marshal(step)
		if err != nil {
			return 0, fmt.Errorf("marshal step %s: %w", step.ID, err)
		}
		seq++
		ts := now
		if !step.Timestamp.IsZero() {
			ts = step.Timestamp
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO steps (session_id, step_id, step_type, payload, received_at, sequence)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, step.ID, string(step.Type), string(payload), ts, seq,
		); err != nil {
			return 0, fmt.Errorf("insert step %s: %w", step.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, sessionID); err != nil {
		return 0, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit steps: %w", err)
	}
	return seq, nil
}

// GetSteps returns step records with sequence > since, ordered by sequence ASC.
func (s *LibSQLStore) GetSteps(ctx context.Context, sessionID string, since int64) ([]*StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, step_id, step_type, payload, received_at, sequence
		 FROM steps WHERE session_id = ? AND sequence > ? ORDER BY sequence ASC`,
		sessionID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStepRecords(rows)
}

func (s *LibSQLStore) GetStepsByType(ctx context.Context, sessionID string, filter StepFilter) ([]*StepRecord, error) {
	var where []string
	var args []any

	where = append(where, "session_id = ?")
	args = append(args, sessionID)

	if filter.StepType != "" {
		where = append(where, "step_type = ?")
		args = append(args, filter.StepType)
	}
	if filter.Since > 0 {
		where = append(where, "sequence > ?")
		args = append(args, filter.Since)
	}

	query := `SELECT id, session_id, step_id, step_type, payload, received_at, sequence FROM steps`
	query += " WHERE " + strings.Join(where, " AND ")
	query += " ORDER BY sequence ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStepRecords(rows)
}

func (s *LibSQLStore) CountSteps(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM steps WHERE session_id = ?`, sessionID,
	).Scan(&n)
	return n, err
}

func scanStepRecords(rows *sql.Rows) ([]*StepRecord, error) {
	var records []*StepRecord
	for rows.Next() {
		r := &StepRecord{}
		var stepType, payload string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.StepID, &stepType, &payload, &r.ReceivedAt, &r.Sequence); err != nil {
			return nil, err
		}
		r.Type = schema.StepType(stepType)
		r.Payload = json.RawMessage(payload)
		records = append(records, r)
	}
	return records, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.TracevizError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalNamesOrNil(names schema.AgentNameMap) (any, error) {
	if len(names) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
