// Package stores contains SQLite-backed implementations of the domain
// store interfaces.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/data/db"
)

// SessionStore implements chat.Store using SQLite.
type SessionStore struct {
	db *db.DB
}

var _ chat.Store = (*SessionStore)(nil)

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *db.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save upserts the session and replaces all of its turns transactionally.
func (s *SessionStore) Save(ctx context.Context, sess chat.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("save session: empty id")
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_sessions (id, repo_full_name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				repo_full_name = excluded.repo_full_name,
				updated_at = excluded.updated_at`,
			sess.ID, sess.RepoFullName, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("upsert session %q: %w", sess.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, sess.ID); err != nil {
			return fmt.Errorf("clear turns for %q: %w", sess.ID, err)
		}

		for i, turn := range sess.Turns {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO chat_turns (session_id, idx, user_message, assistant_message)
				VALUES (?, ?, ?, ?)`,
				sess.ID, i, nullStr(turn.User), nullStr(turn.Assistant),
			)
			if err != nil {
				return fmt.Errorf("insert turn %d for %q: %w", i, sess.ID, err)
			}
		}

		return nil
	})
}

// Get returns a session by ID, or an error wrapping chat.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (chat.Session, error) {
	var (
		sess      chat.Session
		createdAt int64
		updatedAt int64
	)
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, repo_full_name, created_at, updated_at FROM chat_sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.RepoFullName, &createdAt, &updatedAt)
	if IsNotFoundError(err) {
		return chat.Session{}, fmt.Errorf("get session %q: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("get session %q: %w", id, err)
	}

	sess.CreatedAt = time.Unix(0, createdAt)
	sess.UpdatedAt = time.Unix(0, updatedAt)

	turns, err := s.loadTurns(ctx, id)
	if err != nil {
		return chat.Session{}, err
	}
	sess.Turns = turns

	return sess, nil
}

// List returns all sessions, most recently updated first, without turns
// loaded.
func (s *SessionStore) List(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, repo_full_name, created_at, updated_at
		 FROM chat_sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []chat.Session
	for rows.Next() {
		var (
			sess      chat.Session
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&sess.ID, &sess.RepoFullName, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(0, createdAt)
		sess.UpdatedAt = time.Unix(0, updatedAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}

	return sessions, nil
}

// Delete removes a session and its turns. Missing sessions are not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete turns for %q: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete session %q: %w", id, err)
		}
		return nil
	})
}

func (s *SessionStore) loadTurns(ctx context.Context, id string) (chat.History, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT user_message, assistant_message FROM chat_turns
		 WHERE session_id = ? ORDER BY idx`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns for %q: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var turns chat.History
	for rows.Next() {
		var user, asst sql.NullString
		if err := rows.Scan(&user, &asst); err != nil {
			return nil, fmt.Errorf("scan turn for %q: %w", id, err)
		}
		turns = append(turns, chat.Turn{User: strPtr(user), Assistant: strPtr(asst)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load turns rows for %q: %w", id, err)
	}

	return turns, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
