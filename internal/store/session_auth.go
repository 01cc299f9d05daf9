package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

const authSessionTTL = 24 * time.Hour

// Session rows are keyed by the SHA-256 of the token; the token itself is
// only ever held by the client.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateAuthSession opens a session for a user and returns its bearer token.
func (q *Queries) CreateAuthSession(ctx context.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		tokenKey(token), userID, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the live session for a token, or nil if it is unknown or expired.
func (q *Queries) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ? AND expires_at > ?`,
		tokenKey(token), time.Now().UTC(),
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SessionUser resolves a token to its active user in one query.
// It returns nil when the session is unknown or expired, or the user is deactivated.
func (q *Queries) SessionUser(ctx context.Context, token string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.display_name, u.password_hash, u.role, u.active, u.created_at
		 FROM auth_sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.id = ? AND s.expires_at > ? AND u.active = 1`,
		tokenKey(token), time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteAuthSession removes a session token.
func (q *Queries) DeleteAuthSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = ?`, tokenKey(token))
	return err
}

// DeleteUserSessions signs a user out everywhere.
func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CleanupExpiredSessions removes all expired auth sessions and reports how many went.
func (q *Queries) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
