package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrListLocked is the 423-equivalent: another session holds the edit
// lock, so structural edits are blocked until it is released or expires.
var ErrListLocked = errors.New("list is locked by another session")

// ListLock describes the current holder of a list's edit lock
type ListLock struct {
	ListID     int       `json:"list_id"`
	SessionID  string    `json:"session_id"`
	UserID     int       `json:"user_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AcquireListLock takes the cooperative edit lock for a list. An
// existing unexpired lock held by a different session wins; the same
// user re-acquiring refreshes the TTL and gets a fresh session id.
func (db *DB) AcquireListLock(ctx context.Context, listID, userID int, ttl time.Duration) (*ListLock, error) {
	sessionID := uuid.NewString()

	lock := &ListLock{}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO list_locks (list_id, session_id, user_id, acquired_at, expires_at)
		VALUES ($1, $2, $3, NOW(), NOW() + $4::interval)
		ON CONFLICT (list_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    user_id = EXCLUDED.user_id,
		    acquired_at = NOW(),
		    expires_at = EXCLUDED.expires_at
		WHERE list_locks.expires_at < NOW() OR list_locks.user_id = EXCLUDED.user_id
		RETURNING list_id, session_id, user_id, acquired_at, expires_at
	`, listID, sessionID, userID, ttl.String()).Scan(
		&lock.ListID, &lock.SessionID, &lock.UserID, &lock.AcquiredAt, &lock.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListLocked
		}
		return nil, err
	}

	return lock, nil
}

// ReleaseListLock releases the lock if the session still holds it.
// Releasing a lock you no longer hold is a no-op.
func (db *DB) ReleaseListLock(ctx context.Context, listID int, sessionID string) error {
	_, err := db.Pool.Exec(ctx, `
		DELETE FROM list_locks WHERE list_id = $1 AND session_id = $2
	`, listID, sessionID)
	return err
}

// RefreshListLock extends the TTL of a held lock
func (db *DB) RefreshListLock(ctx context.Context, listID int, sessionID string, ttl time.Duration) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE list_locks
		SET expires_at = NOW() + $3::interval
		WHERE list_id = $1 AND session_id = $2 AND expires_at >= NOW()
	`, listID, sessionID, ttl.String())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListLocked
	}
	return nil
}
