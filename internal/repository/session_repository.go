package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/library-catalog-api/internal/models"
)

// SessionRepository persists issued session digests.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionUserRow struct {
	SessionID     int64     `db:"session_id"`
	SessionUserID int64     `db:"session_user_id"`
	ExpiresAt     time.Time `db:"expires_at"`
	SessionAt     time.Time `db:"session_created_at"`
	models.User
}

// Create stores a session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `INSERT INTO user_sessions (user_id, session_token, expires_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, session.UserID, session.TokenDigest, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByDigest returns the session stored under digest together with its
// owner. Expiry and account state are left for the caller to judge.
func (r *SessionRepository) FindByDigest(ctx context.Context, digest string) (*models.Session, *models.User, error) {
	const query = `SELECT s.id AS session_id, s.user_id AS session_user_id, s.expires_at, s.created_at AS session_created_at,
	u.id, u.user_type, u.name, u.email, u.student_id, u.password_hash, u.department, u.role, u.parent_email,
	u.is_active, u.created_at, u.updated_at, u.last_login
FROM user_sessions s
JOIN users u ON u.id = s.user_id
WHERE s.session_token = $1
LIMIT 1`
	var row sessionUserRow
	if err := r.db.GetContext(ctx, &row, query, digest); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	session := &models.Session{
		ID:          row.SessionID,
		UserID:      row.SessionUserID,
		TokenDigest: digest,
		ExpiresAt:   row.ExpiresAt,
		CreatedAt:   row.SessionAt,
	}
	user := row.User
	return session, &user, nil
}

// DeleteByDigest removes a session. Deleting an unknown digest is not an error.
func (r *SessionRepository) DeleteByDigest(ctx context.Context, digest string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, digest)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete session rows: %w", err)
	}
	return n, nil
}

// DeleteExpired purges sessions whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions rows: %w", err)
	}
	return n, nil
}
