package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByDigest(ctx context.Context, digest string) (*models.Session, *models.User, error)
	DeleteByDigest(ctx context.Context, digest string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionConfig defines how session tokens are signed and how long they live.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// SessionService issues and checks session tokens. A token is accepted only
// when its signature verifies AND its digest is still stored, unexpired, for
// an active account.
type SessionService struct {
	repo    sessionRepository
	logger  *zap.Logger
	metrics *MetricsService
	config  SessionConfig
	now     func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, logger *zap.Logger, metrics *MetricsService, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	return &SessionService{repo: repo, logger: logger, metrics: metrics, config: config, now: func() time.Time { return time.Now().UTC() }}
}

// TokenDigest is the value stored in user_sessions for token.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue signs a fresh token for userID and stores its digest.
func (s *SessionService) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.TTL)
	claims := &models.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	session := &models.Session{UserID: userID, TokenDigest: TokenDigest(signed), ExpiresAt: expiresAt}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", time.Time{}, appErrors.Store(err, "failed to store session")
	}
	return signed, expiresAt, nil
}

func (s *SessionService) parse(token string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *SessionService) reject(reason string, err error) error {
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Debug("session rejected", fields...)
	return appErrors.Clone(appErrors.ErrInvalidSession, "")
}

// Validate resolves token to its user. Every rejection is the same
// ErrInvalidSession; the reason only appears in debug logs.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, s.reject("missing", nil)
	}

	claims, err := s.parse(token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, s.reject("malformed", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, s.reject("expired", err)
		default:
			return nil, s.reject("signature", err)
		}
	}

	session, user, err := s.repo.FindByDigest(ctx, TokenDigest(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject("unknown", nil)
		}
		return nil, appErrors.Store(err, "failed to load session")
	}

	switch {
	case !s.now().Before(session.ExpiresAt):
		return nil, s.reject("expired", nil)
	case session.UserID != claims.UserID:
		return nil, s.reject("user_mismatch", nil)
	case !user.Active:
		return nil, s.reject("inactive", nil)
	}
	return user, nil
}

// Revoke deletes the session for token. Unknown tokens are not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	n, err := s.repo.DeleteByDigest(ctx, TokenDigest(token))
	if err != nil {
		return appErrors.Store(err, "failed to revoke session")
	}
	if n == 0 {
		s.logger.Debug("revoke of unknown session")
	}
	return nil
}

// PurgeExpired removes expired session rows and returns how many went.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, appErrors.Store(err, "failed to purge sessions")
	}
	s.metrics.AddSessionsPurged(n)
	return n, nil
}
