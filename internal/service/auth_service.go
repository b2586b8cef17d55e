package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
}

type sessionManager interface {
	Issue(ctx context.Context, userID int64) (string, time.Time, error)
	Validate(ctx context.Context, token string) (*models.User, error)
	Revoke(ctx context.Context, token string) error
}

type loginAttemptStore interface {
	Count(ctx context.Context, email string) (int64, error)
	Increment(ctx context.Context, email string, window time.Duration) (int64, error)
	Reset(ctx context.Context, email string) error
}

// AuthConfig defines registration and login policy.
type AuthConfig struct {
	StaffKeyword     string
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

// AuthService provides registration, login, session validation and logout.
type AuthService struct {
	repo        authUserRepository
	sessions    sessionManager
	credentials *CredentialService
	attempts    loginAttemptStore
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	config      AuthConfig
	now         func() time.Time
}

// NewAuthService constructs an AuthService instance. attempts may be nil, which disables login throttling.
func NewAuthService(repo authUserRepository, sessions sessionManager, credentials *CredentialService, attempts loginAttemptStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if credentials == nil {
		credentials = NewCredentialService()
	}
	if config.LoginLockout <= 0 {
		config.LoginLockout = 15 * time.Minute
	}
	return &AuthService{
		repo:        repo,
		sessions:    sessions,
		credentials: credentials,
		attempts:    attempts,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// keywordMatches is the only place the staff registration keyword is checked.
// An unset keyword closes privileged self-registration entirely.
func (s *AuthService) keywordMatches(candidate string) bool {
	if s.config.StaffKeyword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.config.StaffKeyword)) == 1
}

// Register creates an account. Staff and admin accounts require the registration keyword.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "userType, name, email, and password are required")
	}

	if req.UserType.Privileged() && !s.keywordMatches(req.AdminKeyword) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid staff keyword, only authorized personnel can register as staff or admin")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err, "failed to check email")
	}

	user := &models.User{
		UserType: req.UserType,
		Name:     req.Name,
		Email:    req.Email,
		Active:   true,
	}
	if req.UserType == models.UserTypeStudent {
		user.StudentID = optional(req.StudentID)
		user.ParentEmail = optional(normalizeEmail(req.ParentEmail))
		if user.StudentID != nil {
			exists, err := s.repo.ExistsByStudentID(ctx, *user.StudentID)
			if err != nil {
				return nil, appErrors.Store(err, "failed to check student id")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrDuplicate, "student id already exists")
			}
		}
	} else {
		user.Department = optional(req.Department)
		user.Role = optional(req.Role)
	}

	hash, err := s.credentials.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "user with this email or student id already exists")
		}
		return nil, appErrors.Store(err, "failed to create user")
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("user_type", string(user.UserType)))
	return user, nil
}

func (s *AuthService) throttled(ctx context.Context, email string) bool {
	if s.attempts == nil || s.config.LoginMaxAttempts <= 0 {
		return false
	}
	n, err := s.attempts.Count(ctx, email)
	if err != nil {
		s.logger.Warn("login throttle unavailable", zap.Error(err))
		return false
	}
	return n >= int64(s.config.LoginMaxAttempts)
}

func (s *AuthService) loginFailed(ctx context.Context, email, reason string) error {
	s.metrics.RecordLoginFailure(reason)
	if s.attempts != nil && s.config.LoginMaxAttempts > 0 {
		if _, err := s.attempts.Increment(ctx, email, s.config.LoginLockout); err != nil {
			s.logger.Warn("failed to record login attempt", zap.Error(err))
		}
	}
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	if s.throttled(ctx, req.Email) {
		s.metrics.RecordLoginFailure("throttled")
		return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, "")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.loginFailed(ctx, req.Email, "unknown_email")
		}
		return nil, appErrors.Store(err, "failed to fetch user")
	}
	if !user.Active {
		return nil, s.loginFailed(ctx, req.Email, "inactive")
	}
	if !s.credentials.Verify(req.Password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, req.Email, "bad_password")
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, req.Email); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	token, expiresAt, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return &dto.LoginResponse{User: user, SessionToken: token, ExpiresAt: expiresAt}, nil
}

// Validate returns the user owning a live session token.
func (s *AuthService) Validate(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session token is required")
	}
	return s.sessions.Validate(ctx, token)
}

// Logout revokes a session token. Repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "session token is required")
	}
	return s.sessions.Revoke(ctx, token)
}
