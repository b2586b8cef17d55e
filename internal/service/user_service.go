package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// UserService handles account administration.
type UserService struct {
	repo        userRepository
	credentials *CredentialService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, credentials *CredentialService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if credentials == nil {
		credentials = NewCredentialService()
	}
	return &UserService{repo: repo, credentials: credentials, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user query")
	}

	filter := models.UserFilter{
		Active:   query.Active,
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if query.UserType != "" {
		userType := models.UserType(query.UserType)
		filter.UserType = &userType
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list users")
	}

	return users, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	return user, nil
}

// CreateAdmin provisions an admin account without the registration keyword.
// It is reachable only from the operator CLI.
func (s *UserService) CreateAdmin(ctx context.Context, req dto.CreateAdminRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, email, and password are required")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err, "failed to check email")
	}

	hash, err := s.credentials.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		UserType:     models.UserTypeAdmin,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Department:   optional(req.Department),
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "user with this email already exists")
		}
		return nil, appErrors.Store(err, "failed to create admin")
	}

	s.logger.Info("admin provisioned", zap.Int64("user_id", user.ID))
	return user, nil
}
