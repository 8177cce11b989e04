package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hplatform/homework-api/internal/models"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
)

const assignmentListCacheKey = "assignments:list"

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context) ([]models.AssignmentDetail, error)
}

type teacherReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

// ListCache abstracts the redis-backed list cache.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateAssignmentRequest holds payload for publishing an assignment.
type CreateAssignmentRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// AssignmentService handles assignment use-cases.
type AssignmentService struct {
	repo      assignmentRepository
	teachers  teacherReader
	cache     ListCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service. A nil cache
// disables list caching.
func NewAssignmentService(repo assignmentRepository, teachers teacherReader, cache ListCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, teachers: teachers, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create publishes a new assignment. Only teachers may create; the
// creator is bound to the caller's teacher profile.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest, claims *models.JWTClaims) (*models.AssignmentDetail, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title is required")
	}

	teacher, err := s.teachers.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no teacher profile for caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}

	assignment := &models.Assignment{
		Title:       req.Title,
		Description: req.Description,
		CreatedByID: teacher.ID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, assignmentListCacheKey); err != nil {
			s.logger.Warn("failed to invalidate assignment cache", zap.Error(err))
		}
	}

	return &models.AssignmentDetail{Assignment: *assignment, CreatedByName: teacher.Username}, nil
}

// List returns the assignment catalogue, served from cache when warm.
// Teacher only, matching the create permission.
func (s *AssignmentService) List(ctx context.Context, claims *models.JWTClaims) ([]models.AssignmentDetail, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can list assignments")
	}
	if s.cache != nil {
		var cached []models.AssignmentDetail
		if err := s.cache.Get(ctx, assignmentListCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("assignment cache read failed", zap.Error(err))
		}
	}

	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, assignmentListCacheKey, assignments, s.cacheTTL); err != nil {
			s.logger.Warn("assignment cache write failed", zap.Error(err))
		}
	}

	return assignments, nil
}

// Get returns a single assignment. Teacher only.
func (s *AssignmentService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.AssignmentDetail, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can view assignments")
	}
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}
