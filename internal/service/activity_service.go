package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type activityStore interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	Create(ctx context.Context, activity *models.Activity) error
	UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error
}

type activityAccessGate interface {
	CanViewActivity(ctx context.Context, actor *models.JWTClaims, activity *models.Activity) (bool, error)
	BuildVisibilityFilter(ctx context.Context, actor *models.JWTClaims) (models.VisibilityFilter, error)
}

type activityAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ActivityService manages the conduct activity catalog. Every read is
// filtered through the class-scoped access gate.
type ActivityService struct {
	repo      activityStore
	gate      activityAccessGate
	audit     activityAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService builds an ActivityService.
func NewActivityService(repo activityStore, gate activityAccessGate, audit activityAuditor, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, gate: gate, audit: audit, validator: validate, logger: logger}
}

// Get returns one activity if the actor's scope covers it. Activities
// outside the actor's scope read as not found, not forbidden, so their
// existence leaks nothing.
func (s *ActivityService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	allowed, err := s.gate.CanViewActivity(ctx, actor, activity)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return activity, nil
}

// List returns the activities visible to the actor, filtered and paginated.
func (s *ActivityService) List(ctx context.Context, actor *models.JWTClaims, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	visibility, err := s.gate.BuildVisibilityFilter(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	filter.Visibility = visibility

	if filter.SemesterKey != "" {
		if _, err := ParseSemesterKey(filter.SemesterKey); err != nil {
			return nil, nil, err
		}
	}

	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return activities, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new activity in PENDING status with the actor as
// creator.
func (s *ActivityService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateActivityRequest) (*models.Activity, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if _, err := ParseSemesterKey(req.SemesterKey); err != nil {
		return nil, err
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endsAt must be after startsAt")
	}

	activity := &models.Activity{
		Name:          req.Name,
		CreatorUserID: actor.UserID,
		Status:        models.ActivityStatusPending,
		SemesterKey:   req.SemesterKey,
		PointsValue:   req.PointsValue,
		TypeID:        req.TypeID,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}

	s.logger.Info("activity created",
		zap.String("activity_id", activity.ID),
		zap.String("creator_id", actor.UserID),
		zap.String("semester_key", activity.SemesterKey),
	)
	return activity, nil
}

// UpdateStatus moves an activity through its approval lifecycle and records
// the transition in the audit trail.
func (s *ActivityService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateActivityStatusRequest) (*models.Activity, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	status := models.ActivityStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown activity status")
	}

	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if activity.Status == status {
		return activity, nil
	}

	oldStatus := activity.Status
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity status")
	}
	activity.Status = status

	oldValues, _ := json.Marshal(map[string]string{"status": string(oldStatus)})
	newValues, _ := json.Marshal(map[string]string{"status": string(status)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionActivityStatus,
		Resource:   "activity",
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record activity status audit log", zap.Error(err))
	}

	return activity, nil
}
