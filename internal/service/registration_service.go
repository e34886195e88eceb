package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type registrationStore interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type registrationActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type registrationStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type registrationAccessGate interface {
	CanViewActivity(ctx context.Context, actor *models.JWTClaims, activity *models.Activity) (bool, error)
}

type scoreInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// RegistrationService manages the registration lifecycle: students sign up,
// teachers approve or reject, rejected students may reapply.
type RegistrationService struct {
	repo       registrationStore
	activities registrationActivityReader
	students   registrationStudentReader
	gate       registrationAccessGate
	scores     scoreInvalidator
	now        func() time.Time
	logger     *zap.Logger
}

// NewRegistrationService builds a RegistrationService.
func NewRegistrationService(
	repo registrationStore,
	activities registrationActivityReader,
	students registrationStudentReader,
	gate registrationAccessGate,
	scores scoreInvalidator,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		repo:       repo,
		activities: activities,
		students:   students,
		gate:       gate,
		scores:     scores,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Register signs the acting student up for an activity. Registration is
// refused once the activity's end date has passed, and the activity must be
// inside the student's class scope. A rejected registration is reopened as
// PENDING rather than duplicated; the (student, activity) pair stays unique.
func (s *RegistrationService) Register(ctx context.Context, actor *models.JWTClaims, activityID string) (*models.Registration, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	activity, err := s.activities.FindByID(ctx, activityID)
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

	if activity.Status != models.ActivityStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "activity is not open for registration")
	}
	if activity.Ended(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrActivityEnded, "registration closed: activity has ended")
	}

	existing, err := s.repo.FindByStudentAndActivity(ctx, student.ID, activityID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if existing != nil {
		if existing.Status != models.RegistrationStatusRejected {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration already exists")
		}
		if err := s.repo.UpdateStatus(ctx, existing.ID, models.RegistrationStatusPending); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen registration")
		}
		existing.Status = models.RegistrationStatusPending
		s.logger.Info("registration reopened",
			zap.String("registration_id", existing.ID),
			zap.String("student_id", student.ID),
			zap.String("activity_id", activityID),
		)
		return existing, nil
	}

	reg := &models.Registration{
		StudentID:  student.ID,
		ActivityID: activityID,
		Status:     models.RegistrationStatusPending,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	return reg, nil
}

// Decide approves or rejects a pending registration. Only PENDING
// registrations can be decided; anything else conflicts. No decision is
// possible once the activity has ended, so credit cannot be granted
// retroactively.
func (s *RegistrationService) Decide(ctx context.Context, actor *models.JWTClaims, registrationID string, approve bool) (*models.Registration, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.Status != models.RegistrationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is not pending")
	}

	activity, err := s.activities.FindByID(ctx, reg.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	if actor.Role != models.RoleAdmin {
		allowed, err := s.gate.CanViewActivity(ctx, actor, activity)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "registration is outside your scope")
		}
	}

	if activity.Ended(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrActivityEnded, "decision window closed: activity has ended")
	}

	status := models.RegistrationStatusRejected
	if approve {
		status = models.RegistrationStatusApproved
	}
	if err := s.repo.UpdateStatus(ctx, registrationID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
	}
	reg.Status = status

	if s.scores != nil {
		s.scores.InvalidateStudent(ctx, reg.StudentID)
	}

	s.logger.Info("registration decided",
		zap.String("registration_id", registrationID),
		zap.String("status", string(status)),
		zap.String("decided_by", actor.UserID),
	)
	return reg, nil
}
