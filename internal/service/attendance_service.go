package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type attendanceStore interface {
	Confirm(ctx context.Context, studentID, activityID string) error
	HasConfirmed(ctx context.Context, studentID, activityID string) (bool, error)
}

type attendanceRegistrationReader interface {
	FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Registration, error)
}

type attendanceActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type attendanceAccessGate interface {
	CanViewActivity(ctx context.Context, actor *models.JWTClaims, activity *models.Activity) (bool, error)
	CanViewStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (bool, error)
}

// AttendanceService confirms student check-ins at activities.
type AttendanceService struct {
	repo          attendanceStore
	registrations attendanceRegistrationReader
	activities    attendanceActivityReader
	students      attendanceStudentReader
	gate          attendanceAccessGate
	scores        scoreInvalidator
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAttendanceService builds an AttendanceService.
func NewAttendanceService(
	repo attendanceStore,
	registrations attendanceRegistrationReader,
	activities attendanceActivityReader,
	students attendanceStudentReader,
	gate attendanceAccessGate,
	scores scoreInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:          repo,
		registrations: registrations,
		activities:    activities,
		students:      students,
		gate:          gate,
		scores:        scores,
		validator:     validate,
		logger:        logger,
	}
}

// Confirm records a confirmed check-in for the (student, activity) pair.
// Both the activity and the target student must be inside the confirmer's
// scope, and the student must hold an approved registration. The upsert plus
// status flip run in one transaction, so the call is idempotent. Cached
// scores for the student are invalidated afterwards.
func (s *AttendanceService) Confirm(ctx context.Context, actor *models.JWTClaims, req dto.ConfirmAttendanceRequest) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	activity, err := s.activities.FindByID(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	if actor.Role != models.RoleAdmin {
		allowed, err := s.gate.CanViewActivity(ctx, actor, activity)
		if err != nil {
			return err
		}
		if !allowed {
			return appErrors.Clone(appErrors.ErrForbidden, "activity is outside your scope")
		}

		allowed, err = s.gate.CanViewStudent(ctx, actor, req.StudentID)
		if err != nil {
			return err
		}
		if !allowed {
			return appErrors.Clone(appErrors.ErrForbidden, "student is outside your scope")
		}
	}

	// Monitors check in classmates; their own attendance needs a teacher.
	if actor.Role == models.RoleClassMonitor {
		target, err := s.students.FindByID(ctx, req.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if target.UserID == actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "monitors cannot confirm their own attendance")
		}
	}

	reg, err := s.registrations.FindByStudentAndActivity(ctx, req.StudentID, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no registration for this activity")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if !reg.Status.Qualifying() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "registration is not approved")
	}

	if err := s.repo.Confirm(ctx, req.StudentID, req.ActivityID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm attendance")
	}

	if s.scores != nil {
		s.scores.InvalidateStudent(ctx, req.StudentID)
	}

	s.logger.Info("attendance confirmed",
		zap.String("student_id", req.StudentID),
		zap.String("activity_id", req.ActivityID),
		zap.String("confirmed_by", actor.UserID),
	)
	return nil
}

// HasConfirmed reports whether a confirmed record exists for the pair.
func (s *AttendanceService) HasConfirmed(ctx context.Context, studentID, activityID string) (bool, error) {
	ok, err := s.repo.HasConfirmed(ctx, studentID, activityID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	return ok, nil
}
