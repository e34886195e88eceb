package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassSection, error)
	AssignMonitor(ctx context.Context, classID, studentID string) (*string, error)
}

type classStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ClassService manages class sections and the monitor seat.
type ClassService struct {
	repo     classStore
	students classStudentReader
	audit    classAuditor
	logger   *zap.Logger
}

// NewClassService builds a ClassService.
func NewClassService(repo classStore, students classStudentReader, audit classAuditor, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, students: students, audit: audit, logger: logger}
}

// Get returns a class section.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassSection, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// ListStudents returns the roster of a class.
func (s *ClassService) ListStudents(ctx context.Context, classID string) ([]models.Student, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// AssignMonitor reassigns the class monitor seat. The new monitor must
// belong to the class. Demotion of the previous monitor, promotion of the
// new one and the class pointer update are a single transaction; the result
// is audited with the old and new seat holders.
func (s *ClassService) AssignMonitor(ctx context.Context, actor *models.JWTClaims, classID, studentID string) (*models.ClassSection, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	class, err := s.Get(ctx, classID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.ClassID != classID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to this class")
	}
	if class.MonitorStudentID != nil && *class.MonitorStudentID == studentID {
		return class, nil
	}

	prevStudentID, err := s.repo.AssignMonitor(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign monitor")
	}
	class.MonitorStudentID = &studentID

	oldValues, _ := json.Marshal(map[string]interface{}{"monitor_student_id": prevStudentID})
	newValues, _ := json.Marshal(map[string]string{"monitor_student_id": studentID})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionMonitorReassign,
		Resource:   "class",
		ResourceID: &classID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record monitor reassignment audit log", zap.Error(err))
	}

	s.logger.Info("class monitor reassigned",
		zap.String("class_id", classID),
		zap.String("new_monitor_student_id", studentID),
	)
	return class, nil
}
