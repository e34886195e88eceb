package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type scopeResolver interface {
	ResolveClassCreators(ctx context.Context, classID string) (map[string]struct{}, error)
	ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error)
}

type accessStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// AccessService makes class-scoped authorization decisions. It never
// mutates state; a denial is a computed false, not an error.
type AccessService struct {
	scopes   scopeResolver
	students accessStudentReader
	logger   *zap.Logger
}

// NewAccessService builds an AccessService.
func NewAccessService(scopes scopeResolver, students accessStudentReader, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{scopes: scopes, students: students, logger: logger}
}

// CanViewActivity decides whether the actor may see the activity. Students
// and monitors see activities created within their own class; teachers see
// activities created within any of their homeroom classes plus their own.
func (s *AccessService) CanViewActivity(ctx context.Context, actor *models.JWTClaims, activity *models.Activity) (bool, error) {
	if actor == nil || activity == nil {
		return false, appErrors.ErrUnauthorized
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true, nil

	case models.RoleStudent, models.RoleClassMonitor:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		creators, err := s.scopes.ResolveClassCreators(ctx, student.ClassID)
		if err != nil {
			return false, err
		}
		_, ok := creators[activity.CreatorUserID]
		return ok, nil

	case models.RoleTeacher:
		if activity.CreatorUserID == actor.UserID {
			return true, nil
		}
		classIDs, err := s.scopes.ResolveTeacherClasses(ctx, actor.UserID)
		if err != nil {
			return false, err
		}
		for _, classID := range classIDs {
			creators, err := s.scopes.ResolveClassCreators(ctx, classID)
			if err != nil {
				return false, err
			}
			if _, ok := creators[activity.CreatorUserID]; ok {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, nil
	}
}

// CanViewStudent decides whether the actor may read a student's scores and
// credits. Students see only themselves, monitors their classmates, teachers
// the students of their homeroom classes.
func (s *AccessService) CanViewStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (bool, error) {
	if actor == nil {
		return false, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return true, nil
	}

	target, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	switch actor.Role {
	case models.RoleStudent:
		return target.UserID == actor.UserID, nil

	case models.RoleClassMonitor:
		self, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return self.ClassID == target.ClassID, nil

	case models.RoleTeacher:
		classIDs, err := s.scopes.ResolveTeacherClasses(ctx, actor.UserID)
		if err != nil {
			return false, err
		}
		for _, classID := range classIDs {
			if classID == target.ClassID {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, nil
	}
}

// BuildVisibilityFilter computes the creator-scoped restriction for list
// queries. The filter is pushed down to SQL; the full activity table is
// never materialized and filtered in memory.
func (s *AccessService) BuildVisibilityFilter(ctx context.Context, actor *models.JWTClaims) (models.VisibilityFilter, error) {
	if actor == nil {
		return models.VisibilityFilter{}, appErrors.ErrUnauthorized
	}

	switch actor.Role {
	case models.RoleAdmin:
		return models.UnrestrictedVisibility(), nil

	case models.RoleStudent, models.RoleClassMonitor:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.VisibilityFilter{}, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
			}
			return models.VisibilityFilter{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		creators, err := s.scopes.ResolveClassCreators(ctx, student.ClassID)
		if err != nil {
			return models.VisibilityFilter{}, err
		}
		return models.VisibilityOf(creators), nil

	case models.RoleTeacher:
		classIDs, err := s.scopes.ResolveTeacherClasses(ctx, actor.UserID)
		if err != nil {
			return models.VisibilityFilter{}, err
		}
		union := map[string]struct{}{actor.UserID: {}}
		for _, classID := range classIDs {
			creators, err := s.scopes.ResolveClassCreators(ctx, classID)
			if err != nil {
				return models.VisibilityFilter{}, err
			}
			for id := range creators {
				union[id] = struct{}{}
			}
		}
		return models.VisibilityOf(union), nil

	default:
		// Unknown roles see nothing rather than everything.
		return models.VisibilityFilter{CreatorUserIDs: []string{}}, nil
	}
}
