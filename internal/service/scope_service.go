package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type scopeClassReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSection, error)
	ListIDsByHomeroomTeacher(ctx context.Context, teacherID string) ([]string, error)
}

type scopeMemberLister interface {
	ListMembers(ctx context.Context, classID string) ([]models.ClassMember, error)
}

// ScopeService resolves class creator sets: the user identities treated as
// the authorized source of activities visible to a class.
type ScopeService struct {
	classes  scopeClassReader
	students scopeMemberLister
	logger   *zap.Logger
}

// NewScopeService builds a ScopeService.
func NewScopeService(classes scopeClassReader, students scopeMemberLister, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{classes: classes, students: students, logger: logger}
}

// ResolveClassCreators returns the union of every student user id in the
// class plus the homeroom teacher if one is assigned. A missing class yields
// an empty set, not an error: "nothing visible" is a valid outcome and
// callers must not treat it as a fault.
func (s *ScopeService) ResolveClassCreators(ctx context.Context, classID string) (map[string]struct{}, error) {
	creators := make(map[string]struct{})
	if classID == "" {
		return creators, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return creators, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	members, err := s.students.ListMembers(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class members")
	}

	for _, m := range members {
		if m.UserID != "" {
			creators[m.UserID] = struct{}{}
		}
	}
	if class.HomeroomTeacherID != nil && *class.HomeroomTeacherID != "" {
		creators[*class.HomeroomTeacherID] = struct{}{}
	}
	return creators, nil
}

// ResolveTeacherClasses returns the IDs of every class the teacher advises.
func (s *ScopeService) ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error) {
	ids, err := s.classes.ListIDsByHomeroomTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher classes")
	}
	return ids, nil
}
