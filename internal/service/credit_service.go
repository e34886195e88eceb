package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type creditStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type creditRegistrationSource interface {
	ListQualifyingRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.RegistrationRef, error)
}

type creditAttendanceSource interface {
	ListConfirmedRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.AttendanceRef, error)
}

type creditActivityReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Activity, error)
}

// CreditService intersects registrations and attendance into the credited
// activity set for a student and semester.
type CreditService struct {
	students      creditStudentReader
	scopes        scopeResolver
	registrations creditRegistrationSource
	attendance    creditAttendanceSource
	activities    creditActivityReader
	logger        *zap.Logger
}

// NewCreditService builds a CreditService.
func NewCreditService(
	students creditStudentReader,
	scopes scopeResolver,
	registrations creditRegistrationSource,
	attendance creditAttendanceSource,
	activities creditActivityReader,
	logger *zap.Logger,
) *CreditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditService{
		students:      students,
		scopes:        scopes,
		registrations: registrations,
		attendance:    attendance,
		activities:    activities,
		logger:        logger,
	}
}

// CreditedActivitiesForStudent computes the credited set: activities for
// which the student holds both a qualifying registration and a confirmed
// attendance record, restricted to creators of the student's class. A
// registration alone never earns credit, and neither does a stray check-in
// without a registration. Any fetch error aborts the whole call; no partial
// set is ever returned.
func (s *CreditService) CreditedActivitiesForStudent(ctx context.Context, studentID, semesterKey string) ([]models.CreditedActivity, error) {
	if _, err := ParseSemesterKey(semesterKey); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	creatorSet, err := s.scopes.ResolveClassCreators(ctx, student.ClassID)
	if err != nil {
		return nil, err
	}
	if len(creatorSet) == 0 {
		return nil, nil
	}
	creators := make([]string, 0, len(creatorSet))
	for id := range creatorSet {
		creators = append(creators, id)
	}
	sort.Strings(creators)

	// The two fetches have no ordering dependency.
	var (
		wg     sync.WaitGroup
		regs   []models.RegistrationRef
		atts   []models.AttendanceRef
		regErr error
		attErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		regs, regErr = s.registrations.ListQualifyingRefs(ctx, studentID, semesterKey, creators)
	}()
	go func() {
		defer wg.Done()
		atts, attErr = s.attendance.ListConfirmedRefs(ctx, studentID, semesterKey, creators)
	}()
	wg.Wait()
	if regErr != nil {
		return nil, appErrors.Wrap(regErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch registrations")
	}
	if attErr != nil {
		return nil, appErrors.Wrap(attErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance")
	}

	registered := make(map[string]struct{}, len(regs))
	for _, reg := range regs {
		if reg.Status.Qualifying() {
			registered[reg.ActivityID] = struct{}{}
		}
	}

	// Dedup attendance by natural key: two rows for the same
	// (student, activity) pair collapse to one entry regardless of row id.
	attended := make(map[string]struct{}, len(atts))
	for _, att := range atts {
		if !att.Confirmed {
			continue
		}
		if _, dup := attended[att.ActivityID]; dup {
			s.logger.Warn("duplicate attendance rows for pair",
				zap.String("student_id", studentID),
				zap.String("activity_id", att.ActivityID),
				zap.String("row_id", att.ID),
			)
			continue
		}
		attended[att.ActivityID] = struct{}{}
	}

	creditedIDs := make([]string, 0, len(registered))
	for activityID := range registered {
		if _, ok := attended[activityID]; ok {
			creditedIDs = append(creditedIDs, activityID)
		}
	}
	if len(creditedIDs) == 0 {
		return nil, nil
	}
	sort.Strings(creditedIDs)

	activities, err := s.activities.ListByIDs(ctx, creditedIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credited activities")
	}

	credited := make([]models.CreditedActivity, 0, len(activities))
	for _, a := range activities {
		credited = append(credited, models.CreditedActivity{
			ActivityID:   a.ID,
			ActivityName: a.Name,
			TypeID:       a.TypeID,
			PointsValue:  a.PointsValue,
			SemesterKey:  a.SemesterKey,
		})
	}
	return credited, nil
}
