package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type creditStudentStub struct {
	students map[string]*models.Student
}

func (s creditStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type creditScopeStub struct {
	creators map[string]map[string]struct{}
	err      error
}

func (s creditScopeStub) ResolveClassCreators(ctx context.Context, classID string) (map[string]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	if set, ok := s.creators[classID]; ok {
		return set, nil
	}
	return map[string]struct{}{}, nil
}

func (s creditScopeStub) ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error) {
	return nil, nil
}

type creditRegistrationStub struct {
	refs     []models.RegistrationRef
	err      error
	creators []string
}

func (s *creditRegistrationStub) ListQualifyingRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.RegistrationRef, error) {
	s.creators = creatorUserIDs
	return s.refs, s.err
}

type creditAttendanceStub struct {
	refs []models.AttendanceRef
	err  error
}

func (s *creditAttendanceStub) ListConfirmedRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.AttendanceRef, error) {
	return s.refs, s.err
}

type creditActivityStub struct {
	activities map[string]models.Activity
	requested  []string
}

func (s *creditActivityStub) ListByIDs(ctx context.Context, ids []string) ([]models.Activity, error) {
	s.requested = ids
	out := make([]models.Activity, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.activities[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func creditFixtureStudent() creditStudentStub {
	return creditStudentStub{students: map[string]*models.Student{
		"st-1": {ID: "st-1", UserID: "u-1", ClassID: "cl-1"},
	}}
}

func TestCreditedActivitiesIntersection(t *testing.T) {
	regs := &creditRegistrationStub{refs: []models.RegistrationRef{
		{ActivityID: "act-both", Status: models.RegistrationStatusApproved},
		{ActivityID: "act-reg-only", Status: models.RegistrationStatusApproved},
		{ActivityID: "act-pending", Status: models.RegistrationStatusPending},
	}}
	atts := &creditAttendanceStub{refs: []models.AttendanceRef{
		{ID: "a-1", ActivityID: "act-both", Confirmed: true},
		{ID: "a-2", ActivityID: "act-att-only", Confirmed: true},
		{ID: "a-3", ActivityID: "act-pending", Confirmed: true},
	}}
	acts := &creditActivityStub{activities: map[string]models.Activity{
		"act-both": {ID: "act-both", Name: "Blood drive", TypeID: "volunteer", PointsValue: decimal.RequireFromString("2.5"), SemesterKey: "1-2025"},
	}}
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{
		"cl-1": {"u-teacher": {}},
	}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, acts, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	require.Len(t, credited, 1)
	assert.Equal(t, "act-both", credited[0].ActivityID)
	assert.True(t, credited[0].PointsValue.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, []string{"act-both"}, acts.requested)
	assert.Equal(t, []string{"u-teacher"}, regs.creators)
}

func TestCreditedActivitiesParticipatedQualifies(t *testing.T) {
	regs := &creditRegistrationStub{refs: []models.RegistrationRef{
		{ActivityID: "act-1", Status: models.RegistrationStatusParticipated},
	}}
	atts := &creditAttendanceStub{refs: []models.AttendanceRef{
		{ID: "a-1", ActivityID: "act-1", Confirmed: true},
	}}
	acts := &creditActivityStub{activities: map[string]models.Activity{
		"act-1": {ID: "act-1", PointsValue: decimal.NewFromInt(3)},
	}}
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{"cl-1": {"u-t": {}}}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, acts, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	require.Len(t, credited, 1)
}

func TestCreditedActivitiesDuplicateAttendanceCollapses(t *testing.T) {
	regs := &creditRegistrationStub{refs: []models.RegistrationRef{
		{ActivityID: "act-1", Status: models.RegistrationStatusApproved},
	}}
	// Two attendance rows for the same pair differ only by row id.
	atts := &creditAttendanceStub{refs: []models.AttendanceRef{
		{ID: "row-1", ActivityID: "act-1", Confirmed: true},
		{ID: "row-2", ActivityID: "act-1", Confirmed: true},
	}}
	acts := &creditActivityStub{activities: map[string]models.Activity{
		"act-1": {ID: "act-1", PointsValue: decimal.NewFromInt(5)},
	}}
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{"cl-1": {"u-t": {}}}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, acts, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	require.Len(t, credited, 1)
	assert.Equal(t, []string{"act-1"}, acts.requested)
}

func TestCreditedActivitiesUnconfirmedAttendanceIgnored(t *testing.T) {
	regs := &creditRegistrationStub{refs: []models.RegistrationRef{
		{ActivityID: "act-1", Status: models.RegistrationStatusApproved},
	}}
	atts := &creditAttendanceStub{refs: []models.AttendanceRef{
		{ID: "a-1", ActivityID: "act-1", Confirmed: false},
	}}
	acts := &creditActivityStub{activities: map[string]models.Activity{}}
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{"cl-1": {"u-t": {}}}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, acts, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.Nil(t, credited)
}

func TestCreditedActivitiesEmptyCreatorSet(t *testing.T) {
	regs := &creditRegistrationStub{}
	atts := &creditAttendanceStub{}
	acts := &creditActivityStub{}
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, acts, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.Nil(t, credited)
	// The fetches never run when the class resolves to nobody.
	assert.Nil(t, regs.creators)
}

func TestCreditedActivitiesMalformedSemesterKey(t *testing.T) {
	svc := NewCreditService(creditFixtureStudent(), creditScopeStub{}, &creditRegistrationStub{}, &creditAttendanceStub{}, &creditActivityStub{}, nil)

	_, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "semester-nonsense")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedSemesterKey.Code, appErrors.FromError(err).Code)
}

func TestCreditedActivitiesUnknownStudent(t *testing.T) {
	svc := NewCreditService(creditStudentStub{}, creditScopeStub{}, &creditRegistrationStub{}, &creditAttendanceStub{}, &creditActivityStub{}, nil)

	_, err := svc.CreditedActivitiesForStudent(context.Background(), "missing", "1-2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreditedActivitiesFetchErrorAborts(t *testing.T) {
	scopes := creditScopeStub{creators: map[string]map[string]struct{}{"cl-1": {"u-t": {}}}}
	regs := &creditRegistrationStub{err: errors.New("db down")}
	atts := &creditAttendanceStub{refs: []models.AttendanceRef{
		{ID: "a-1", ActivityID: "act-1", Confirmed: true},
	}}

	svc := NewCreditService(creditFixtureStudent(), scopes, regs, atts, &creditActivityStub{}, nil)

	credited, err := svc.CreditedActivitiesForStudent(context.Background(), "st-1", "1-2025")
	require.Error(t, err)
	assert.Nil(t, credited)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
