package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type registrationStoreStub struct {
	byID       map[string]*models.Registration
	byPair     map[string]*models.Registration
	created    []*models.Registration
	statusSets map[string]models.RegistrationStatus
}

func newRegistrationStoreStub() *registrationStoreStub {
	return &registrationStoreStub{
		byID:       make(map[string]*models.Registration),
		byPair:     make(map[string]*models.Registration),
		statusSets: make(map[string]models.RegistrationStatus),
	}
}

func (s *registrationStoreStub) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := s.byID[id]; ok {
		return reg, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Registration, error) {
	if reg, ok := s.byPair[studentID+"/"+activityID]; ok {
		return reg, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) Create(ctx context.Context, reg *models.Registration) error {
	reg.ID = "reg-new"
	s.created = append(s.created, reg)
	return nil
}

func (s *registrationStoreStub) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	s.statusSets[id] = status
	return nil
}

type registrationActivityStub struct {
	activities map[string]*models.Activity
}

func (s registrationActivityStub) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := s.activities[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

type registrationStudentStub struct {
	byUserID map[string]*models.Student
}

func (s registrationStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func (s registrationStudentStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if st, ok := s.byUserID[userID]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type gateStub struct {
	allowed        bool
	studentBlocked bool
	err            error
}

func (s gateStub) CanViewActivity(ctx context.Context, actor *models.JWTClaims, activity *models.Activity) (bool, error) {
	return s.allowed, s.err
}

func (s gateStub) CanViewStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (bool, error) {
	return !s.studentBlocked, s.err
}

type invalidatorStub struct {
	studentIDs []string
}

func (s *invalidatorStub) InvalidateStudent(ctx context.Context, studentID string) {
	s.studentIDs = append(s.studentIDs, studentID)
}

var registrationTestNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func registrationFixture(store *registrationStoreStub, gate gateStub, scores *invalidatorStub) *RegistrationService {
	activities := registrationActivityStub{activities: map[string]*models.Activity{
		"act-open": {
			ID:     "act-open",
			Status: models.ActivityStatusApproved,
			EndsAt: registrationTestNow.Add(24 * time.Hour),
		},
		"act-ended": {
			ID:     "act-ended",
			Status: models.ActivityStatusApproved,
			EndsAt: registrationTestNow.Add(-time.Hour),
		},
		"act-pending": {
			ID:     "act-pending",
			Status: models.ActivityStatusPending,
			EndsAt: registrationTestNow.Add(24 * time.Hour),
		},
	}}
	students := registrationStudentStub{byUserID: map[string]*models.Student{
		"u-s1": {ID: "st-1", UserID: "u-s1", ClassID: "cl-1"},
	}}
	var inv scoreInvalidator
	if scores != nil {
		inv = scores
	}
	svc := NewRegistrationService(store, activities, students, gate, inv, nil)
	svc.now = func() time.Time { return registrationTestNow }
	return svc
}

func TestRegisterCreatesPending(t *testing.T) {
	store := newRegistrationStoreStub()
	svc := registrationFixture(store, gateStub{allowed: true}, nil)

	reg, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-open")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Equal(t, "st-1", reg.StudentID)
	require.Len(t, store.created, 1)
}

func TestRegisterRefusedAfterActivityEnd(t *testing.T) {
	svc := registrationFixture(newRegistrationStoreStub(), gateStub{allowed: true}, nil)

	_, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-ended")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivityEnded.Code, appErrors.FromError(err).Code)
}

func TestRegisterRefusedOnUnapprovedActivity(t *testing.T) {
	svc := registrationFixture(newRegistrationStoreStub(), gateStub{allowed: true}, nil)

	_, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-pending")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterOutOfScopeReadsAsNotFound(t *testing.T) {
	svc := registrationFixture(newRegistrationStoreStub(), gateStub{allowed: false}, nil)

	_, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-open")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byPair["st-1/act-open"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusApproved,
	}
	svc := registrationFixture(store, gateStub{allowed: true}, nil)

	_, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-open")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestRegisterReopensRejectedRegistration(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byPair["st-1/act-open"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusRejected,
	}
	svc := registrationFixture(store, gateStub{allowed: true}, nil)

	reg, err := svc.Register(context.Background(), claimsFor("u-s1", models.RoleStudent), "act-open")
	require.NoError(t, err)
	assert.Equal(t, "reg-1", reg.ID)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Equal(t, models.RegistrationStatusPending, store.statusSets["reg-1"])
	assert.Empty(t, store.created)
}

func TestDecideApprovesAndInvalidatesScore(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byID["reg-1"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusPending,
	}
	scores := &invalidatorStub{}
	svc := registrationFixture(store, gateStub{allowed: true}, scores)

	reg, err := svc.Decide(context.Background(), claimsFor("u-t1", models.RoleTeacher), "reg-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusApproved, reg.Status)
	assert.Equal(t, []string{"st-1"}, scores.studentIDs)
}

func TestDecideRefusedAfterActivityEnd(t *testing.T) {
	// A pending registration on an ended activity can no longer be decided,
	// so credit cannot be granted retroactively.
	store := newRegistrationStoreStub()
	store.byID["reg-1"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-ended",
		Status: models.RegistrationStatusPending,
	}
	svc := registrationFixture(store, gateStub{allowed: true}, nil)

	_, err := svc.Decide(context.Background(), claimsFor("u-t1", models.RoleTeacher), "reg-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivityEnded.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.statusSets)
}

func TestDecideRejectsNonPending(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byID["reg-1"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusApproved,
	}
	svc := registrationFixture(store, gateStub{allowed: true}, nil)

	_, err := svc.Decide(context.Background(), claimsFor("u-t1", models.RoleTeacher), "reg-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDecideOutOfScopeForbidden(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byID["reg-1"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusPending,
	}
	svc := registrationFixture(store, gateStub{allowed: false}, nil)

	_, err := svc.Decide(context.Background(), claimsFor("u-t1", models.RoleTeacher), "reg-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDecideAdminBypassesScopeGate(t *testing.T) {
	store := newRegistrationStoreStub()
	store.byID["reg-1"] = &models.Registration{
		ID: "reg-1", StudentID: "st-1", ActivityID: "act-open",
		Status: models.RegistrationStatusPending,
	}
	svc := registrationFixture(store, gateStub{allowed: false}, nil)

	reg, err := svc.Decide(context.Background(), claimsFor("u-admin", models.RoleAdmin), "reg-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRejected, reg.Status)
}
