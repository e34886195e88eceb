package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type accessScopeStub struct {
	creators  map[string]map[string]struct{}
	homerooms map[string][]string
}

func (s accessScopeStub) ResolveClassCreators(ctx context.Context, classID string) (map[string]struct{}, error) {
	if set, ok := s.creators[classID]; ok {
		return set, nil
	}
	return map[string]struct{}{}, nil
}

func (s accessScopeStub) ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error) {
	return s.homerooms[teacherID], nil
}

type accessStudentStub struct {
	byID     map[string]*models.Student
	byUserID map[string]*models.Student
}

func (s accessStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := s.byID[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s accessStudentStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if st, ok := s.byUserID[userID]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func accessFixture() *AccessService {
	scopes := accessScopeStub{
		creators: map[string]map[string]struct{}{
			"cl-1": {"u-s1": {}, "u-s2": {}, "u-t1": {}},
			"cl-2": {"u-s3": {}, "u-t2": {}},
		},
		homerooms: map[string][]string{
			"u-t1": {"cl-1"},
			"u-t2": {"cl-2"},
		},
	}
	students := accessStudentStub{
		byID: map[string]*models.Student{
			"st-1": {ID: "st-1", UserID: "u-s1", ClassID: "cl-1"},
			"st-2": {ID: "st-2", UserID: "u-s2", ClassID: "cl-1"},
			"st-3": {ID: "st-3", UserID: "u-s3", ClassID: "cl-2"},
		},
		byUserID: map[string]*models.Student{
			"u-s1": {ID: "st-1", UserID: "u-s1", ClassID: "cl-1"},
			"u-s2": {ID: "st-2", UserID: "u-s2", ClassID: "cl-1"},
			"u-s3": {ID: "st-3", UserID: "u-s3", ClassID: "cl-2"},
		},
	}
	return NewAccessService(scopes, students, nil)
}

func claimsFor(userID string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role}
}

func TestCanViewActivityRoleMatrix(t *testing.T) {
	svc := accessFixture()
	inClass := &models.Activity{ID: "act-1", CreatorUserID: "u-s2"}
	otherClass := &models.Activity{ID: "act-2", CreatorUserID: "u-s3"}

	cases := []struct {
		name     string
		actor    *models.JWTClaims
		activity *models.Activity
		want     bool
	}{
		{"admin sees everything", claimsFor("u-admin", models.RoleAdmin), otherClass, true},
		{"student sees classmate's activity", claimsFor("u-s1", models.RoleStudent), inClass, true},
		{"student blocked from other class", claimsFor("u-s1", models.RoleStudent), otherClass, false},
		{"monitor scoped like student", claimsFor("u-s2", models.RoleClassMonitor), inClass, true},
		{"monitor blocked from other class", claimsFor("u-s2", models.RoleClassMonitor), otherClass, false},
		{"teacher sees homeroom class activity", claimsFor("u-t1", models.RoleTeacher), inClass, true},
		{"teacher blocked from other class", claimsFor("u-t1", models.RoleTeacher), otherClass, false},
		{"unknown role sees nothing", claimsFor("u-x", models.UserRole("AUDITOR")), inClass, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CanViewActivity(context.Background(), tc.actor, tc.activity)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanViewActivityTeacherOwnActivity(t *testing.T) {
	svc := accessFixture()
	own := &models.Activity{ID: "act-3", CreatorUserID: "u-t1"}

	got, err := svc.CanViewActivity(context.Background(), claimsFor("u-t1", models.RoleTeacher), own)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCanViewActivityNilActor(t *testing.T) {
	svc := accessFixture()
	_, err := svc.CanViewActivity(context.Background(), nil, &models.Activity{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestCanViewStudentRoleMatrix(t *testing.T) {
	svc := accessFixture()

	cases := []struct {
		name     string
		actor    *models.JWTClaims
		targetID string
		want     bool
	}{
		{"admin sees any student", claimsFor("u-admin", models.RoleAdmin), "st-3", true},
		{"student sees self", claimsFor("u-s1", models.RoleStudent), "st-1", true},
		{"student blocked from classmate", claimsFor("u-s1", models.RoleStudent), "st-2", false},
		{"monitor sees classmate", claimsFor("u-s2", models.RoleClassMonitor), "st-1", true},
		{"monitor blocked from other class", claimsFor("u-s2", models.RoleClassMonitor), "st-3", false},
		{"teacher sees homeroom student", claimsFor("u-t1", models.RoleTeacher), "st-2", true},
		{"teacher blocked from other class", claimsFor("u-t1", models.RoleTeacher), "st-3", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CanViewStudent(context.Background(), tc.actor, tc.targetID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanViewStudentUnknownTarget(t *testing.T) {
	svc := accessFixture()
	_, err := svc.CanViewStudent(context.Background(), claimsFor("u-s1", models.RoleStudent), "st-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBuildVisibilityFilter(t *testing.T) {
	svc := accessFixture()

	admin, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-admin", models.RoleAdmin))
	require.NoError(t, err)
	assert.True(t, admin.Unrestricted)

	student, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-s1", models.RoleStudent))
	require.NoError(t, err)
	assert.False(t, student.Unrestricted)
	assert.ElementsMatch(t, []string{"u-s1", "u-s2", "u-t1"}, student.CreatorUserIDs)

	teacher, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-t1", models.RoleTeacher))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-s1", "u-s2", "u-t1"}, teacher.CreatorUserIDs)

	// A teacher with no homeroom class still carries their own id.
	lone, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-t3", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, []string{"u-t3"}, lone.CreatorUserIDs)

	unknown, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-x", models.UserRole("AUDITOR")))
	require.NoError(t, err)
	assert.False(t, unknown.Unrestricted)
	assert.Empty(t, unknown.CreatorUserIDs)
}

func TestBuildVisibilityFilterStudentWithoutRecord(t *testing.T) {
	svc := accessFixture()
	_, err := svc.BuildVisibilityFilter(context.Background(), claimsFor("u-ghost", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
