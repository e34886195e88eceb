package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type notificationStoreStub struct {
	inserted  []models.Notification
	insertErr error
	listed    []models.Notification
	total     int
	marked    bool
	unread    int
}

func (s *notificationStoreStub) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	s.inserted = append(s.inserted, notifications...)
	return s.insertErr
}

func (s *notificationStoreStub) ListForReceiver(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.listed, s.total, nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	return s.marked, nil
}

func (s *notificationStoreStub) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

func (s *notificationStoreStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

type participantSourceStub struct {
	userIDs []string
}

func (s participantSourceStub) ListParticipantUserIDs(ctx context.Context, activityID string) ([]string, error) {
	return s.userIDs, nil
}

type notificationStudentStub struct {
	byUserID map[string]*models.Student
}

func (s notificationStudentStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if st, ok := s.byUserID[userID]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type notificationMemberStub struct {
	members map[string][]models.ClassMember
}

func (s notificationMemberStub) ListMembers(ctx context.Context, classID string) ([]models.ClassMember, error) {
	return s.members[classID], nil
}

type notificationScopeStub struct {
	homerooms map[string][]string
}

func (s notificationScopeStub) ResolveClassCreators(ctx context.Context, classID string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s notificationScopeStub) ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error) {
	return s.homerooms[teacherID], nil
}

func newNotificationFixture(store *notificationStoreStub) *NotificationService {
	students := notificationStudentStub{byUserID: map[string]*models.Student{
		"u-s1": {ID: "st-1", UserID: "u-s1", ClassID: "cl-1"},
	}}
	members := notificationMemberStub{members: map[string][]models.ClassMember{
		"cl-1": {
			{StudentID: "st-1", UserID: "u-s1"},
			{StudentID: "st-2", UserID: "u-s2"},
			{StudentID: "st-3", UserID: "u-s3"},
		},
	}}
	scopes := notificationScopeStub{homerooms: map[string][]string{
		"u-t1": {"cl-1"},
	}}
	return NewNotificationService(store, participantSourceStub{userIDs: []string{"u-s2", "u-s3", "u-s2"}}, students, members, scopes, nil, nil)
}

func TestExpandRecipientsSingle(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	recipients, err := svc.ExpandRecipients(context.Background(), models.ScopeSingle, "u-t1", "u-s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-s2"}, recipients)

	_, err = svc.ExpandRecipients(context.Background(), models.ScopeSingle, "u-t1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExpandRecipientsClassExcludesSender(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	// A student broadcasting to their class never receives their own message.
	recipients, err := svc.ExpandRecipients(context.Background(), models.ScopeClass, "u-s1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-s2", "u-s3"}, recipients)
}

func TestExpandRecipientsClassForTeacher(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	recipients, err := svc.ExpandRecipients(context.Background(), models.ScopeClass, "u-t1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-s1", "u-s2", "u-s3"}, recipients)
}

func TestExpandRecipientsClassUnresolvableActor(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	recipients, err := svc.ExpandRecipients(context.Background(), models.ScopeClass, "u-nobody", "")
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestExpandRecipientsActivityDeduplicates(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	recipients, err := svc.ExpandRecipients(context.Background(), models.ScopeActivity, "u-t1", "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-s2", "u-s3"}, recipients)
}

func TestBroadcastPersistsOneRowPerRecipient(t *testing.T) {
	store := &notificationStoreStub{}
	svc := newNotificationFixture(store)

	res, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{
		Scope: "CLASS",
		Title: "Exam schedule",
		Body:  "Room changed to B204",
	}, claimsFor("u-t1", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Recipients)
	assert.Empty(t, res.Warning)

	require.Len(t, store.inserted, 3)
	for _, n := range store.inserted {
		assert.Equal(t, "u-t1", n.SenderID)
		assert.Equal(t, models.ScopeClass, n.Scope)
		assert.Nil(t, n.ActivityID)
	}
}

func TestBroadcastActivityScopeCarriesActivityID(t *testing.T) {
	store := &notificationStoreStub{}
	svc := newNotificationFixture(store)

	res, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{
		Scope:    "ACTIVITY",
		TargetID: "act-1",
		Title:    "Bring gloves",
		Body:     "Cleanup starts at 7am",
	}, claimsFor("u-t1", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Recipients)

	require.NotEmpty(t, store.inserted)
	require.NotNil(t, store.inserted[0].ActivityID)
	assert.Equal(t, "act-1", *store.inserted[0].ActivityID)
}

func TestBroadcastZeroRecipientsIsSoftWarning(t *testing.T) {
	store := &notificationStoreStub{}
	svc := newNotificationFixture(store)

	res, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{
		Scope: "CLASS",
		Title: "Hello",
		Body:  "Anyone there?",
	}, claimsFor("u-nobody", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Recipients)
	assert.Equal(t, "no recipients resolved", res.Warning)
	assert.Empty(t, store.inserted)
}

func TestBroadcastRejectsUnknownScope(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{})

	_, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{
		Scope: "EVERYONE",
		Title: "Hello",
		Body:  "World",
	}, claimsFor("u-t1", models.RoleTeacher))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := newNotificationFixture(&notificationStoreStub{marked: false})

	err := svc.MarkRead(context.Background(), claimsFor("u-s1", models.RoleStudent), "n-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
