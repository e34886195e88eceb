package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type notificationStore interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
	ListForReceiver(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationParticipantSource interface {
	ListParticipantUserIDs(ctx context.Context, activityID string) ([]string, error)
}

type notificationStudentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type notificationMemberLister interface {
	ListMembers(ctx context.Context, classID string) ([]models.ClassMember, error)
}

// NotificationService expands broadcast targets into recipient lists and
// manages the notification inbox. Scope and activity reference travel as
// structured values; nothing is ever recovered by parsing body text.
type NotificationService struct {
	repo          notificationStore
	registrations notificationParticipantSource
	students      notificationStudentReader
	members       notificationMemberLister
	scopes        scopeResolver
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewNotificationService builds a NotificationService.
func NewNotificationService(
	repo notificationStore,
	registrations notificationParticipantSource,
	students notificationStudentReader,
	members notificationMemberLister,
	scopes scopeResolver,
	validate *validator.Validate,
	logger *zap.Logger,
) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:          repo,
		registrations: registrations,
		students:      students,
		members:       members,
		scopes:        scopes,
		validator:     validate,
		logger:        logger,
	}
}

// ExpandRecipients resolves a broadcast target into concrete user ids.
// CLASS scope excludes the acting user: a broadcasting teacher does not
// receive their own announcement. An unresolvable scope yields an empty
// list, which callers surface as a soft "no recipients resolved" warning.
func (s *NotificationService) ExpandRecipients(ctx context.Context, scope models.NotificationScope, actingUserID string, targetID string) ([]string, error) {
	switch scope {
	case models.ScopeSingle:
		if targetID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "targetId is required for SINGLE scope")
		}
		return []string{targetID}, nil

	case models.ScopeClass:
		classIDs, err := s.resolveActorClasses(ctx, actingUserID)
		if err != nil {
			return nil, err
		}
		recipients := make(map[string]struct{})
		for _, classID := range classIDs {
			members, err := s.members.ListMembers(ctx, classID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class members")
			}
			for _, m := range members {
				if m.UserID != "" && m.UserID != actingUserID {
					recipients[m.UserID] = struct{}{}
				}
			}
		}
		return sortedIDs(recipients), nil

	case models.ScopeActivity:
		if targetID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "targetId is required for ACTIVITY scope")
		}
		userIDs, err := s.registrations.ListParticipantUserIDs(ctx, targetID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity participants")
		}
		dedup := make(map[string]struct{}, len(userIDs))
		for _, id := range userIDs {
			dedup[id] = struct{}{}
		}
		return sortedIDs(dedup), nil

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown broadcast scope")
	}
}

// resolveActorClasses maps the acting user to the classes their CLASS
// broadcast reaches: a student's own class, or the union of a teacher's
// homeroom classes. No resolvable class means no recipients, not an error.
func (s *NotificationService) resolveActorClasses(ctx context.Context, actingUserID string) ([]string, error) {
	student, err := s.students.FindByUserID(ctx, actingUserID)
	if err == nil {
		return []string{student.ClassID}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	classIDs, err := s.scopes.ResolveTeacherClasses(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	return classIDs, nil
}

// Broadcast expands the target and persists one notification row per
// recipient. Returns the recipient count; zero means the scope resolved to
// nobody.
func (s *NotificationService) Broadcast(ctx context.Context, req dto.BroadcastRequest, actor *models.JWTClaims) (*dto.BroadcastResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid broadcast payload")
	}
	scope := models.NotificationScope(req.Scope)
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown broadcast scope")
	}

	recipients, err := s.ExpandRecipients(ctx, scope, actor.UserID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		s.logger.Info("broadcast resolved no recipients",
			zap.String("scope", string(scope)),
			zap.String("sender_id", actor.UserID),
		)
		return &dto.BroadcastResponse{Recipients: 0, Warning: "no recipients resolved"}, nil
	}

	var activityID *string
	if scope == models.ScopeActivity {
		activityID = &req.TargetID
	}

	notifications := make([]models.Notification, 0, len(recipients))
	for _, receiverID := range recipients {
		notifications = append(notifications, models.Notification{
			SenderID:   actor.UserID,
			ReceiverID: receiverID,
			Title:      req.Title,
			Body:       req.Body,
			Scope:      scope,
			ActivityID: activityID,
		})
	}
	if err := s.repo.InsertBatch(ctx, notifications); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notifications")
	}
	return &dto.BroadcastResponse{Recipients: len(recipients)}, nil
}

// List returns the actor's inbox page.
func (s *NotificationService) List(ctx context.Context, actor *models.JWTClaims, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	notifications, total, err := s.repo.ListForReceiver(ctx, actor.UserID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead flags one notification of the actor as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.JWTClaims, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	ok, err := s.repo.MarkRead(ctx, id, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flags the actor's whole inbox as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkAllRead(ctx, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// CountUnread returns the actor's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
