package models

import "time"

// NotificationScope is the target breadth of a broadcast.
type NotificationScope string

const (
	ScopeSingle   NotificationScope = "SINGLE"
	ScopeClass    NotificationScope = "CLASS"
	ScopeActivity NotificationScope = "ACTIVITY"
)

// Valid returns true when the scope is a supported value.
func (s NotificationScope) Valid() bool {
	switch s {
	case ScopeSingle, ScopeClass, ScopeActivity:
		return true
	default:
		return false
	}
}

// Notification is one delivered message. Scope and activity reference are
// stored as structured columns; they are never re-derived from the body text.
type Notification struct {
	ID         string            `db:"id" json:"id"`
	SenderID   string            `db:"sender_id" json:"sender_id"`
	ReceiverID string            `db:"receiver_id" json:"receiver_id"`
	Title      string            `db:"title" json:"title"`
	Body       string            `db:"body" json:"body"`
	Scope      NotificationScope `db:"scope" json:"scope"`
	ActivityID *string           `db:"activity_id" json:"activity_id,omitempty"`
	Read       bool              `db:"read" json:"read"`
	SentAt     time.Time         `db:"sent_at" json:"sent_at"`
}

// NotificationFilter scopes inbox listing.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}
