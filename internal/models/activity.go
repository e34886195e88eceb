package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityStatus represents the approval lifecycle of an activity.
type ActivityStatus string

const (
	ActivityStatusPending  ActivityStatus = "PENDING"
	ActivityStatusApproved ActivityStatus = "APPROVED"
	ActivityStatusRejected ActivityStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityStatusPending, ActivityStatusApproved, ActivityStatusRejected:
		return true
	default:
		return false
	}
}

// Activity represents a conduct activity students earn points for.
type Activity struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	CreatorUserID string          `db:"creator_user_id" json:"creator_user_id"`
	Status        ActivityStatus  `db:"status" json:"status"`
	SemesterKey   string          `db:"semester_key" json:"semester_key"`
	PointsValue   decimal.Decimal `db:"points_value" json:"points_value"`
	TypeID        string          `db:"type_id" json:"type_id"`
	StartsAt      time.Time       `db:"starts_at" json:"starts_at"`
	EndsAt        time.Time       `db:"ends_at" json:"ends_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Ended reports whether the activity's end date has passed.
func (a Activity) Ended(now time.Time) bool {
	return now.After(a.EndsAt)
}

// ActivityType categorizes activities for score breakdowns.
type ActivityType struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ActivityFilter defines filter criteria for listing activities.
type ActivityFilter struct {
	Status      *ActivityStatus
	SemesterKey string
	TypeID      string
	Search      string
	Visibility  VisibilityFilter
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// VisibilityFilter describes the creator-scoped restriction pushed down to
// list queries. Unrestricted is reserved for admins; everyone else carries an
// explicit creator set so filtering happens in SQL, never in memory.
type VisibilityFilter struct {
	Unrestricted   bool
	CreatorUserIDs []string
}

// UnrestrictedVisibility is the admin sentinel.
func UnrestrictedVisibility() VisibilityFilter {
	return VisibilityFilter{Unrestricted: true}
}

// VisibilityOf builds a creator-scoped filter from a set of user ids.
func VisibilityOf(creatorIDs map[string]struct{}) VisibilityFilter {
	ids := make([]string, 0, len(creatorIDs))
	for id := range creatorIDs {
		ids = append(ids, id)
	}
	return VisibilityFilter{CreatorUserIDs: ids}
}
