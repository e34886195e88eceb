package models

import "time"

// RegistrationStatus represents the lifecycle of an activity registration.
//
// PARTICIPATED is a persisted status: the attendance confirmation workflow
// flips an APPROVED registration to PARTICIPATED in the same transaction that
// records the confirmed attendance row. Credit computation still requires the
// confirmed attendance row itself; the status alone never earns points.
type RegistrationStatus string

const (
	RegistrationStatusPending      RegistrationStatus = "PENDING"
	RegistrationStatusApproved     RegistrationStatus = "APPROVED"
	RegistrationStatusRejected     RegistrationStatus = "REJECTED"
	RegistrationStatusParticipated RegistrationStatus = "PARTICIPATED"
)

// Valid returns true when the status is a supported value.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved,
		RegistrationStatusRejected, RegistrationStatusParticipated:
		return true
	default:
		return false
	}
}

// Qualifying reports whether the status counts toward credit.
func (s RegistrationStatus) Qualifying() bool {
	return s == RegistrationStatusApproved || s == RegistrationStatusParticipated
}

// Registration links a student to an activity. (student_id, activity_id)
// is unique.
type Registration struct {
	ID         string             `db:"id" json:"id"`
	StudentID  string             `db:"student_id" json:"student_id"`
	ActivityID string             `db:"activity_id" json:"activity_id"`
	Status     RegistrationStatus `db:"status" json:"status"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationRef is the projection consumed by credit matching.
type RegistrationRef struct {
	ActivityID string             `db:"activity_id" json:"activity_id"`
	Status     RegistrationStatus `db:"status" json:"status"`
}
