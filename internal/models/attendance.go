package models

import "time"

// AttendanceRecord captures a check-in for a (student, activity) pair. The
// pair is intended to be unique; duplicate rows are deduplicated by natural
// key during credit matching and logged as a data-integrity warning.
type AttendanceRecord struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ActivityID string    `db:"activity_id" json:"activity_id"`
	Confirmed  bool      `db:"confirmed" json:"confirmed"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRef is the projection consumed by credit matching.
type AttendanceRef struct {
	ID         string `db:"id" json:"id"`
	ActivityID string `db:"activity_id" json:"activity_id"`
	Confirmed  bool   `db:"confirmed" json:"confirmed"`
}
