package models

import "time"

// ClassSection represents a class with its homeroom teacher and monitor.
// At most one student holds monitor status at a time; reassignment is a
// single transaction that demotes the previous monitor first.
type ClassSection struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	HomeroomTeacherID *string   `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
	MonitorStudentID  *string   `db:"monitor_student_id" json:"monitor_student_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Student represents a learner enrolled in exactly one class section.
type Student struct {
	ID          string    `db:"id" json:"id"`
	StudentCode string    `db:"student_code" json:"student_code"`
	UserID      string    `db:"user_id" json:"user_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassMember is the projection used by scope resolution.
type ClassMember struct {
	StudentID string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
}
