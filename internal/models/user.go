package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleTeacher      UserRole = "TEACHER"
	RoleStudent      UserRole = "STUDENT"
	RoleClassMonitor UserRole = "CLASS_MONITOR"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleClassMonitor:
		return true
	default:
		return false
	}
}

// NormalizeRole collapses the role spellings found in legacy data into the
// closed enum. Raw strings never cross into the services; normalization
// happens once, at the boundary.
func NormalizeRole(raw string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "quan_tri":
		return RoleAdmin, true
	case "teacher", "giao_vien", "giang_vien", "gvcn":
		return RoleTeacher, true
	case "student", "sinh_vien":
		return RoleStudent, true
	case "class_monitor", "lop_truong", "monitor":
		return RoleClassMonitor, true
	default:
		return "", false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
