package models

import "github.com/shopspring/decimal"

// CreditedActivity is derived, never persisted: it exists only when a
// qualifying registration and a confirmed attendance record both exist for
// the same (student, activity) and the activity's creator belongs to the
// student's class creator set.
type CreditedActivity struct {
	ActivityID   string          `json:"activity_id"`
	ActivityName string          `json:"activity_name"`
	TypeID       string          `json:"type_id"`
	PointsValue  decimal.Decimal `json:"points_value"`
	SemesterKey  string          `json:"semester_key"`
}

// SemesterScore aggregates credited points for one student and semester.
type SemesterScore struct {
	StudentID       string                     `json:"student_id"`
	SemesterKey     string                     `json:"semester_key"`
	Total           decimal.Decimal            `json:"total"`
	ActivityCount   int                        `json:"activity_count"`
	BreakdownByType map[string]decimal.Decimal `json:"breakdown_by_type"`
}

// ClassScoreRow is one line of a class score report.
type ClassScoreRow struct {
	StudentID     string          `json:"student_id"`
	StudentCode   string          `json:"student_code"`
	StudentName   string          `json:"student_name"`
	Total         decimal.Decimal `json:"total"`
	ActivityCount int             `json:"activity_count"`
}
