package models

import "fmt"

// SemesterTerm identifies the half of an academic year.
type SemesterTerm string

const (
	TermOne SemesterTerm = "ONE"
	TermTwo SemesterTerm = "TWO"
)

// SemesterKey is the canonical (term, academic year) pair used to partition
// activities and scores. The zero value is "no semester filter".
type SemesterKey struct {
	Term         SemesterTerm `json:"term"`
	AcademicYear string       `json:"academic_year"`
}

// IsZero reports whether the key is unset.
func (k SemesterKey) IsZero() bool {
	return k.Term == "" && k.AcademicYear == ""
}

// String renders the canonical storage form, e.g. "1-2025" or "2-2024-2025".
func (k SemesterKey) String() string {
	n := "1"
	if k.Term == TermTwo {
		n = "2"
	}
	return fmt.Sprintf("%s-%s", n, k.AcademicYear)
}

// SemesterOption is a selectable semester derived from existing activities.
type SemesterOption struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}
