package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

// AttendanceRepository manages persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListConfirmedRefs returns confirmed attendance rows for the student under
// the same semester/creator restriction credit matching applies to
// registrations. Row ids are included so duplicate natural keys can be
// detected by the caller.
func (r *AttendanceRepository) ListConfirmedRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.AttendanceRef, error) {
	const query = `SELECT att.id, att.activity_id, att.confirmed
FROM attendance_records att
JOIN activities a ON a.id = att.activity_id
WHERE att.student_id = $1
  AND att.confirmed = TRUE
  AND a.semester_key = $2
  AND a.creator_user_id = ANY($3)`
	var refs []models.AttendanceRef
	if err := r.db.SelectContext(ctx, &refs, query, studentID, semesterKey, pq.Array(creatorUserIDs)); err != nil {
		return nil, fmt.Errorf("list confirmed attendance: %w", err)
	}
	return refs, nil
}

// Confirm records a confirmed check-in for the (student, activity) pair and
// flips an APPROVED registration to PARTICIPATED in the same transaction.
// The upsert keys on the natural pair, so repeated check-ins collapse to one
// row.
func (r *AttendanceRepository) Confirm(ctx context.Context, studentID, activityID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance confirmation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const upsert = `INSERT INTO attendance_records (id, student_id, activity_id, confirmed, created_at)
VALUES ($1, $2, $3, TRUE, $4)
ON CONFLICT (student_id, activity_id) DO UPDATE SET confirmed = TRUE`
	if _, err = tx.ExecContext(ctx, upsert, uuid.NewString(), studentID, activityID, now); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}

	const flip = `UPDATE registrations SET status = $1, updated_at = $2
WHERE student_id = $3 AND activity_id = $4 AND status = $5`
	if _, err = tx.ExecContext(ctx, flip, models.RegistrationStatusParticipated, now, studentID, activityID, models.RegistrationStatusApproved); err != nil {
		return fmt.Errorf("mark registration participated: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance confirmation: %w", err)
	}
	return nil
}

// HasConfirmed reports whether a confirmed record exists for the pair.
func (r *AttendanceRepository) HasConfirmed(ctx context.Context, studentID, activityID string) (bool, error) {
	const query = `SELECT 1 FROM attendance_records WHERE student_id = $1 AND activity_id = $2 AND confirmed = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, activityID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return true, nil
}
