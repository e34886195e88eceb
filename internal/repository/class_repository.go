package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

// ClassRepository manages persistence for class sections.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class section by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassSection, error) {
	const query = `SELECT id, name, homeroom_teacher_id, monitor_student_id, created_at, updated_at FROM classes WHERE id = $1`
	var class models.ClassSection
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListIDsByHomeroomTeacher returns the IDs of all classes a teacher advises.
func (r *ClassRepository) ListIDsByHomeroomTeacher(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT id FROM classes WHERE homeroom_teacher_id = $1 ORDER BY name ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return ids, nil
}

// AssignMonitor reassigns the class monitor in a single serializable
// transaction: the previous monitor is demoted before the new one is
// promoted, so no point in time observes two monitors.
func (r *ClassRepository) AssignMonitor(ctx context.Context, classID, studentID string) (prevStudentID *string, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin monitor reassignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current sql.NullString
	if err = tx.GetContext(ctx, &current, `SELECT monitor_student_id FROM classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		return nil, fmt.Errorf("lock class row: %w", err)
	}

	if current.Valid {
		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET role = $1, updated_at = $2 WHERE id = (SELECT user_id FROM students WHERE id = $3)`,
			models.RoleStudent, time.Now().UTC(), current.String); err != nil {
			return nil, fmt.Errorf("demote previous monitor: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = $2 WHERE id = (SELECT user_id FROM students WHERE id = $3)`,
		models.RoleClassMonitor, time.Now().UTC(), studentID); err != nil {
		return nil, fmt.Errorf("promote new monitor: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE classes SET monitor_student_id = $1, updated_at = $2 WHERE id = $3`,
		studentID, time.Now().UTC(), classID); err != nil {
		return nil, fmt.Errorf("set class monitor: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit monitor reassignment: %w", err)
	}

	if current.Valid {
		prev := current.String
		return &prev, nil
	}
	return nil, nil
}
