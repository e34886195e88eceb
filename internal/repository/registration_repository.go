package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

// RegistrationRepository manages persistence for activity registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a new registration repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = "id, student_id, activity_id, status, created_at, updated_at"

// FindByID returns a registration by ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE id = $1", registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByStudentAndActivity returns the registration for the unique
// (student, activity) pair.
func (r *RegistrationRepository) FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE student_id = $1 AND activity_id = $2", registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, studentID, activityID); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListQualifyingRefs returns registrations with credit-qualifying status for
// the student, restricted to activities in the given semester whose creator
// belongs to the supplied set. The scoping happens in SQL.
func (r *RegistrationRepository) ListQualifyingRefs(ctx context.Context, studentID, semesterKey string, creatorUserIDs []string) ([]models.RegistrationRef, error) {
	const query = `SELECT r.activity_id, r.status
FROM registrations r
JOIN activities a ON a.id = r.activity_id
WHERE r.student_id = $1
  AND r.status = ANY($2)
  AND a.semester_key = $3
  AND a.creator_user_id = ANY($4)`
	statuses := []string{string(models.RegistrationStatusApproved), string(models.RegistrationStatusParticipated)}
	var refs []models.RegistrationRef
	if err := r.db.SelectContext(ctx, &refs, query, studentID, pq.Array(statuses), semesterKey, pq.Array(creatorUserIDs)); err != nil {
		return nil, fmt.Errorf("list qualifying registrations: %w", err)
	}
	return refs, nil
}

// ListParticipantUserIDs returns the distinct user ids of students whose
// registration for the activity has a qualifying status.
func (r *RegistrationRepository) ListParticipantUserIDs(ctx context.Context, activityID string) ([]string, error) {
	const query = `SELECT DISTINCT s.user_id
FROM registrations r
JOIN students s ON s.id = r.student_id
WHERE r.activity_id = $1 AND r.status = ANY($2)`
	statuses := []string{string(models.RegistrationStatusApproved), string(models.RegistrationStatusParticipated)}
	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, activityID, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("list activity participants: %w", err)
	}
	return userIDs, nil
}

// Create persists a registration record.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now

	const query = `INSERT INTO registrations (id, student_id, activity_id, status, created_at, updated_at)
VALUES (:id, :student_id, :activity_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// UpdateStatus moves a registration through its lifecycle.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return nil
}
