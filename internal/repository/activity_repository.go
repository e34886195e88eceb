package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

// ActivityRepository manages persistence for conduct activities.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs a new activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = "id, name, creator_user_id, status, semester_key, points_value, type_id, starts_at, ends_at, created_at, updated_at"

// FindByID returns an activity by ID.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1", activityColumns)
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// List returns activities matching the filter. The visibility restriction is
// part of the SQL predicate; callers never receive rows outside their scope.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	base := "FROM activities WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.Visibility.Unrestricted {
		conditions = append(conditions, fmt.Sprintf("creator_user_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Visibility.CreatorUserIDs))
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.SemesterKey != "" {
		conditions = append(conditions, fmt.Sprintf("semester_key = $%d", len(args)+1))
		args = append(args, filter.SemesterKey)
	}
	if filter.TypeID != "" {
		conditions = append(conditions, fmt.Sprintf("type_id = $%d", len(args)+1))
		args = append(args, filter.TypeID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"starts_at":  true,
		"ends_at":    true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", activityColumns, base, sortBy, order, size, offset)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	return activities, total, nil
}

// ListByIDs returns the activities for the given identifiers.
func (r *ActivityRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Activity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = ANY($1)", activityColumns)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list activities by ids: %w", err)
	}
	return activities, nil
}

// DistinctSemesterKeys returns every semester key present on activities,
// newest first.
func (r *ActivityRepository) DistinctSemesterKeys(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT semester_key FROM activities WHERE semester_key <> '' ORDER BY semester_key DESC`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("list semester keys: %w", err)
	}
	return keys, nil
}

// Create persists an activity record.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now

	const query = `INSERT INTO activities (id, name, creator_user_id, status, semester_key, points_value, type_id, starts_at, ends_at, created_at, updated_at)
VALUES (:id, :name, :creator_user_id, :status, :semester_key, :points_value, :type_id, :starts_at, :ends_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// UpdateStatus moves an activity through its approval lifecycle.
func (r *ActivityRepository) UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error {
	const query = `UPDATE activities SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update activity status: %w", err)
	}
	return nil
}
