package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student record by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_code, user_id, class_id, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student linked to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, student_code, user_id, class_id, created_at, updated_at FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListMembers returns the (student id, user id) pairs of a class.
func (r *StudentRepository) ListMembers(ctx context.Context, classID string) ([]models.ClassMember, error) {
	const query = `SELECT id, user_id FROM students WHERE class_id = $1`
	var members []models.ClassMember
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	return members, nil
}

// ListByClass returns full student rows for a class, ordered by student code.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT id, student_code, user_id, class_id, created_at, updated_at FROM students WHERE class_id = $1 ORDER BY student_code ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}
