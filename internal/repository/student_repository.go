package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stajtakip/internship-api/internal/models"
)

const studentColumns = `id, number, full_name, email, faculty, department, class, advisor_id, active, created_at, updated_at`

// StudentRepository reads student master data.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID fetches a student by identifier.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// GetByNumber fetches a student by student number.
func (r *StudentRepository) GetByNumber(ctx context.Context, number string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, number); err != nil {
		return nil, err
	}
	return &student, nil
}
