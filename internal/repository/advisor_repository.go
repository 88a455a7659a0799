package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stajtakip/internship-api/internal/models"
)

// AdvisorRepository reads advisor master data.
type AdvisorRepository struct {
	db *sqlx.DB
}

// NewAdvisorRepository constructs the repository.
func NewAdvisorRepository(db *sqlx.DB) *AdvisorRepository {
	return &AdvisorRepository{db: db}
}

// GetByID fetches an advisor by identifier.
func (r *AdvisorRepository) GetByID(ctx context.Context, id string) (*models.Advisor, error) {
	const query = `SELECT id, full_name, email, active, created_at FROM advisors WHERE id = $1`
	var advisor models.Advisor
	if err := r.db.GetContext(ctx, &advisor, query, id); err != nil {
		return nil, err
	}
	return &advisor, nil
}

// GetByEmail fetches an advisor by email.
func (r *AdvisorRepository) GetByEmail(ctx context.Context, email string) (*models.Advisor, error) {
	const query = `SELECT id, full_name, email, active, created_at FROM advisors WHERE email = $1`
	var advisor models.Advisor
	if err := r.db.GetContext(ctx, &advisor, query, email); err != nil {
		return nil, err
	}
	return &advisor, nil
}

// CountRecordsForStudent reports how many applications or exemptions bind the
// advisor (by email) to the student. A positive count makes the advisor the
// advisor of record.
func (r *AdvisorRepository) CountRecordsForStudent(ctx context.Context, advisorEmail, studentID string) (int, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM applications WHERE advisor_email = $1 AND student_id = $2) +
	(SELECT COUNT(*) FROM exemption_applications WHERE advisor_email = $1 AND student_id = $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, advisorEmail, studentID); err != nil {
		return 0, err
	}
	return count, nil
}
