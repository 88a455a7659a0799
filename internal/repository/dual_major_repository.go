package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stajtakip/internship-api/internal/models"
)

const dualMajorColumns = `id, student_id, student_number, faculty, department, class, advisor_id, advisor_email, created_at`

// DualMajorRepository reads concurrent-enrollment records. The three lookups
// mirror the resolver's fallback chain: advisor-scoped by number, then
// advisor-scoped by student id, then unscoped by student id.
type DualMajorRepository struct {
	db *sqlx.DB
}

// NewDualMajorRepository constructs the repository.
func NewDualMajorRepository(db *sqlx.DB) *DualMajorRepository {
	return &DualMajorRepository{db: db}
}

// FindByNumberAndAdvisor returns the record tying a student number to the
// given advisor, if any.
func (r *DualMajorRepository) FindByNumberAndAdvisor(ctx context.Context, studentNumber, advisorID string) (*models.DualMajorRecord, error) {
	query := `SELECT ` + dualMajorColumns + ` FROM dual_major_records WHERE student_number = $1 AND advisor_id = $2`
	var record models.DualMajorRecord
	if err := r.db.GetContext(ctx, &record, query, studentNumber, advisorID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStudentAndAdvisor returns the record tying a student id to the given
// advisor, if any.
func (r *DualMajorRepository) FindByStudentAndAdvisor(ctx context.Context, studentID, advisorID string) (*models.DualMajorRecord, error) {
	query := `SELECT ` + dualMajorColumns + ` FROM dual_major_records WHERE student_id = $1 AND advisor_id = $2`
	var record models.DualMajorRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, advisorID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStudent returns any dual-major record for the student.
func (r *DualMajorRepository) FindByStudent(ctx context.Context, studentID string) (*models.DualMajorRecord, error) {
	query := `SELECT ` + dualMajorColumns + ` FROM dual_major_records WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1`
	var record models.DualMajorRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}
