package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stajtakip/internship-api/internal/models"
)

// ExemptionRepository persists exemption applications.
type ExemptionRepository struct {
	db *sqlx.DB
}

// NewExemptionRepository constructs the repository.
func NewExemptionRepository(db *sqlx.DB) *ExemptionRepository {
	return &ExemptionRepository{db: db}
}

// Create inserts a new exemption in AWAITING_ADVISOR.
func (r *ExemptionRepository) Create(ctx context.Context, exemption *models.ExemptionApplication) error {
	if exemption.Status == "" {
		exemption.Status = models.ExemptionStatusAwaitingAdvisor
	}
	exemption.Decision = models.DecisionUndecided
	now := time.Now().UTC()
	exemption.CreatedAt = now
	exemption.UpdatedAt = now
	const query = `INSERT INTO exemption_applications
	(student_id, advisor_email, company_name, reason, status, decision, created_at, updated_at)
	VALUES (:student_id, :advisor_email, :company_name, :reason, :status, :decision, :created_at, :updated_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, exemption)
	if err != nil {
		return fmt.Errorf("create exemption: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&exemption.ID); err != nil {
			return fmt.Errorf("scan exemption id: %w", err)
		}
	}
	return rows.Err()
}

// GetDetailByID fetches an exemption joined with student context.
func (r *ExemptionRepository) GetDetailByID(ctx context.Context, id int64) (*models.ExemptionDetail, error) {
	const query = `SELECT e.id, e.student_id, e.advisor_email, e.company_name, e.reason,
       e.status, e.decision, e.remark, e.created_at, e.updated_at,
       s.full_name AS student_name, s.number AS student_number
	FROM exemption_applications e
	JOIN students s ON s.id = e.student_id
	WHERE e.id = $1`
	var detail models.ExemptionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns exemptions for an advisor or student, newest first.
func (r *ExemptionRepository) List(ctx context.Context, advisorEmail, studentID string) ([]models.ExemptionDetail, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if advisorEmail != "" {
		args = append(args, advisorEmail)
		conditions = append(conditions, fmt.Sprintf("e.advisor_email = $%d", len(args)))
	}
	if studentID != "" {
		args = append(args, studentID)
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)))
	}
	query := `SELECT e.id, e.student_id, e.advisor_email, e.company_name, e.reason,
       e.status, e.decision, e.remark, e.created_at, e.updated_at,
       s.full_name AS student_name, s.number AS student_number
	FROM exemption_applications e
	JOIN students s ON s.id = e.student_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.created_at DESC"

	var list []models.ExemptionDetail
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list exemptions: %w", err)
	}
	return list, nil
}

// Decide settles the advisor stage of an exemption.
func (r *ExemptionRepository) Decide(ctx context.Context, id int64, approve bool, remark *string) error {
	next := models.ExemptionStatusRejected
	decision := models.DecisionRejected
	if approve {
		next = models.ExemptionStatusApproved
		decision = models.DecisionApproved
	}
	query := fmt.Sprintf(`UPDATE exemption_applications
	SET status = '%s', decision = '%s', remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		next, decision, models.ExemptionStatusAwaitingAdvisor,
	)
	result, err := r.db.ExecContext(ctx, query, id, remark)
	if err != nil {
		return fmt.Errorf("decide exemption: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check exemption update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
