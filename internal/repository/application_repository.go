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

const applicationColumns = `id, student_id, company_name, company_address, company_contact, company_email,
       type, start_date, end_date, total_days, advisor_email,
       dual_major, dual_major_faculty, dual_major_department, status,
       advisor_decision, advisor_remark, career_center_decision, career_center_remark,
       company_decision, company_remark, cancel_reason, otp_code, otp_expires_at,
       created_at, updated_at`

// ApplicationRepository persists internship applications and drives their
// status transitions. Every transition is a conditional UPDATE guarded by the
// expected current status; zero affected rows surfaces as sql.ErrNoRows so the
// service layer can fold lost races with genuinely missing rows.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a fresh application in AWAITING_ADVISOR with all three
// decisions undecided.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.Status == "" {
		app.Status = models.ApplicationStatusAwaitingAdvisor
	}
	app.AdvisorDecision = models.DecisionUndecided
	app.CareerCenterDecision = models.DecisionUndecided
	app.CompanyDecision = models.DecisionUndecided
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	const query = `INSERT INTO applications
	(student_id, company_name, company_address, company_contact, company_email,
	 type, start_date, end_date, total_days, advisor_email,
	 dual_major, dual_major_faculty, dual_major_department, status,
	 advisor_decision, career_center_decision, company_decision, created_at, updated_at)
	VALUES (:student_id, :company_name, :company_address, :company_contact, :company_email,
	 :type, :start_date, :end_date, :total_days, :advisor_email,
	 :dual_major, :dual_major_faculty, :dual_major_department, :status,
	 :advisor_decision, :career_center_decision, :company_decision, :created_at, :updated_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, app)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&app.ID); err != nil {
			return fmt.Errorf("scan application id: %w", err)
		}
	}
	return rows.Err()
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetDetailByID fetches an application joined with its student context.
func (r *ApplicationRepository) GetDetailByID(ctx context.Context, id int64) (*models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.student_id, a.company_name, a.company_address, a.company_contact, a.company_email,
       a.type, a.start_date, a.end_date, a.total_days, a.advisor_email,
       a.dual_major, a.dual_major_faculty, a.dual_major_department, a.status,
       a.advisor_decision, a.advisor_remark, a.career_center_decision, a.career_center_remark,
       a.company_decision, a.company_remark, a.cancel_reason, a.otp_code, a.otp_expires_at,
       a.created_at, a.updated_at,
       s.full_name AS student_name, s.number AS student_number, s.faculty, s.department
	FROM applications a
	JOIN students s ON s.id = a.student_id
	WHERE a.id = $1`
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns applications matching the filter, newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.AdvisorEmail != "" {
		args = append(args, filter.AdvisorEmail)
		conditions = append(conditions, fmt.Sprintf("a.advisor_email = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("a.type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(a.company_name ILIKE $%d OR s.full_name ILIKE $%d OR s.number ILIKE $%d)", len(args), len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM applications a JOIN students s ON s.id = a.student_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	query := `SELECT a.id, a.student_id, a.company_name, a.company_address, a.company_contact, a.company_email,
       a.type, a.start_date, a.end_date, a.total_days, a.advisor_email,
       a.dual_major, a.dual_major_faculty, a.dual_major_department, a.status,
       a.advisor_decision, a.advisor_remark, a.career_center_decision, a.career_center_remark,
       a.company_decision, a.company_remark, a.cancel_reason, a.otp_code, a.otp_expires_at,
       a.created_at, a.updated_at,
       s.full_name AS student_name, s.number AS student_number, s.faculty, s.department
	FROM applications a
	JOIN students s ON s.id = a.student_id` + where +
		fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var list []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return list, total, nil
}

// AdvisorApprove advances AWAITING_ADVISOR to AWAITING_CAREER_CENTER and
// creates the diary shell in the same transaction. The diary INSERT and the
// status UPDATE commit or roll back together so a crash can never leave an
// approved application without a diary.
func (r *ApplicationRepository) AdvisorApprove(ctx context.Context, id int64, remark *string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin advisor approve: %w", err)
	}
	defer tx.Rollback()

	updateQuery := fmt.Sprintf(`UPDATE applications
	SET status = '%s', advisor_decision = '%s', advisor_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		models.ApplicationStatusAwaitingCareerCenter,
		models.DecisionApproved,
		models.ApplicationStatusAwaitingAdvisor,
	)
	result, err := tx.ExecContext(ctx, updateQuery, id, remark)
	if err != nil {
		return 0, fmt.Errorf("advisor approve application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check advisor approve rows: %w", err)
	}
	if rows == 0 {
		return 0, sql.ErrNoRows
	}

	var diaryID int64
	diaryQuery := fmt.Sprintf(`INSERT INTO diaries
	(application_id, student_id, status, company_decision, advisor_decision, created_at, updated_at)
	SELECT id, student_id, '%s', '%s', '%s', NOW(), NOW() FROM applications WHERE id = $1
	RETURNING id`,
		models.DiaryStatusPending,
		models.DecisionUndecided,
		models.DecisionUndecided,
	)
	if err := tx.GetContext(ctx, &diaryID, diaryQuery, id); err != nil {
		return 0, fmt.Errorf("create diary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit advisor approve: %w", err)
	}
	return diaryID, nil
}

// AdvisorReject moves AWAITING_ADVISOR straight to the terminal REJECTED.
func (r *ApplicationRepository) AdvisorReject(ctx context.Context, id int64, remark *string) error {
	query := fmt.Sprintf(`UPDATE applications
	SET status = '%s', advisor_decision = '%s', advisor_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		models.ApplicationStatusRejected,
		models.DecisionRejected,
		models.ApplicationStatusAwaitingAdvisor,
	)
	return r.execExpectingRow(ctx, query, id, remark)
}

// CareerCenterDecide resolves the AWAITING_CAREER_CENTER stage.
func (r *ApplicationRepository) CareerCenterDecide(ctx context.Context, id int64, approve bool, remark *string) error {
	next := models.ApplicationStatusRejected
	decision := models.DecisionRejected
	if approve {
		next = models.ApplicationStatusAwaitingCompany
		decision = models.DecisionApproved
	}
	query := fmt.Sprintf(`UPDATE applications
	SET status = '%s', career_center_decision = '%s', career_center_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		next, decision, models.ApplicationStatusAwaitingCareerCenter,
	)
	return r.execExpectingRow(ctx, query, id, remark)
}

// CompanyDecide resolves the AWAITING_COMPANY stage.
func (r *ApplicationRepository) CompanyDecide(ctx context.Context, id int64, approve bool, remark *string) error {
	next := models.ApplicationStatusRejected
	decision := models.DecisionRejected
	if approve {
		next = models.ApplicationStatusApproved
		decision = models.DecisionApproved
	}
	query := fmt.Sprintf(`UPDATE applications
	SET status = '%s', company_decision = '%s', company_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		next, decision, models.ApplicationStatusAwaitingCompany,
	)
	return r.execExpectingRow(ctx, query, id, remark)
}

// Cancel withdraws an application. Only the owning student may cancel, and
// only while the advisor has not acted yet.
func (r *ApplicationRepository) Cancel(ctx context.Context, id int64, studentID, reason string) error {
	query := fmt.Sprintf(`UPDATE applications
	SET status = '%s', cancel_reason = $3, updated_at = NOW()
	WHERE id = $1 AND student_id = $2 AND status = '%s'`,
		models.ApplicationStatusCancelled,
		models.ApplicationStatusAwaitingAdvisor,
	)
	return r.execExpectingRow(ctx, query, id, studentID, reason)
}

// SaveOTP stores the company credential for an application awaiting the
// company stage.
func (r *ApplicationRepository) SaveOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE applications
	SET otp_code = $2, otp_expires_at = $3, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		models.ApplicationStatusAwaitingCompany,
	)
	return r.execExpectingRow(ctx, query, id, code, expiresAt)
}

func (r *ApplicationRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check application update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
