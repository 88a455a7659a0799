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

const diaryDetailColumns = `d.id, d.application_id, d.student_id, d.status,
       d.file_path, d.uploaded_at,
       d.company_decision, d.company_remark, d.advisor_decision, d.advisor_remark,
       d.otp_code, d.otp_expires_at, d.created_at, d.updated_at,
       s.full_name AS student_name, s.number AS student_number, s.email AS student_email,
       a.company_name, a.company_email, a.advisor_email, a.start_date, a.end_date`

// DiaryRepository persists internship diaries. Diaries are only ever created
// by ApplicationRepository.AdvisorApprove; this repository reads them and
// drives the upload and review transitions.
type DiaryRepository struct {
	db *sqlx.DB
}

// NewDiaryRepository constructs the repository.
func NewDiaryRepository(db *sqlx.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// GetByID fetches a diary by identifier.
func (r *DiaryRepository) GetByID(ctx context.Context, id int64) (*models.Diary, error) {
	const query = `SELECT id, application_id, student_id, status, file_path, uploaded_at,
       company_decision, company_remark, advisor_decision, advisor_remark,
       otp_code, otp_expires_at, created_at, updated_at
	FROM diaries WHERE id = $1`
	var diary models.Diary
	if err := r.db.GetContext(ctx, &diary, query, id); err != nil {
		return nil, err
	}
	return &diary, nil
}

// GetDetailByID fetches a diary joined with its application and student
// context. The caller derives the window flags from start/end dates.
func (r *DiaryRepository) GetDetailByID(ctx context.Context, id int64) (*models.DiaryDetail, error) {
	query := `SELECT ` + diaryDetailColumns + `
	FROM diaries d
	JOIN applications a ON a.id = d.application_id
	JOIN students s ON s.id = d.student_id
	WHERE d.id = $1`
	var detail models.DiaryDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetDetailByApplicationID fetches the diary attached to an application.
func (r *DiaryRepository) GetDetailByApplicationID(ctx context.Context, applicationID int64) (*models.DiaryDetail, error) {
	query := `SELECT ` + diaryDetailColumns + `
	FROM diaries d
	JOIN applications a ON a.id = d.application_id
	JOIN students s ON s.id = d.student_id
	WHERE d.application_id = $1`
	var detail models.DiaryDetail
	if err := r.db.GetContext(ctx, &detail, query, applicationID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns diary details matching the filter, newest first. Visibility
// rules beyond plain column filters (upload windows, pipeline membership)
// belong to the service layer, which needs the current clock.
func (r *DiaryRepository) List(ctx context.Context, filter models.DiaryFilter) ([]models.DiaryDetail, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.AdvisorEmail != "" {
		args = append(args, filter.AdvisorEmail)
		conditions = append(conditions, fmt.Sprintf("a.advisor_email = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("d.student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)))
	}
	query := `SELECT ` + diaryDetailColumns + `
	FROM diaries d
	JOIN applications a ON a.id = d.application_id
	JOIN students s ON s.id = d.student_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.created_at DESC"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var list []models.DiaryDetail
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	return list, nil
}

// MarkUploaded records the file and moves PENDING to AWAITING_COMPANY. A
// re-upload of a diary already in the pipeline loses the race here and
// surfaces as sql.ErrNoRows.
func (r *DiaryRepository) MarkUploaded(ctx context.Context, id int64, studentID, filePath string, uploadedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE diaries
	SET status = '%s', file_path = $3, uploaded_at = $4, updated_at = NOW()
	WHERE id = $1 AND student_id = $2 AND status = '%s'`,
		models.DiaryStatusAwaitingCompany,
		models.DiaryStatusPending,
	)
	return r.execExpectingRow(ctx, query, id, studentID, filePath, uploadedAt)
}

// CompanyDecide resolves the AWAITING_COMPANY stage of a diary.
func (r *DiaryRepository) CompanyDecide(ctx context.Context, id int64, approve bool, remark *string) error {
	next := models.DiaryStatusCompanyRejected
	decision := models.DecisionRejected
	if approve {
		next = models.DiaryStatusAwaitingAdvisor
		decision = models.DecisionApproved
	}
	query := fmt.Sprintf(`UPDATE diaries
	SET status = '%s', company_decision = '%s', company_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		next, decision, models.DiaryStatusAwaitingCompany,
	)
	return r.execExpectingRow(ctx, query, id, remark)
}

// AdvisorDecide resolves the AWAITING_ADVISOR stage of a diary.
func (r *DiaryRepository) AdvisorDecide(ctx context.Context, id int64, approve bool, remark *string) error {
	next := models.DiaryStatusAdvisorRejected
	decision := models.DecisionRejected
	if approve {
		next = models.DiaryStatusApproved
		decision = models.DecisionApproved
	}
	query := fmt.Sprintf(`UPDATE diaries
	SET status = '%s', advisor_decision = '%s', advisor_remark = $2, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		next, decision, models.DiaryStatusAwaitingAdvisor,
	)
	return r.execExpectingRow(ctx, query, id, remark)
}

// SaveOTP stores the company credential for a diary awaiting company review.
func (r *DiaryRepository) SaveOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE diaries
	SET otp_code = $2, otp_expires_at = $3, updated_at = NOW()
	WHERE id = $1 AND status = '%s'`,
		models.DiaryStatusAwaitingCompany,
	)
	return r.execExpectingRow(ctx, query, id, code, expiresAt)
}

func (r *DiaryRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update diary: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check diary update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
