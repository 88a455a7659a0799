package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	app := &models.Application{
		StudentID:    "student-1",
		CompanyName:  "Acme Corp",
		CompanyEmail: "hr@acme.example",
		Type:         models.InternshipTypeMandatory,
		StartDate:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		TotalDays:    30,
		AdvisorEmail: "advisor@uni.example",
	}
	require.NoError(t, repo.Create(context.Background(), app))
	require.Equal(t, int64(7), app.ID)
	require.Equal(t, models.ApplicationStatusAwaitingAdvisor, app.Status)
	require.Equal(t, models.DecisionUndecided, app.AdvisorDecision)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAdvisorApproveCreatesDiary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO diaries")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	diaryID, err := repo.AdvisorApprove(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), diaryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAdvisorApproveLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.AdvisorApprove(context.Background(), 7, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCancelGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WithArgs(int64(7), "student-1", "plans changed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Cancel(context.Background(), 7, "student-1", "plans changed"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WithArgs(int64(7), "student-1", "plans changed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Cancel(context.Background(), 7, "student-1", "plans changed")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCompanyDecide(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	remark := "welcome aboard"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WithArgs(int64(9), &remark).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.CompanyDecide(context.Background(), 9, true, &remark))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications")).
		WithArgs("advisor@uni.example").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "company_name", "company_address", "company_contact", "company_email",
		"type", "start_date", "end_date", "total_days", "advisor_email",
		"dual_major", "dual_major_faculty", "dual_major_department", "status",
		"advisor_decision", "advisor_remark", "career_center_decision", "career_center_remark",
		"company_decision", "company_remark", "cancel_reason", "otp_code", "otp_expires_at",
		"created_at", "updated_at", "student_name", "student_number", "faculty", "department",
	}).AddRow(
		int64(7), "student-1", "Acme Corp", "", "", "hr@acme.example",
		"MANDATORY", time.Now(), time.Now(), 30, "advisor@uni.example",
		false, nil, nil, "AWAITING_ADVISOR",
		"UNDECIDED", nil, "UNDECIDED", nil,
		"UNDECIDED", nil, nil, nil, nil,
		time.Now(), time.Now(), "Jane Doe", "20210001", "Engineering", "Computer Engineering",
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.student_id")).
		WithArgs("advisor@uni.example").
		WillReturnRows(rows)

	list, total, err := repo.List(context.Background(), models.ApplicationFilter{AdvisorEmail: "advisor@uni.example"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "Jane Doe", list[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
