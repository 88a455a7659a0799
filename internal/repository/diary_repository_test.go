package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/models"
)

func TestDiaryRepositoryMarkUploaded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDiaryRepository(db)
	uploadedAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE diaries")).
		WithArgs(int64(3), "student-1", "diaries/3.pdf", uploadedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkUploaded(context.Background(), 3, "student-1", "diaries/3.pdf", uploadedAt))

	// Second upload loses the status guard.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE diaries")).
		WithArgs(int64(3), "student-1", "diaries/3.pdf", uploadedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkUploaded(context.Background(), 3, "student-1", "diaries/3.pdf", uploadedAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiaryRepositoryCompanyDecide(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDiaryRepository(db)
	remark := "attendance confirmed"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE diaries")).
		WithArgs(int64(3), &remark).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.CompanyDecide(context.Background(), 3, true, &remark))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE diaries")).
		WithArgs(int64(3), (*string)(nil)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.CompanyDecide(context.Background(), 3, false, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiaryRepositoryListForAdvisor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDiaryRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "application_id", "student_id", "status", "file_path", "uploaded_at",
		"company_decision", "company_remark", "advisor_decision", "advisor_remark",
		"otp_code", "otp_expires_at", "created_at", "updated_at",
		"student_name", "student_number", "student_email", "company_name", "company_email", "advisor_email", "start_date", "end_date",
	}).AddRow(
		int64(3), int64(7), "student-1", "AWAITING_ADVISOR", "diaries/3.pdf", time.Now(),
		"APPROVED", nil, "UNDECIDED", nil,
		nil, nil, time.Now(), time.Now(),
		"Jane Doe", "20210001", "jane@uni.example", "Acme Corp", "hr@acme.example", "advisor@uni.example", time.Now().AddDate(0, -2, 0), time.Now().AddDate(0, 0, -3),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d.id, d.application_id")).
		WithArgs("advisor@uni.example").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.DiaryFilter{AdvisorEmail: "advisor@uni.example"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.DiaryStatusAwaitingAdvisor, list[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiaryRepositorySaveOTP(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDiaryRepository(db)
	expires := time.Now().Add(72 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE diaries")).
		WithArgs(int64(3), "482913", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveOTP(context.Background(), 3, "482913", expires))
	require.NoError(t, mock.ExpectationsWereMet())
}
