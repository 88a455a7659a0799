package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	"github.com/stajtakip/internship-api/pkg/config"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/storage"
)

type fakeDiaryStore struct {
	diaries map[int64]*models.DiaryDetail
}

func newFakeDiaryStore() *fakeDiaryStore {
	return &fakeDiaryStore{diaries: make(map[int64]*models.DiaryDetail)}
}

func (f *fakeDiaryStore) add(d *models.DiaryDetail) {
	clone := *d
	f.diaries[d.ID] = &clone
}

func (f *fakeDiaryStore) GetByID(_ context.Context, id int64) (*models.Diary, error) {
	d, ok := f.diaries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := d.Diary
	return &clone, nil
}

func (f *fakeDiaryStore) GetDetailByID(_ context.Context, id int64) (*models.DiaryDetail, error) {
	d, ok := f.diaries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *d
	return &clone, nil
}

func (f *fakeDiaryStore) GetDetailByApplicationID(_ context.Context, applicationID int64) (*models.DiaryDetail, error) {
	for _, d := range f.diaries {
		if d.ApplicationID == applicationID {
			clone := *d
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDiaryStore) List(_ context.Context, filter models.DiaryFilter) ([]models.DiaryDetail, error) {
	var out []models.DiaryDetail
	for _, d := range f.diaries {
		if filter.AdvisorEmail != "" && d.AdvisorEmail != filter.AdvisorEmail {
			continue
		}
		if filter.StudentID != "" && d.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDiaryStore) MarkUploaded(_ context.Context, id int64, studentID, filePath string, uploadedAt time.Time) error {
	d, ok := f.diaries[id]
	if !ok || d.StudentID != studentID || d.Status != models.DiaryStatusPending {
		return sql.ErrNoRows
	}
	d.Status = models.DiaryStatusAwaitingCompany
	d.FilePath = &filePath
	d.UploadedAt = &uploadedAt
	return nil
}

func (f *fakeDiaryStore) CompanyDecide(_ context.Context, id int64, approve bool, remark *string) error {
	d, ok := f.diaries[id]
	if !ok || d.Status != models.DiaryStatusAwaitingCompany {
		return sql.ErrNoRows
	}
	d.CompanyRemark = remark
	if approve {
		d.Status = models.DiaryStatusAwaitingAdvisor
		d.CompanyDecision = models.DecisionApproved
	} else {
		d.Status = models.DiaryStatusCompanyRejected
		d.CompanyDecision = models.DecisionRejected
	}
	return nil
}

func (f *fakeDiaryStore) AdvisorDecide(_ context.Context, id int64, approve bool, remark *string) error {
	d, ok := f.diaries[id]
	if !ok || d.Status != models.DiaryStatusAwaitingAdvisor {
		return sql.ErrNoRows
	}
	d.AdvisorRemark = remark
	if approve {
		d.Status = models.DiaryStatusApproved
		d.AdvisorDecision = models.DecisionApproved
	} else {
		d.Status = models.DiaryStatusAdvisorRejected
		d.AdvisorDecision = models.DecisionRejected
	}
	return nil
}

func (f *fakeDiaryStore) SaveOTP(_ context.Context, id int64, code string, expiresAt time.Time) error {
	d, ok := f.diaries[id]
	if !ok || d.Status != models.DiaryStatusAwaitingCompany {
		return sql.ErrNoRows
	}
	d.OTPCode = &code
	d.OTPExpiresAt = &expiresAt
	return nil
}

func newTestDiaryService(t *testing.T, store *fakeDiaryStore, now time.Time) (*DiaryService, *recordingNotifier) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	students := &stubStudentStore{student: testStudent()}
	resolver := NewCapResolver(students, &stubDualMajorStore{}, &stubRecordCounter{}, nil)
	gate := NewOTPGate(config.OTPConfig{Digits: 6, TTL: 72 * time.Hour}, nil, nil)
	gate.WithClock(func() time.Time { return now })
	notifier := &recordingNotifier{}
	svc := NewDiaryService(store, files, signer, &recordingAudit{}, NewAccessGuard(resolver), gate, notifier, 5, nil,
		WithDiaryClock(func() time.Time { return now }))
	return svc, notifier
}

func pendingDiary(id int64, start, end time.Time) *models.DiaryDetail {
	return &models.DiaryDetail{
		Diary: models.Diary{
			ID:              id,
			ApplicationID:   id,
			StudentID:       "student-1",
			Status:          models.DiaryStatusPending,
			CompanyDecision: models.DecisionUndecided,
			AdvisorDecision: models.DecisionUndecided,
		},
		StudentName:  "Jane Doe",
		StudentEmail: "jane@uni.example",
		CompanyName:  "Acme Corp",
		CompanyEmail: "hr@acme.example",
		AdvisorEmail: "advisor@uni.example",
		StartDate:    start,
		EndDate:      end,
	}
}

func TestDiaryUploadInsideWindow(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, 2)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, notifier := newTestDiaryService(t, store, now)

	detail, err := svc.Upload(context.Background(), 3, "student-1", "week report.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	require.Equal(t, models.DiaryStatusAwaitingCompany, detail.Status)
	require.NotNil(t, detail.FilePath)
	require.NotNil(t, store.diaries[3].OTPCode)

	// The company was told about its access code.
	require.NotEmpty(t, notifier.sent)
	require.Equal(t, []string{"hr@acme.example"}, notifier.sent[0].To)
}

func TestDiaryUploadOutsideWindowFails(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))

	// Six days after the end the grace period has lapsed.
	svc, _ := newTestDiaryService(t, store, end.AddDate(0, 0, 6))
	_, err := svc.Upload(context.Background(), 3, "student-1", "report.pdf", strings.NewReader("content"))
	require.True(t, appErrors.Is(err, appErrors.ErrWindowClosed.Code))
	require.Equal(t, models.DiaryStatusPending, store.diaries[3].Status)

	// While the internship is still running the window is closed too.
	svc, _ = newTestDiaryService(t, store, end)
	_, err = svc.Upload(context.Background(), 3, "student-1", "report.pdf", strings.NewReader("content"))
	require.True(t, appErrors.Is(err, appErrors.ErrWindowClosed.Code))
}

func TestDiaryCompanyThenAdvisorApproval(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, 2)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, _ := newTestDiaryService(t, store, now)
	ctx := context.Background()

	_, err := svc.Upload(ctx, 3, "student-1", "report.pdf", strings.NewReader("content"))
	require.NoError(t, err)

	credential := *store.diaries[3].OTPCode
	detail, err := svc.CompanyDecide(ctx, 3, credential, true, nil)
	require.NoError(t, err)
	require.Equal(t, models.DiaryStatusAwaitingAdvisor, detail.Status)

	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}
	detail, err = svc.AdvisorDecide(ctx, 3, advisor, true, nil)
	require.NoError(t, err)
	require.Equal(t, models.DiaryStatusApproved, detail.Status)

	// Terminal: nothing can act on an approved diary.
	_, err = svc.AdvisorDecide(ctx, 3, advisor, false, nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestDiaryCompanyRejectionIsTerminal(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, 2)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, _ := newTestDiaryService(t, store, now)
	ctx := context.Background()

	_, err := svc.Upload(ctx, 3, "student-1", "report.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	credential := *store.diaries[3].OTPCode

	remark := "attendance records incomplete"
	detail, err := svc.CompanyDecide(ctx, 3, credential, false, &remark)
	require.NoError(t, err)
	require.Equal(t, models.DiaryStatusCompanyRejected, detail.Status)

	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}
	_, err = svc.AdvisorDecide(ctx, 3, advisor, true, nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestDiaryCompanyDecideInvalidCredential(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, 2)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, _ := newTestDiaryService(t, store, now)
	ctx := context.Background()

	_, err := svc.Upload(ctx, 3, "student-1", "report.pdf", strings.NewReader("content"))
	require.NoError(t, err)

	_, err = svc.CompanyDecide(ctx, 3, "999999", true, nil)
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))
	require.Equal(t, models.DiaryStatusAwaitingCompany, store.diaries[3].Status)
}

func TestWorklistVisibility(t *testing.T) {
	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeDiaryStore()

	// Not yet started: hidden.
	store.add(pendingDiary(1, now.AddDate(0, 0, 7), now.AddDate(0, 0, 52)))

	// Upload window expired, never uploaded, never acted on: hidden.
	store.add(pendingDiary(2, now.AddDate(0, -3, 0), now.AddDate(0, 0, -10)))

	// Upload window expired but already in the pipeline: stays visible.
	inPipeline := pendingDiary(3, now.AddDate(0, -3, 0), now.AddDate(0, 0, -10))
	inPipeline.Status = models.DiaryStatusAwaitingAdvisor
	path := "3/report.pdf"
	inPipeline.FilePath = &path
	store.add(inPipeline)

	// Running internship, nothing uploaded yet: visible.
	store.add(pendingDiary(4, now.AddDate(0, -1, 0), now.AddDate(0, 0, 20)))

	svc, _ := newTestDiaryService(t, store, now)
	list, err := svc.Worklist(context.Background(), models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}, dto.DiaryQuery{})
	require.NoError(t, err)

	ids := make(map[int64]models.DiaryDetail, len(list))
	for _, d := range list {
		ids[d.ID] = d
	}
	require.NotContains(t, ids, int64(1))
	require.NotContains(t, ids, int64(2))
	require.Contains(t, ids, int64(3))
	require.Contains(t, ids, int64(4))
	require.True(t, ids[4].Running)
	require.False(t, ids[4].UploadWindowOpen)
}

func TestDownloadTokenRoundTrip(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, 2)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, _ := newTestDiaryService(t, store, now)
	ctx := context.Background()

	_, err := svc.Upload(ctx, 3, "student-1", "report.pdf", strings.NewReader("diary body"))
	require.NoError(t, err)

	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}
	token, _, err := svc.DownloadToken(ctx, 3, advisor)
	require.NoError(t, err)

	reader, name, err := svc.OpenByToken(token)
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, "report.pdf", name)
}

func TestDownloadTokenWithoutFileIsNotFound(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeDiaryStore()
	store.add(pendingDiary(3, end.AddDate(0, -2, 0), end))
	svc, _ := newTestDiaryService(t, store, end)

	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}
	_, _, err := svc.DownloadToken(context.Background(), 3, advisor)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}
