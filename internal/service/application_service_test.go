package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	"github.com/stajtakip/internship-api/pkg/config"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

// fakeApplicationStore mimics the conditional-update semantics of the real
// repository: a transition that does not match the required current state
// reports sql.ErrNoRows.
type fakeApplicationStore struct {
	apps        map[int64]*models.Application
	nextID      int64
	nextDiaryID int64
	diaries     map[int64]int64 // applicationID -> diaryID
}

func newFakeApplicationStore() *fakeApplicationStore {
	return &fakeApplicationStore{
		apps:        make(map[int64]*models.Application),
		nextID:      1,
		nextDiaryID: 1,
		diaries:     make(map[int64]int64),
	}
}

func (f *fakeApplicationStore) Create(_ context.Context, app *models.Application) error {
	app.ID = f.nextID
	f.nextID++
	if app.Status == "" {
		app.Status = models.ApplicationStatusAwaitingAdvisor
	}
	app.AdvisorDecision = models.DecisionUndecided
	app.CareerCenterDecision = models.DecisionUndecided
	app.CompanyDecision = models.DecisionUndecided
	clone := *app
	f.apps[app.ID] = &clone
	return nil
}

func (f *fakeApplicationStore) GetByID(_ context.Context, id int64) (*models.Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *app
	return &clone, nil
}

func (f *fakeApplicationStore) GetDetailByID(_ context.Context, id int64) (*models.ApplicationDetail, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ApplicationDetail{Application: *app, StudentName: "Jane Doe"}, nil
}

func (f *fakeApplicationStore) List(_ context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var out []models.ApplicationDetail
	for _, app := range f.apps {
		if filter.AdvisorEmail != "" && app.AdvisorEmail != filter.AdvisorEmail {
			continue
		}
		if filter.StudentID != "" && app.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, models.ApplicationDetail{Application: *app})
	}
	return out, len(out), nil
}

func (f *fakeApplicationStore) AdvisorApprove(_ context.Context, id int64, remark *string) (int64, error) {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationStatusAwaitingAdvisor {
		return 0, sql.ErrNoRows
	}
	app.Status = models.ApplicationStatusAwaitingCareerCenter
	app.AdvisorDecision = models.DecisionApproved
	app.AdvisorRemark = remark
	diaryID := f.nextDiaryID
	f.nextDiaryID++
	f.diaries[id] = diaryID
	return diaryID, nil
}

func (f *fakeApplicationStore) AdvisorReject(_ context.Context, id int64, remark *string) error {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationStatusAwaitingAdvisor {
		return sql.ErrNoRows
	}
	app.Status = models.ApplicationStatusRejected
	app.AdvisorDecision = models.DecisionRejected
	app.AdvisorRemark = remark
	return nil
}

func (f *fakeApplicationStore) CareerCenterDecide(_ context.Context, id int64, approve bool, remark *string) error {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationStatusAwaitingCareerCenter {
		return sql.ErrNoRows
	}
	app.CareerCenterRemark = remark
	if approve {
		app.Status = models.ApplicationStatusAwaitingCompany
		app.CareerCenterDecision = models.DecisionApproved
	} else {
		app.Status = models.ApplicationStatusRejected
		app.CareerCenterDecision = models.DecisionRejected
	}
	return nil
}

func (f *fakeApplicationStore) CompanyDecide(_ context.Context, id int64, approve bool, remark *string) error {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationStatusAwaitingCompany {
		return sql.ErrNoRows
	}
	app.CompanyRemark = remark
	if approve {
		app.Status = models.ApplicationStatusApproved
		app.CompanyDecision = models.DecisionApproved
	} else {
		app.Status = models.ApplicationStatusRejected
		app.CompanyDecision = models.DecisionRejected
	}
	return nil
}

func (f *fakeApplicationStore) Cancel(_ context.Context, id int64, studentID, reason string) error {
	app, ok := f.apps[id]
	if !ok || app.StudentID != studentID || app.Status != models.ApplicationStatusAwaitingAdvisor {
		return sql.ErrNoRows
	}
	app.Status = models.ApplicationStatusCancelled
	app.CancelReason = &reason
	return nil
}

func (f *fakeApplicationStore) SaveOTP(_ context.Context, id int64, code string, expiresAt time.Time) error {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationStatusAwaitingCompany {
		return sql.ErrNoRows
	}
	app.OTPCode = &code
	app.OTPExpiresAt = &expiresAt
	return nil
}

type recordingAudit struct {
	entries []models.AuditLog
	fail    bool
}

func (r *recordingAudit) Create(_ context.Context, log *models.AuditLog) error {
	if r.fail {
		return fmt.Errorf("audit store down")
	}
	r.entries = append(r.entries, *log)
	return nil
}

type recordingNotifier struct {
	sent []Notification
	fail bool
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	if r.fail {
		return fmt.Errorf("smtp unreachable")
	}
	r.sent = append(r.sent, n)
	return nil
}

func newTestApplicationService(store *fakeApplicationStore, notifier Notifier, audit auditStore) *ApplicationService {
	students := &stubStudentStore{student: testStudent()}
	resolver := NewCapResolver(students, &stubDualMajorStore{}, &stubRecordCounter{}, nil)
	gate := NewOTPGate(config.OTPConfig{Digits: 6, TTL: 72 * time.Hour}, nil, nil)
	return NewApplicationService(store, students, audit, NewAccessGuard(resolver), gate, notifier, nil,
		WithCareerCenterEmail("career@uni.example"))
}

func submitTestApplication(t *testing.T, svc *ApplicationService) *models.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), "student-1", dto.CreateApplicationRequest{
		CompanyName:  "Acme Corp",
		CompanyEmail: "hr@acme.example",
		Type:         "MANDATORY",
		StartDate:    time.Now().AddDate(0, 0, 7),
		EndDate:      time.Now().AddDate(0, 0, 52),
		TotalDays:    30,
		AdvisorEmail: "advisor@uni.example",
	})
	require.NoError(t, err)
	return app
}

func TestApplicationFullPipeline(t *testing.T) {
	store := newFakeApplicationStore()
	notifier := &recordingNotifier{}
	audit := &recordingAudit{}
	svc := newTestApplicationService(store, notifier, audit)
	ctx := context.Background()

	app := submitTestApplication(t, svc)
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}

	remark := "ok"
	updated, err := svc.AdvisorApprove(ctx, app.ID, advisor, &remark)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAwaitingCareerCenter, updated.Status)
	require.Equal(t, models.DecisionApproved, updated.AdvisorDecision)
	require.Contains(t, store.diaries, app.ID)

	updated, err = svc.CareerCenterApprove(ctx, app.ID, "cc-user", nil)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAwaitingCompany, updated.Status)
	require.NotNil(t, store.apps[app.ID].OTPCode)

	credential := *store.apps[app.ID].OTPCode
	updated, err = svc.CompanyDecide(ctx, app.ID, credential, false, nil, "insufficient capacity")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, updated.Status)
	require.Equal(t, models.DecisionRejected, updated.CompanyDecision)

	// Rejection is absorbing: a second company call on the same id fails.
	_, err = svc.CompanyDecide(ctx, app.ID, credential, true, nil, "")
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))

	require.NotEmpty(t, audit.entries)
	require.NotEmpty(t, notifier.sent)
}

func TestAdvisorApproveUnauthorizedFoldsIntoNotFound(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{})
	app := submitTestApplication(t, svc)

	stranger := models.AdvisorIdentity{ID: "advisor-9", Email: "other@uni.example"}
	_, err := svc.AdvisorApprove(context.Background(), app.ID, stranger, nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
	require.Equal(t, models.ApplicationStatusAwaitingAdvisor, store.apps[app.ID].Status)
}

func TestAdvisorRejectRequiresReason(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{})
	app := submitTestApplication(t, svc)
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}

	_, err := svc.AdvisorReject(context.Background(), app.ID, advisor, "")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))

	updated, err := svc.AdvisorReject(context.Background(), app.ID, advisor, "missing paperwork")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, updated.Status)

	// Absorbing: no later stage can act on a rejected application.
	_, err = svc.CareerCenterApprove(context.Background(), app.ID, "cc-user", nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestCancelReasonLength(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{})
	app := submitTestApplication(t, svc)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, app.ID, "student-1", "too short")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))

	updated, err := svc.Cancel(ctx, app.ID, "student-1", "plans changed a lot")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCancelled, updated.Status)

	// Cancel is only available while the advisor has not acted.
	app2 := submitTestApplication(t, svc)
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}
	_, err = svc.AdvisorApprove(ctx, app2.ID, advisor, nil)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, app2.ID, "student-1", "plans changed a lot")
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestCancelByNonOwnerIsNotFound(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{})
	app := submitTestApplication(t, svc)

	_, err := svc.Cancel(context.Background(), app.ID, "student-2", "plans changed a lot")
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestCompanyDecideRejectsBadCredential(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{})
	app := submitTestApplication(t, svc)
	ctx := context.Background()
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}

	_, err := svc.AdvisorApprove(ctx, app.ID, advisor, nil)
	require.NoError(t, err)
	_, err = svc.CareerCenterApprove(ctx, app.ID, "cc-user", nil)
	require.NoError(t, err)

	_, err = svc.CompanyDecide(ctx, app.ID, "000000", true, nil, "")
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))
	require.Equal(t, models.ApplicationStatusAwaitingCompany, store.apps[app.ID].Status)
}

func TestTransitionSucceedsWhenNotificationFails(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{fail: true}, &recordingAudit{})
	app := submitTestApplication(t, svc)
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}

	updated, err := svc.AdvisorApprove(context.Background(), app.ID, advisor, nil)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAwaitingCareerCenter, updated.Status)
}

func TestTransitionSucceedsWhenAuditFails(t *testing.T) {
	store := newFakeApplicationStore()
	svc := newTestApplicationService(store, &recordingNotifier{}, &recordingAudit{fail: true})
	app := submitTestApplication(t, svc)
	advisor := models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}

	updated, err := svc.AdvisorApprove(context.Background(), app.ID, advisor, nil)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAwaitingCareerCenter, updated.Status)
}
