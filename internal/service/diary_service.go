package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/storage"
)

type diaryStore interface {
	GetByID(ctx context.Context, id int64) (*models.Diary, error)
	GetDetailByID(ctx context.Context, id int64) (*models.DiaryDetail, error)
	GetDetailByApplicationID(ctx context.Context, applicationID int64) (*models.DiaryDetail, error)
	List(ctx context.Context, filter models.DiaryFilter) ([]models.DiaryDetail, error)
	MarkUploaded(ctx context.Context, id int64, studentID, filePath string, uploadedAt time.Time) error
	CompanyDecide(ctx context.Context, id int64, approve bool, remark *string) error
	AdvisorDecide(ctx context.Context, id int64, approve bool, remark *string) error
	SaveOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
}

type diaryFileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

// DiaryService owns the post-internship diary lifecycle: the time-windowed
// upload and the company-then-advisor approval pipeline.
type DiaryService struct {
	repo      diaryStore
	files     diaryFileStore
	signer    *storage.SignedURLSigner
	audit     auditStore
	guard     *AccessGuard
	gate      *OTPGate
	notifier  Notifier
	metrics   *MetricsService
	logger    *zap.Logger
	graceDays int
	clock     func() time.Time
}

// DiaryServiceOption configures the service.
type DiaryServiceOption func(*DiaryService)

// WithDiaryMetrics attaches transition instrumentation.
func WithDiaryMetrics(m *MetricsService) DiaryServiceOption {
	return func(s *DiaryService) { s.metrics = m }
}

// WithDiaryClock overrides the time source, for tests.
func WithDiaryClock(clock func() time.Time) DiaryServiceOption {
	return func(s *DiaryService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewDiaryService constructs the service with safe defaults.
func NewDiaryService(repo diaryStore, files diaryFileStore, signer *storage.SignedURLSigner, audit auditStore, guard *AccessGuard, gate *OTPGate, notifier Notifier, graceDays int, logger *zap.Logger, opts ...DiaryServiceOption) *DiaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) error { return nil })
	}
	if graceDays <= 0 {
		graceDays = DefaultUploadGraceDays
	}
	svc := &DiaryService{
		repo:      repo,
		files:     files,
		signer:    signer,
		audit:     audit,
		guard:     guard,
		gate:      gate,
		notifier:  notifier,
		logger:    logger,
		graceDays: graceDays,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Upload attaches the diary file and moves PENDING to AWAITING_COMPANY. It
// is only accepted inside the upload window; approvals, unlike uploads, keep
// working after the window closes.
func (s *DiaryService) Upload(ctx context.Context, diaryID int64, studentID, filename string, file io.Reader) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to load diary")
	}
	if err := s.guard.StudentOwns(studentID, detail.StudentID); err != nil {
		return nil, err
	}
	now := s.clock()
	window := NewWindow(detail.StartDate, detail.EndDate, s.graceDays)
	if !window.UploadOpen(now) {
		return nil, appErrors.ErrWindowClosed
	}

	relPath := fmt.Sprintf("%d/%s", diaryID, sanitizeFilename(filename))
	if _, err := s.files.SaveStream(relPath, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store diary file")
	}
	if err := s.repo.MarkUploaded(ctx, diaryID, studentID, relPath, now); err != nil {
		return nil, foldNoRows(err, "failed to record diary upload")
	}
	s.observeTransition(models.AuditActionDiaryUpload)
	s.emitAudit(ctx, &studentID, models.AuditActionDiaryUpload, diaryID, relPath)

	code, expiresAt, err := s.gate.Issue()
	if err != nil {
		s.logger.Error("failed to issue diary credential", zap.Int64("diary_id", diaryID), zap.Error(err))
	} else if err := s.repo.SaveOTP(ctx, diaryID, code, expiresAt); err != nil {
		s.logger.Error("failed to store diary credential", zap.Int64("diary_id", diaryID), zap.Error(err))
	} else if detail.CompanyEmail != "" {
		s.notify(ctx, Notification{
			To:      []string{detail.CompanyEmail},
			Subject: "Internship diary awaiting your review",
			Body: fmt.Sprintf("The internship diary of %s awaits your approval. Use access code %s before %s.",
				detail.StudentName, code, expiresAt.Format(time.RFC1123)),
		})
	}
	return s.reload(ctx, diaryID)
}

// CompanyDecide settles the AWAITING_COMPANY stage using the one-time
// credential issued at upload.
func (s *DiaryService) CompanyDecide(ctx context.Context, diaryID int64, credential string, approve bool, remark *string) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to load diary")
	}
	if err := s.gate.Verify(fmt.Sprintf("diary:%d", diaryID), credential, detail.OTPCode, detail.OTPExpiresAt); err != nil {
		if s.metrics != nil {
			reason := "invalid"
			if appErrors.Is(err, appErrors.ErrRateLimited.Code) {
				reason = "throttled"
			}
			s.metrics.ObserveCredentialRejection(reason)
		}
		return nil, err
	}
	if err := s.repo.CompanyDecide(ctx, diaryID, approve, remark); err != nil {
		return nil, foldNoRows(err, "failed to record company decision")
	}
	s.observeTransition(models.AuditActionDiaryCompanyDecide)
	s.emitAudit(ctx, nil, models.AuditActionDiaryCompanyDecide, diaryID, decisionLabel(approve))

	if approve {
		s.notify(ctx, Notification{
			To:      []string{detail.AdvisorEmail},
			Subject: "Internship diary awaiting your review",
			Body:    fmt.Sprintf("The diary of %s was approved by %s and awaits your decision.", detail.StudentName, detail.CompanyName),
		})
	}
	s.notifyStudent(ctx, detail, approve, "company")
	return s.reload(ctx, diaryID)
}

// AdvisorDecide settles the AWAITING_ADVISOR stage; both verdicts are
// terminal.
func (s *DiaryService) AdvisorDecide(ctx context.Context, diaryID int64, operator models.AdvisorIdentity, approve bool, remark *string) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to load diary")
	}
	if err := s.guard.AdvisorForDiary(ctx, operator, detail); err != nil {
		return nil, err
	}
	if err := s.repo.AdvisorDecide(ctx, diaryID, approve, remark); err != nil {
		return nil, foldNoRows(err, "failed to record advisor decision")
	}
	s.observeTransition(models.AuditActionDiaryAdvisorDecide)
	s.emitAudit(ctx, &operator.ID, models.AuditActionDiaryAdvisorDecide, diaryID, decisionLabel(approve))
	s.notifyStudent(ctx, detail, approve, "advisor")
	return s.reload(ctx, diaryID)
}

// Worklist returns the diaries an advisor should see. Not-yet-started
// internships are hidden, as are diaries whose upload window expired with no
// file and no pipeline activity; diaries already in the pipeline stay visible
// after the deadline for audit.
func (s *DiaryService) Worklist(ctx context.Context, operator models.AdvisorIdentity, query dto.DiaryQuery) ([]models.DiaryDetail, error) {
	list, err := s.repo.List(ctx, models.DiaryFilter{
		AdvisorEmail: operator.Email,
		Status:       models.DiaryStatus(query.Status),
		Page:         query.Page,
		PageSize:     query.PageSize,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list diaries")
	}
	now := s.clock()
	visible := make([]models.DiaryDetail, 0, len(list))
	for _, detail := range list {
		s.decorate(&detail, now)
		if now.Before(detail.StartDate) {
			continue
		}
		expired := now.After(detail.UploadDeadline)
		if expired && detail.FilePath == nil && !detail.Status.InPipeline() {
			continue
		}
		visible = append(visible, detail)
	}
	return visible, nil
}

// ListForStudent returns the student's own diaries with derived flags.
func (s *DiaryService) ListForStudent(ctx context.Context, studentID string, query dto.DiaryQuery) ([]models.DiaryDetail, error) {
	list, err := s.repo.List(ctx, models.DiaryFilter{
		StudentID: studentID,
		Status:    models.DiaryStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list diaries")
	}
	now := s.clock()
	for i := range list {
		s.decorate(&list[i], now)
	}
	return list, nil
}

// GetForAdvisor returns the diary detail for an authorized advisor.
func (s *DiaryService) GetForAdvisor(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to load diary")
	}
	if err := s.guard.AdvisorForDiary(ctx, operator, detail); err != nil {
		return nil, err
	}
	s.decorate(detail, s.clock())
	return detail, nil
}

// GetForStudent returns the diary detail for its owner.
func (s *DiaryService) GetForStudent(ctx context.Context, diaryID int64, studentID string) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to load diary")
	}
	if err := s.guard.StudentOwns(studentID, detail.StudentID); err != nil {
		return nil, err
	}
	s.decorate(detail, s.clock())
	return detail, nil
}

// DownloadToken returns a signed, expiring token for the diary file.
func (s *DiaryService) DownloadToken(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (string, time.Time, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return "", time.Time{}, foldNoRows(err, "failed to load diary")
	}
	if err := s.guard.AdvisorForDiary(ctx, operator, detail); err != nil {
		return "", time.Time{}, err
	}
	if detail.FilePath == nil {
		return "", time.Time{}, appErrors.ErrNotFound
	}
	token, expiresAt, err := s.signer.Generate(fmt.Sprintf("%d", diaryID), *detail.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a signed token and opens the referenced file.
func (s *DiaryService) OpenByToken(token string) (io.ReadCloser, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.ErrNotFound
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.ErrNotFound
	}
	return file, filepath.Base(relPath), nil
}

func (s *DiaryService) decorate(detail *models.DiaryDetail, now time.Time) {
	window := NewWindow(detail.StartDate, detail.EndDate, s.graceDays)
	detail.Running = window.Running(now)
	detail.UploadWindowOpen = window.UploadOpen(now)
	detail.UploadDeadline = window.UploadDeadline()
}

func (s *DiaryService) reload(ctx context.Context, diaryID int64) (*models.DiaryDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, diaryID)
	if err != nil {
		return nil, foldNoRows(err, "failed to reload diary")
	}
	s.decorate(detail, s.clock())
	return detail, nil
}

func (s *DiaryService) emitAudit(ctx context.Context, actorID *string, action string, diaryID int64, detail string) {
	if s.audit == nil {
		return
	}
	rid := fmt.Sprintf("%d", diaryID)
	var payload []byte
	if detail != "" {
		payload = []byte(fmt.Sprintf(`{"detail":%q}`, detail))
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Resource:   "diary",
		ResourceID: &rid,
		Detail:     payload,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Int64("diary_id", diaryID), zap.Error(err))
	}
}

func (s *DiaryService) notify(ctx context.Context, n Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification failed", zap.Strings("to", n.To), zap.String("subject", n.Subject), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveNotificationFailure()
		}
	}
}

func (s *DiaryService) notifyStudent(ctx context.Context, detail *models.DiaryDetail, approve bool, stage string) {
	if detail.StudentEmail == "" {
		return
	}
	subject := fmt.Sprintf("Internship diary %s by the %s", decisionLabel(approve), stage)
	body := fmt.Sprintf("The diary for your internship at %s was %s by the %s.", detail.CompanyName, decisionLabel(approve), stage)
	s.notify(ctx, Notification{To: []string{detail.StudentEmail}, Subject: subject, Body: body})
}

func (s *DiaryService) observeTransition(action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition("diary", action)
	}
}

func decisionLabel(approve bool) string {
	if approve {
		return "approved"
	}
	return "rejected"
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "diary.pdf"
	}
	return name
}
