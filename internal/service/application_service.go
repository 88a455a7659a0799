package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetDetailByID(ctx context.Context, id int64) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	AdvisorApprove(ctx context.Context, id int64, remark *string) (int64, error)
	AdvisorReject(ctx context.Context, id int64, remark *string) error
	CareerCenterDecide(ctx context.Context, id int64, approve bool, remark *string) error
	CompanyDecide(ctx context.Context, id int64, approve bool, remark *string) error
	Cancel(ctx context.Context, id int64, studentID, reason string) error
	SaveOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
}

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// CancelReasonMinLength is the shortest acceptable withdrawal reason.
const CancelReasonMinLength = 10

// ApplicationService owns the internship application lifecycle across the
// three approval stages. Every transition validates the current state and the
// actor before mutating; lost races and unauthorized access both come back as
// NotFound.
type ApplicationService struct {
	repo     applicationStore
	students capStudentStore
	audit    auditStore
	guard    *AccessGuard
	gate     *OTPGate
	notifier Notifier
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger

	careerCenterEmail string
}

// ApplicationServiceOption configures the service.
type ApplicationServiceOption func(*ApplicationService)

// WithCareerCenterEmail sets the inbox notified when an application reaches
// the career-center stage.
func WithCareerCenterEmail(email string) ApplicationServiceOption {
	return func(s *ApplicationService) { s.careerCenterEmail = email }
}

// WithApplicationMetrics attaches transition instrumentation.
func WithApplicationMetrics(m *MetricsService) ApplicationServiceOption {
	return func(s *ApplicationService) { s.metrics = m }
}

// NewApplicationService constructs the service with safe defaults.
func NewApplicationService(repo applicationStore, students capStudentStore, audit auditStore, guard *AccessGuard, gate *OTPGate, notifier Notifier, logger *zap.Logger, opts ...ApplicationServiceOption) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) error { return nil })
	}
	svc := &ApplicationService{
		repo:     repo,
		students: students,
		audit:    audit,
		guard:    guard,
		gate:     gate,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit records a new application in AWAITING_ADVISOR and alerts the chosen
// advisor.
func (s *ApplicationService) Submit(ctx context.Context, studentID string, req dto.CreateApplicationRequest) (*models.Application, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	app := &models.Application{
		StudentID:           studentID,
		CompanyName:         req.CompanyName,
		CompanyAddress:      req.CompanyAddress,
		CompanyContact:      req.CompanyContact,
		CompanyEmail:        req.CompanyEmail,
		Type:                models.InternshipType(req.Type),
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		TotalDays:           req.TotalDays,
		AdvisorEmail:        req.AdvisorEmail,
		DualMajor:           req.DualMajor,
		DualMajorFaculty:    req.DualMajorFaculty,
		DualMajorDepartment: req.DualMajorDepartment,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.emitAudit(ctx, &studentID, "APPLICATION_SUBMIT", "application", app.ID, map[string]string{"company": app.CompanyName})
	s.notify(ctx, Notification{
		To:      []string{app.AdvisorEmail},
		Subject: "New internship application awaiting your review",
		Body:    fmt.Sprintf("Application #%d (%s) is awaiting your decision.", app.ID, app.CompanyName),
	})
	return app, nil
}

// GetForAdvisor returns the application detail when the operator is
// authorized over it.
func (s *ApplicationService) GetForAdvisor(ctx context.Context, id int64, operator models.AdvisorIdentity) (*models.ApplicationDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.guard.AdvisorForApplication(ctx, operator, &detail.Application); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetForStudent returns the application detail for its owner.
func (s *ApplicationService) GetForStudent(ctx context.Context, id int64, studentID string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.guard.StudentOwns(studentID, detail.StudentID); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetForCareerCenter returns the application detail without advisor scoping.
func (s *ApplicationService) GetForCareerCenter(ctx context.Context, id int64) (*models.ApplicationDetail, error) {
	detail, err := s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	return detail, nil
}

// ListForAdvisor returns applications bound to the operator's email.
func (s *ApplicationService) ListForAdvisor(ctx context.Context, operator models.AdvisorIdentity, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error) {
	return s.list(ctx, models.ApplicationFilter{
		AdvisorEmail: operator.Email,
		Status:       models.ApplicationStatus(query.Status),
		Type:         models.InternshipType(query.Type),
		Search:       query.Search,
		Page:         query.Page,
		PageSize:     query.PageSize,
	})
}

// ListForCareerCenter returns applications without advisor scoping.
func (s *ApplicationService) ListForCareerCenter(ctx context.Context, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error) {
	return s.list(ctx, models.ApplicationFilter{
		Status:   models.ApplicationStatus(query.Status),
		Type:     models.InternshipType(query.Type),
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}

// ListForStudent returns the student's own applications.
func (s *ApplicationService) ListForStudent(ctx context.Context, studentID string, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error) {
	return s.list(ctx, models.ApplicationFilter{
		StudentID: studentID,
		Status:    models.ApplicationStatus(query.Status),
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	if filter.Status != "" {
		if _, ok := models.ParseApplicationStatus(string(filter.Status)); !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return list, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// AdvisorApprove advances an AWAITING_ADVISOR application and creates its
// diary shell. The returned application reflects the new state.
func (s *ApplicationService) AdvisorApprove(ctx context.Context, id int64, operator models.AdvisorIdentity, remark *string) (*models.Application, error) {
	app, err := s.loadForAdvisor(ctx, id, operator)
	if err != nil {
		return nil, err
	}
	diaryID, err := s.repo.AdvisorApprove(ctx, id, remark)
	if err != nil {
		return nil, foldNoRows(err, "failed to approve application")
	}
	s.observeTransition("application", models.AuditActionAdvisorApprove)
	s.emitAudit(ctx, &operator.ID, models.AuditActionAdvisorApprove, "application", id, map[string]string{"diary_id": fmt.Sprintf("%d", diaryID)})

	s.notifyStudent(ctx, app.StudentID,
		"Internship application approved by your advisor",
		fmt.Sprintf("Application #%d was approved by your advisor and forwarded to the career center.", id))
	if s.careerCenterEmail != "" {
		s.notify(ctx, Notification{
			To:      []string{s.careerCenterEmail},
			Subject: "Internship application awaiting career center review",
			Body:    fmt.Sprintf("Application #%d is awaiting a career center decision.", id),
		})
	}
	return s.reload(ctx, id)
}

// AdvisorReject terminates an AWAITING_ADVISOR application.
func (s *ApplicationService) AdvisorReject(ctx context.Context, id int64, operator models.AdvisorIdentity, reason string) (*models.Application, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	app, err := s.loadForAdvisor(ctx, id, operator)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AdvisorReject(ctx, id, &reason); err != nil {
		return nil, foldNoRows(err, "failed to reject application")
	}
	s.observeTransition("application", models.AuditActionAdvisorReject)
	s.emitAudit(ctx, &operator.ID, models.AuditActionAdvisorReject, "application", id, map[string]string{"reason": reason})
	s.notifyStudent(ctx, app.StudentID,
		"Internship application rejected",
		fmt.Sprintf("Application #%d was rejected by your advisor: %s", id, reason))
	return s.reload(ctx, id)
}

// CareerCenterApprove advances an AWAITING_CAREER_CENTER application to the
// company stage and issues the company's one-time credential.
func (s *ApplicationService) CareerCenterApprove(ctx context.Context, id int64, actorID string, remark *string) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.repo.CareerCenterDecide(ctx, id, true, remark); err != nil {
		return nil, foldNoRows(err, "failed to approve application")
	}
	s.observeTransition("application", models.AuditActionCareerApprove)
	s.emitAudit(ctx, &actorID, models.AuditActionCareerApprove, "application", id, nil)

	code, expiresAt, err := s.gate.Issue()
	if err != nil {
		// The transition already committed; the credential can be re-issued.
		s.logger.Error("failed to issue company credential", zap.Int64("application_id", id), zap.Error(err))
	} else if err := s.repo.SaveOTP(ctx, id, code, expiresAt); err != nil {
		s.logger.Error("failed to store company credential", zap.Int64("application_id", id), zap.Error(err))
	} else {
		s.notify(ctx, Notification{
			To:      []string{app.CompanyEmail},
			Subject: "Internship application awaiting your decision",
			Body: fmt.Sprintf("An internship application (#%d) awaits your approval. Use access code %s before %s.",
				id, code, expiresAt.Format(time.RFC1123)),
		})
	}
	s.notifyStudent(ctx, app.StudentID,
		"Internship application approved by the career center",
		fmt.Sprintf("Application #%d was approved by the career center and sent to %s.", id, app.CompanyName))
	return s.reload(ctx, id)
}

// CareerCenterReject terminates an AWAITING_CAREER_CENTER application.
func (s *ApplicationService) CareerCenterReject(ctx context.Context, id int64, actorID string, reason string) (*models.Application, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.repo.CareerCenterDecide(ctx, id, false, &reason); err != nil {
		return nil, foldNoRows(err, "failed to reject application")
	}
	s.observeTransition("application", models.AuditActionCareerReject)
	s.emitAudit(ctx, &actorID, models.AuditActionCareerReject, "application", id, map[string]string{"reason": reason})
	s.notifyStudent(ctx, app.StudentID,
		"Internship application rejected",
		fmt.Sprintf("Application #%d was rejected by the career center: %s", id, reason))
	return s.reload(ctx, id)
}

// CompanyDecide settles the AWAITING_COMPANY stage. The company authenticates
// with the one-time credential issued at career-center approval.
func (s *ApplicationService) CompanyDecide(ctx context.Context, id int64, credential string, approve bool, remark *string, reason string) (*models.Application, error) {
	if !approve && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.gate.Verify(fmt.Sprintf("application:%d", id), credential, app.OTPCode, app.OTPExpiresAt); err != nil {
		s.observeCredentialRejection(err)
		return nil, err
	}
	companyRemark := remark
	action := models.AuditActionCompanyApprove
	if !approve {
		companyRemark = &reason
		action = models.AuditActionCompanyReject
	}
	if err := s.repo.CompanyDecide(ctx, id, approve, companyRemark); err != nil {
		return nil, foldNoRows(err, "failed to record company decision")
	}
	s.observeTransition("application", action)
	s.emitAudit(ctx, nil, action, "application", id, map[string]string{"company": app.CompanyName})

	subject := "Internship application approved by the company"
	body := fmt.Sprintf("Application #%d was approved by %s. Your internship is confirmed.", id, app.CompanyName)
	if !approve {
		subject = "Internship application rejected by the company"
		body = fmt.Sprintf("Application #%d was rejected by %s: %s", id, app.CompanyName, reason)
	}
	s.notifyStudent(ctx, app.StudentID, subject, body)
	s.notify(ctx, Notification{
		To:      []string{app.AdvisorEmail},
		Subject: subject,
		Body:    body,
	})
	return s.reload(ctx, id)
}

// Cancel withdraws an application while the advisor has not acted yet.
func (s *ApplicationService) Cancel(ctx context.Context, id int64, studentID, reason string) (*models.Application, error) {
	if len([]rune(reason)) < CancelReasonMinLength {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cancellation reason must be at least %d characters", CancelReasonMinLength))
	}
	if err := s.repo.Cancel(ctx, id, studentID, reason); err != nil {
		return nil, foldNoRows(err, "failed to cancel application")
	}
	s.observeTransition("application", models.AuditActionCancel)
	s.emitAudit(ctx, &studentID, models.AuditActionCancel, "application", id, map[string]string{"reason": reason})

	if app, err := s.repo.GetByID(ctx, id); err == nil {
		s.notify(ctx, Notification{
			To:      []string{app.AdvisorEmail},
			Subject: "Internship application withdrawn",
			Body:    fmt.Sprintf("Application #%d was withdrawn by the student: %s", id, reason),
		})
		return app, nil
	}
	return s.reload(ctx, id)
}

func (s *ApplicationService) loadForAdvisor(ctx context.Context, id int64, operator models.AdvisorIdentity) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load application")
	}
	if err := s.guard.AdvisorForApplication(ctx, operator, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) reload(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to reload application")
	}
	return app, nil
}

func (s *ApplicationService) emitAudit(ctx context.Context, actorID *string, action, resource string, resourceID int64, detail map[string]string) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if len(detail) > 0 {
		payload, _ = json.Marshal(detail)
	}
	rid := fmt.Sprintf("%d", resourceID)
	if err := s.audit.Create(ctx, &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &rid,
		Detail:     payload,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Int64("resource_id", resourceID), zap.Error(err))
	}
}

// notify delivers best-effort: failures are logged and counted, never
// surfaced to the caller.
func (s *ApplicationService) notify(ctx context.Context, n Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification failed", zap.Strings("to", n.To), zap.String("subject", n.Subject), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveNotificationFailure()
		}
	}
}

func (s *ApplicationService) notifyStudent(ctx context.Context, studentID, subject, body string) {
	if s.students == nil {
		return
	}
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to resolve student for notification", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	s.notify(ctx, Notification{To: []string{student.Email}, Subject: subject, Body: body})
}

func (s *ApplicationService) observeTransition(entity, action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(entity, action)
	}
}

func (s *ApplicationService) observeCredentialRejection(err error) {
	if s.metrics == nil {
		return
	}
	reason := "invalid"
	if appErrors.Is(err, appErrors.ErrRateLimited.Code) {
		reason = "throttled"
	}
	s.metrics.ObserveCredentialRejection(reason)
}

// foldNoRows maps a missing row onto NotFound, keeping absent, wrong-state,
// and unauthorized indistinguishable to callers.
func foldNoRows(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
