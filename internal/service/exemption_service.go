package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

type exemptionStore interface {
	Create(ctx context.Context, exemption *models.ExemptionApplication) error
	GetDetailByID(ctx context.Context, id int64) (*models.ExemptionDetail, error)
	List(ctx context.Context, advisorEmail, studentID string) ([]models.ExemptionDetail, error)
	Decide(ctx context.Context, id int64, approve bool, remark *string) error
}

// ExemptionService handles the single-stage exemption pipeline. It shares the
// advisor scoping rules with the application pipeline but has no career-center
// or company stage.
type ExemptionService struct {
	repo     exemptionStore
	audit    auditStore
	guard    *AccessGuard
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewExemptionService constructs the service.
func NewExemptionService(repo exemptionStore, audit auditStore, guard *AccessGuard, notifier Notifier, logger *zap.Logger) *ExemptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) error { return nil })
	}
	return &ExemptionService{
		repo:     repo,
		audit:    audit,
		guard:    guard,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Submit records a new exemption request in AWAITING_ADVISOR.
func (s *ExemptionService) Submit(ctx context.Context, studentID string, req dto.CreateExemptionRequest) (*models.ExemptionApplication, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	exemption := &models.ExemptionApplication{
		StudentID:    studentID,
		AdvisorEmail: req.AdvisorEmail,
		CompanyName:  req.CompanyName,
		Reason:       req.Reason,
	}
	if err := s.repo.Create(ctx, exemption); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exemption")
	}
	s.emitAudit(ctx, &studentID, "EXEMPTION_SUBMIT", exemption.ID, "")
	s.notify(ctx, Notification{
		To:      []string{exemption.AdvisorEmail},
		Subject: "Internship exemption request awaiting your review",
		Body:    fmt.Sprintf("Exemption request #%d (%s) is awaiting your decision.", exemption.ID, exemption.CompanyName),
	})
	return exemption, nil
}

// ListForAdvisor returns exemptions bound to the operator's email.
func (s *ExemptionService) ListForAdvisor(ctx context.Context, operator models.AdvisorIdentity) ([]models.ExemptionDetail, error) {
	list, err := s.repo.List(ctx, operator.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exemptions")
	}
	return list, nil
}

// ListForStudent returns the student's own exemption requests.
func (s *ExemptionService) ListForStudent(ctx context.Context, studentID string) ([]models.ExemptionDetail, error) {
	list, err := s.repo.List(ctx, "", studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exemptions")
	}
	return list, nil
}

// Decide settles the advisor stage of an exemption.
func (s *ExemptionService) Decide(ctx context.Context, id int64, operator models.AdvisorIdentity, approve bool, remark *string) (*models.ExemptionDetail, error) {
	if !approve && (remark == nil || *remark == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	detail, err := s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to load exemption")
	}
	if !MatchesAdvisorEmail(operator.Email, detail.AdvisorEmail) {
		if s.guard == nil || s.guard.resolver == nil {
			return nil, appErrors.ErrNotFound
		}
		if _, err := s.guard.resolver.Resolve(ctx, operator, detail.StudentID, nil); err != nil {
			return nil, appErrors.ErrNotFound
		}
	}
	if err := s.repo.Decide(ctx, id, approve, remark); err != nil {
		return nil, foldNoRows(err, "failed to record exemption decision")
	}
	action := models.AuditActionExemptionDecide
	s.emitAudit(ctx, &operator.ID, action, id, decisionLabel(approve))

	detail, err = s.repo.GetDetailByID(ctx, id)
	if err != nil {
		return nil, foldNoRows(err, "failed to reload exemption")
	}
	return detail, nil
}

func (s *ExemptionService) emitAudit(ctx context.Context, actorID *string, action string, id int64, detail string) {
	if s.audit == nil {
		return
	}
	rid := fmt.Sprintf("%d", id)
	var payload []byte
	if detail != "" {
		payload, _ = json.Marshal(map[string]string{"detail": detail})
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Resource:   "exemption",
		ResourceID: &rid,
		Detail:     payload,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Int64("exemption_id", id), zap.Error(err))
	}
}

func (s *ExemptionService) notify(ctx context.Context, n Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification failed", zap.Strings("to", n.To), zap.String("subject", n.Subject), zap.Error(err))
	}
}
