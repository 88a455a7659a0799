package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/response"
)

type exemptionService interface {
	Submit(ctx context.Context, studentID string, req dto.CreateExemptionRequest) (*models.ExemptionApplication, error)
	ListForAdvisor(ctx context.Context, operator models.AdvisorIdentity) ([]models.ExemptionDetail, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.ExemptionDetail, error)
	Decide(ctx context.Context, id int64, operator models.AdvisorIdentity, approve bool, remark *string) (*models.ExemptionDetail, error)
}

// ExemptionHandler exposes REST endpoints for exemption requests.
type ExemptionHandler struct {
	service exemptionService
}

// NewExemptionHandler constructs the handler.
func NewExemptionHandler(service exemptionService) *ExemptionHandler {
	return &ExemptionHandler{service: service}
}

// Submit godoc
// @Summary Submit an internship exemption request
// @Tags Exemptions
// @Accept json
// @Produce json
// @Param payload body dto.CreateExemptionRequest true "Exemption payload"
// @Success 201 {object} response.Envelope
// @Router /exemptions [post]
func (h *ExemptionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid exemption payload"))
		return
	}
	exemption, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exemption)
}

// List godoc
// @Summary List exemption requests visible to the caller
// @Tags Exemptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exemptions [get]
func (h *ExemptionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		list []models.ExemptionDetail
		err  error
	)
	switch claims.Role {
	case models.RoleAdvisor:
		list, err = h.service.ListForAdvisor(c.Request.Context(), advisorFromClaims(claims))
	default:
		list, err = h.service.ListForStudent(c.Request.Context(), claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Decide godoc
// @Summary Record the advisor verdict on an exemption
// @Tags Exemptions
// @Accept json
// @Produce json
// @Param id path int true "Exemption ID"
// @Param payload body dto.ExemptionDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /advisor/exemptions/{id}/decision [post]
func (h *ExemptionHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid exemption id"))
		return
	}
	var req dto.ExemptionDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	decision, ok := models.ParseDiaryDecision(req.Decision)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED"))
		return
	}
	exemption, err := h.service.Decide(c.Request.Context(), id, advisorFromClaims(claims), decision == models.DecisionApproved, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exemption, nil)
}
