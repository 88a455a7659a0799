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

type companyApplicationService interface {
	CompanyDecide(ctx context.Context, id int64, credential string, approve bool, remark *string, reason string) (*models.Application, error)
}

type companyDiaryService interface {
	CompanyDecide(ctx context.Context, diaryID int64, credential string, approve bool, remark *string) (*models.DiaryDetail, error)
}

// CompanyHandler serves company contacts. There is no session here; every
// request carries the one-time credential sent by mail.
type CompanyHandler struct {
	applications companyApplicationService
	diaries      companyDiaryService
}

// NewCompanyHandler constructs the handler.
func NewCompanyHandler(applications companyApplicationService, diaries companyDiaryService) *CompanyHandler {
	return &CompanyHandler{applications: applications, diaries: diaries}
}

// DecideApplication godoc
// @Summary Record the company verdict on an application
// @Tags Company
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.CompanyDecisionRequest true "Credential and decision"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /company/applications/{id}/decision [post]
func (h *CompanyHandler) DecideApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.CompanyDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	decision, ok := models.ParseDiaryDecision(req.Decision)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED"))
		return
	}
	approve := decision == models.DecisionApproved
	if !approve && req.Reason == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	app, err := h.applications.CompanyDecide(c.Request.Context(), id, req.Credential, approve, req.Remark, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// DecideDiary godoc
// @Summary Record the company verdict on a diary
// @Tags Company
// @Accept json
// @Produce json
// @Param id path int true "Diary ID"
// @Param payload body dto.CompanyDiaryDecisionRequest true "Credential and decision"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /company/diaries/{id}/decision [post]
func (h *CompanyHandler) DecideDiary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary id"))
		return
	}
	var req dto.CompanyDiaryDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	decision, ok := models.ParseDiaryDecision(req.Decision)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED"))
		return
	}
	approve := decision == models.DecisionApproved
	if !approve && (req.Remark == nil || *req.Remark == "") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection remark is required"))
		return
	}
	diary, err := h.diaries.CompanyDecide(c.Request.Context(), id, req.Credential, approve, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diary, nil)
}
