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

type applicationService interface {
	Submit(ctx context.Context, studentID string, req dto.CreateApplicationRequest) (*models.Application, error)
	GetForAdvisor(ctx context.Context, id int64, operator models.AdvisorIdentity) (*models.ApplicationDetail, error)
	GetForStudent(ctx context.Context, id int64, studentID string) (*models.ApplicationDetail, error)
	GetForCareerCenter(ctx context.Context, id int64) (*models.ApplicationDetail, error)
	ListForAdvisor(ctx context.Context, operator models.AdvisorIdentity, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error)
	ListForCareerCenter(ctx context.Context, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error)
	ListForStudent(ctx context.Context, studentID string, query dto.ApplicationQuery) ([]models.ApplicationDetail, *models.Pagination, error)
	AdvisorApprove(ctx context.Context, id int64, operator models.AdvisorIdentity, remark *string) (*models.Application, error)
	AdvisorReject(ctx context.Context, id int64, operator models.AdvisorIdentity, reason string) (*models.Application, error)
	CareerCenterApprove(ctx context.Context, id int64, actorID string, remark *string) (*models.Application, error)
	CareerCenterReject(ctx context.Context, id int64, actorID string, reason string) (*models.Application, error)
	Cancel(ctx context.Context, id int64, studentID, reason string) (*models.Application, error)
}

// ApplicationHandler exposes REST endpoints for the application pipeline.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Submit godoc
// @Summary Submit an internship application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.CreateApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application payload"))
		return
	}
	app, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List applications visible to the caller
// @Tags Applications
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Internship type filter"
// @Param search query string false "Student name or number search"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ApplicationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	var (
		list       []models.ApplicationDetail
		pagination *models.Pagination
		err        error
	)
	switch claims.Role {
	case models.RoleAdvisor:
		list, pagination, err = h.service.ListForAdvisor(c.Request.Context(), advisorFromClaims(claims), query)
	case models.RoleCareerCenter, models.RoleAdmin:
		list, pagination, err = h.service.ListForCareerCenter(c.Request.Context(), query)
	default:
		list, pagination, err = h.service.ListForStudent(c.Request.Context(), claims.UserID, query)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}

	var (
		detail *models.ApplicationDetail
		err    error
	)
	switch claims.Role {
	case models.RoleAdvisor:
		detail, err = h.service.GetForAdvisor(c.Request.Context(), id, advisorFromClaims(claims))
	case models.RoleCareerCenter, models.RoleAdmin:
		detail, err = h.service.GetForCareerCenter(c.Request.Context(), id)
	default:
		detail, err = h.service.GetForStudent(c.Request.Context(), id, claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AdvisorApprove godoc
// @Summary Approve an application as advisor
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.ApproveRequest false "Optional remark"
// @Success 200 {object} response.Envelope
// @Router /advisor/applications/{id}/approve [post]
func (h *ApplicationHandler) AdvisorApprove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	app, err := h.service.AdvisorApprove(c.Request.Context(), id, advisorFromClaims(claims), req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// AdvisorReject godoc
// @Summary Reject an application as advisor
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /advisor/applications/{id}/reject [post]
func (h *ApplicationHandler) AdvisorReject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	app, err := h.service.AdvisorReject(c.Request.Context(), id, advisorFromClaims(claims), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// CareerCenterApprove godoc
// @Summary Approve an application as career center
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.ApproveRequest false "Optional remark"
// @Success 200 {object} response.Envelope
// @Router /career-center/applications/{id}/approve [post]
func (h *ApplicationHandler) CareerCenterApprove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	app, err := h.service.CareerCenterApprove(c.Request.Context(), id, claims.UserID, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// CareerCenterReject godoc
// @Summary Reject an application as career center
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /career-center/applications/{id}/reject [post]
func (h *ApplicationHandler) CareerCenterReject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	app, err := h.service.CareerCenterReject(c.Request.Context(), id, claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Cancel godoc
// @Summary Withdraw an application before advisor review
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.CancelRequest true "Withdrawal reason"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/cancel [post]
func (h *ApplicationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return
	}
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "withdrawal reason is required"))
		return
	}
	app, err := h.service.Cancel(c.Request.Context(), id, claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
