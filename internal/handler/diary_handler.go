package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/response"
)

type diaryService interface {
	Upload(ctx context.Context, diaryID int64, studentID, filename string, file io.Reader) (*models.DiaryDetail, error)
	AdvisorDecide(ctx context.Context, diaryID int64, operator models.AdvisorIdentity, approve bool, remark *string) (*models.DiaryDetail, error)
	Worklist(ctx context.Context, operator models.AdvisorIdentity, query dto.DiaryQuery) ([]models.DiaryDetail, error)
	ListForStudent(ctx context.Context, studentID string, query dto.DiaryQuery) ([]models.DiaryDetail, error)
	GetForAdvisor(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (*models.DiaryDetail, error)
	GetForStudent(ctx context.Context, diaryID int64, studentID string) (*models.DiaryDetail, error)
	DownloadToken(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (string, time.Time, error)
	OpenByToken(token string) (io.ReadCloser, string, error)
}

// DiaryHandler exposes REST endpoints for the diary pipeline.
type DiaryHandler struct {
	service     diaryService
	maxFileSize int64
}

// NewDiaryHandler constructs the handler.
func NewDiaryHandler(service diaryService, maxFileSize int64) *DiaryHandler {
	return &DiaryHandler{service: service, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload the diary document
// @Tags Diaries
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Diary ID"
// @Param file formData file true "Diary document"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /diaries/{id}/upload [post]
func (h *DiaryHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary id"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "diary file is required"))
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", h.maxFileSize)))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	diary, err := h.service.Upload(c.Request.Context(), id, claims.UserID, header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diary, nil)
}

// List godoc
// @Summary List diaries visible to the caller
// @Tags Diaries
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /diaries [get]
func (h *DiaryHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.DiaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	var (
		list []models.DiaryDetail
		err  error
	)
	switch claims.Role {
	case models.RoleAdvisor:
		list, err = h.service.Worklist(c.Request.Context(), advisorFromClaims(claims), query)
	default:
		list, err = h.service.ListForStudent(c.Request.Context(), claims.UserID, query)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Get godoc
// @Summary Get diary detail
// @Tags Diaries
// @Produce json
// @Param id path int true "Diary ID"
// @Success 200 {object} response.Envelope
// @Router /diaries/{id} [get]
func (h *DiaryHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary id"))
		return
	}

	var (
		detail *models.DiaryDetail
		err    error
	)
	switch claims.Role {
	case models.RoleAdvisor:
		detail, err = h.service.GetForAdvisor(c.Request.Context(), id, advisorFromClaims(claims))
	default:
		detail, err = h.service.GetForStudent(c.Request.Context(), id, claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AdvisorDecide godoc
// @Summary Record the advisor verdict on a diary
// @Tags Diaries
// @Accept json
// @Produce json
// @Param id path int true "Diary ID"
// @Param payload body dto.DiaryDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /advisor/diaries/{id}/decision [post]
func (h *DiaryHandler) AdvisorDecide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary id"))
		return
	}
	var req dto.DiaryDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	decision, ok := models.ParseDiaryDecision(req.Decision)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED"))
		return
	}
	diary, err := h.service.AdvisorDecide(c.Request.Context(), id, advisorFromClaims(claims), decision == models.DecisionApproved, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diary, nil)
}

// DownloadToken godoc
// @Summary Create a signed download link for the diary file
// @Tags Diaries
// @Produce json
// @Param id path int true "Diary ID"
// @Success 200 {object} response.Envelope
// @Router /advisor/diaries/{id}/download [post]
func (h *DiaryHandler) DownloadToken(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary id"))
		return
	}
	token, expiresAt, err := h.service.DownloadToken(c.Request.Context(), id, advisorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// Download godoc
// @Summary Download a diary file with a signed token
// @Tags Diaries
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /diaries/download/{token} [get]
func (h *DiaryHandler) Download(c *gin.Context) {
	file, filename, err := h.service.OpenByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
