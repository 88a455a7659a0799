package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/response"
)

type exportService interface {
	ExportApplications(ctx context.Context, operator models.AdvisorIdentity, format string) ([]byte, string, error)
	ExportDiaries(ctx context.Context, operator models.AdvisorIdentity, format string) ([]byte, string, error)
}

// ExportHandler serves advisor worklist exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Applications godoc
// @Summary Export the advisor application worklist
// @Tags Exports
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /advisor/exports/applications [get]
func (h *ExportHandler) Applications(c *gin.Context) {
	h.serve(c, h.service.ExportApplications)
}

// Diaries godoc
// @Summary Export the advisor diary worklist
// @Tags Exports
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /advisor/exports/diaries [get]
func (h *ExportHandler) Diaries(c *gin.Context) {
	h.serve(c, h.service.ExportDiaries)
}

func (h *ExportHandler) serve(c *gin.Context, render func(context.Context, models.AdvisorIdentity, string) ([]byte, string, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, filename, err := render(c.Request.Context(), advisorFromClaims(claims), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
