package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
	"github.com/stajtakip/internship-api/pkg/export"
)

// ExportService renders advisor worklists as downloadable documents.
type ExportService struct {
	applications *ApplicationService
	diaries      *DiaryService
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(applications *ApplicationService, diaries *DiaryService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		applications: applications,
		diaries:      diaries,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// ExportApplications renders the advisor's application worklist. Format is
// "csv" or "pdf".
func (s *ExportService) ExportApplications(ctx context.Context, operator models.AdvisorIdentity, format string) ([]byte, string, error) {
	list, _, err := s.applications.ListForAdvisor(ctx, operator, dto.ApplicationQuery{PageSize: 100})
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"ID", "Student", "Number", "Company", "Type", "Start", "End", "Status"},
	}
	for _, app := range list {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":      fmt.Sprintf("%d", app.ID),
			"Student": app.StudentName,
			"Number":  app.StudentNumber,
			"Company": app.CompanyName,
			"Type":    string(app.Type),
			"Start":   app.StartDate.Format("2006-01-02"),
			"End":     app.EndDate.Format("2006-01-02"),
			"Status":  string(app.Status),
		})
	}
	return s.render(dataset, "internship applications", format)
}

// ExportDiaries renders the advisor's diary worklist.
func (s *ExportService) ExportDiaries(ctx context.Context, operator models.AdvisorIdentity, format string) ([]byte, string, error) {
	list, err := s.diaries.Worklist(ctx, operator, dto.DiaryQuery{PageSize: 100})
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"ID", "Student", "Number", "Company", "Status", "Uploaded", "Deadline"},
	}
	for _, diary := range list {
		uploaded := ""
		if diary.UploadedAt != nil {
			uploaded = diary.UploadedAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":       fmt.Sprintf("%d", diary.ID),
			"Student":  diary.StudentName,
			"Number":   diary.StudentNumber,
			"Company":  diary.CompanyName,
			"Status":   string(diary.Status),
			"Uploaded": uploaded,
			"Deadline": diary.UploadDeadline.Format("2006-01-02"),
		})
	}
	return s.render(dataset, "internship diaries", format)
}

func (s *ExportService) render(dataset export.Dataset, title, format string) ([]byte, string, error) {
	switch format {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, fmt.Sprintf("%s-%s.csv", sanitizeFilename(title), time.Now().Format("20060102")), nil
	case "pdf":
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, fmt.Sprintf("%s-%s.pdf", sanitizeFilename(title), time.Now().Format("20060102")), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
