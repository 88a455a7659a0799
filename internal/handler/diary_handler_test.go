package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/dto"
	"github.com/stajtakip/internship-api/internal/middleware"
	"github.com/stajtakip/internship-api/internal/models"
)

type diaryServiceMock struct {
	detail *models.DiaryDetail
	list   []models.DiaryDetail
	token  string
	file   io.ReadCloser
	name   string
	err    error

	uploadedFilename string
}

func (m *diaryServiceMock) Upload(ctx context.Context, diaryID int64, studentID, filename string, file io.Reader) (*models.DiaryDetail, error) {
	m.uploadedFilename = filename
	return m.detail, m.err
}

func (m *diaryServiceMock) AdvisorDecide(ctx context.Context, diaryID int64, operator models.AdvisorIdentity, approve bool, remark *string) (*models.DiaryDetail, error) {
	return m.detail, m.err
}

func (m *diaryServiceMock) Worklist(ctx context.Context, operator models.AdvisorIdentity, query dto.DiaryQuery) ([]models.DiaryDetail, error) {
	return m.list, m.err
}

func (m *diaryServiceMock) ListForStudent(ctx context.Context, studentID string, query dto.DiaryQuery) ([]models.DiaryDetail, error) {
	return m.list, m.err
}

func (m *diaryServiceMock) GetForAdvisor(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (*models.DiaryDetail, error) {
	return m.detail, m.err
}

func (m *diaryServiceMock) GetForStudent(ctx context.Context, diaryID int64, studentID string) (*models.DiaryDetail, error) {
	return m.detail, m.err
}

func (m *diaryServiceMock) DownloadToken(ctx context.Context, diaryID int64, operator models.AdvisorIdentity) (string, time.Time, error) {
	return m.token, time.Now().Add(time.Minute), m.err
}

func (m *diaryServiceMock) OpenByToken(token string) (io.ReadCloser, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.file, m.name, nil
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDiaryHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &diaryServiceMock{detail: &models.DiaryDetail{Diary: models.Diary{ID: 3, Status: models.DiaryStatusAwaitingCompany}}}
	h := NewDiaryHandler(mockSvc, 1<<20)

	body, contentType := multipartUpload(t, "file", "diary.pdf", "report body")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/diaries/3/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Upload(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "diary.pdf", mockSvc.uploadedFilename)
}

func TestDiaryHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDiaryHandler(&diaryServiceMock{}, 4)

	body, contentType := multipartUpload(t, "file", "diary.pdf", "this exceeds four bytes")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/diaries/3/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiaryHandlerAdvisorDecideInvalidDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDiaryHandler(&diaryServiceMock{}, 0)

	payload, _ := json.Marshal(dto.DiaryDecisionRequest{Decision: "MAYBE"})
	c, w := newGinContext(http.MethodPost, "/advisor/diaries/3/decision", payload)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, advisorClaims())

	h.AdvisorDecide(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiaryHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &diaryServiceMock{
		file: io.NopCloser(strings.NewReader("diary content")),
		name: "diary.pdf",
	}
	h := NewDiaryHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/diaries/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "diary content", w.Body.String())
	require.Contains(t, w.Header().Get("Content-Disposition"), "diary.pdf")
}

func TestDiaryHandlerDownloadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &diaryServiceMock{token: "signed-token"}
	h := NewDiaryHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodPost, "/advisor/diaries/3/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, advisorClaims())

	h.DownloadToken(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "signed-token")
}
