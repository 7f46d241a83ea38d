package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/service"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	createReq   dto.ExportRequest
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportServiceMock) CreateJob(ctx context.Context, actor models.Actor, classID string, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	m.createReq = req
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, actor models.Actor, id string) (*dto.ExportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	svc := &exportServiceMock{createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	h := NewExportHandler(svc)
	c, w := newGinContext(http.MethodPost, "/classes/class-1/exports", []byte(`{"format":"pdf"}`))
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	asStaff(c)
	h.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ExportFormatPDF, svc.createReq.Format)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"status":"QUEUED"`)
}

func TestExportHandlerCreateUnsupportedFormat(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")})
	c, w := newGinContext(http.MethodPost, "/classes/class-1/exports", []byte(`{"format":"docx"}`))
	asStaff(c)
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	url := "/api/v1/exports/download/token"
	h := NewExportHandler(&exportServiceMock{statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, ResultURL: &url}})
	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	asStaff(c)
	h.Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), url)
}

func TestExportHandlerStatusForbidden(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{statusErr: appErrors.ErrForbidden})
	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	asStaff(c)
	h.Status(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.csv")
	require.NoError(t, os.WriteFile(path, []byte("Session,Date\n1,2026-11-02\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewExportHandler(&exportServiceMock{download: &service.ExportDownload{
		JobID:    "job-1",
		File:     file,
		Filename: "session-plan-C-1.csv",
		Format:   models.ExportFormatCSV,
	}})
	c, w := newGinContext(http.MethodGet, "/exports/download/signed", nil)
	c.Params = gin.Params{{Key: "token", Value: "signed"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="session-plan-C-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Session,Date\n1,2026-11-02\n", w.Body.String())
	resourceID, ok := c.Get("audit_resource_id")
	require.True(t, ok)
	assert.Equal(t, "job-1", resourceID)
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})
	c, w := newGinContext(http.MethodGet, "/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownloadMissingToken(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{})
	c, w := newGinContext(http.MethodGet, "/exports/download/", nil)
	h.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", exportContentType(models.ExportFormatPDF))
	assert.Equal(t, "text/csv", exportContentType(models.ExportFormatCSV))
	assert.Equal(t, "application/octet-stream", exportContentType("xlsx"))
}
