package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/models"
)

func TestScheduleExportRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleExportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_exports")).
		WithArgs(sqlmock.AnyArg(), "draft-1", "pdf", "QUEUED", nil, nil, "user-1", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ScheduleExport{ClassID: "draft-1", Format: models.ExportFormatPDF, CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleExportRepository(db)

	status := models.ExportStatusFinished
	url := "/api/v1/exports/download/token"
	finished := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_exports SET status = $1, result_url = $2, finished_at = $3 WHERE id = $4")).
		WithArgs("FINISHED", url, finished, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportParams{Status: &status, ResultURL: &url, FinishedAt: &finished}))
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleExportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "format", "status", "result_url", "error_message", "created_by", "created_at", "finished_at"}).
		AddRow("job-1", "draft-1", "csv", "QUEUED", nil, nil, "user-1", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_exports WHERE status = 'QUEUED'")).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.ExportFormatCSV, jobs[0].Format)
}
