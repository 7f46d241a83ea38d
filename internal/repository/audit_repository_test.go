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

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	userID := "user-1"
	classID := "draft-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "user-1", models.AuditActionSubmit, models.AuditResourceClass, "draft-1", sqlmock.AnyArg(), []byte(`{"status":"SCHEDULED"}`), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionSubmit,
		Resource:   models.AuditResourceClass,
		ResourceID: &classID,
		NewValues:  []byte(`{"status":"SCHEDULED"}`),
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListByResource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("log-1", "user-1", models.AuditActionDraftCreate, "class", "draft-1", nil, []byte(`{}`), "127.0.0.1", "test", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE resource = $1 AND resource_id = $2")).
		WithArgs("class", "draft-1", 50).
		WillReturnRows(rows)

	logs, err := repo.ListByResource(context.Background(), "class", "draft-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionDraftCreate, logs[0].Action)
}
