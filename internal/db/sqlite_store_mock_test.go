package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/models"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	for _, p := range []string{"foreign_keys", "journal_mode", "synchronous"} {
		mock.ExpectExec("PRAGMA " + p).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	s, err := NewSQLiteStore(sqlDB)
	require.NoError(t, err)
	s.SetLogger(logger.Discard().Component("sqlite"))
	return s, mock
}

func TestListResponsesSkipsUndecodableRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, body FROM responses").
		WithArgs("asm_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
			AddRow("r1", `{"id":"r1","assessmentId":"asm_1","status":"completed","responses":[],"startedAt":"2025-03-01T10:00:00Z"}`).
			AddRow("r2", `{broken`))

	rs, err := s.ListResponses(context.Background(), "asm_1")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "r1", rs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResponseWrapsDriverError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO responses").WillReturnError(errors.New("disk I/O error"))

	_, err := s.SaveResponse(context.Background(), "asm_1", models.AssessmentResponse{ID: "r1", Status: models.StatusInProgress})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save response: disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLiteStoreFailsOnPragma(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectExec("PRAGMA foreign_keys").WillReturnError(errors.New("locked"))

	_, err = NewSQLiteStore(sqlDB)
	assert.ErrorContains(t, err, "foreign_keys")
}
