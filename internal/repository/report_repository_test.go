package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

func newReportMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func reportJobColumns() []string {
	return []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}
}

func TestReportRepositoryListQueuedIncludesStalledProcessing(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	params := []byte(`{"classId":"cl-1","semesterKey":"1-2025","format":"csv"}`)
	rows := sqlmock.NewRows(reportJobColumns()).
		AddRow("job-1", "class_scores", params, "QUEUED", 0, nil, "u-t1", time.Now(), nil, nil).
		AddRow("job-2", "class_scores", params, "PROCESSING", 10, nil, "u-t1", time.Now(), nil, nil)

	// The recovery scan must also surface jobs stranded mid-run.
	mock.ExpectQuery(regexp.QuoteMeta(`status IN ('QUEUED', 'PROCESSING')`)).
		WithArgs(50).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, models.ReportStatusQueued, jobs[0].Status)
	assert.Equal(t, models.ReportStatusProcessing, jobs[1].Status)
	assert.Equal(t, "cl-1", jobs[1].Params.ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	status := models.ReportStatusQueued
	progress := 0
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE report_jobs SET status = $1, progress = $2 WHERE id = $3`)).
		WithArgs(status, progress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{Status: &status, Progress: &progress})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
