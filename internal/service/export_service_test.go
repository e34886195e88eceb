package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	"github.com/minhng-dev/conduct-portal-api/pkg/storage"
)

type exportStudentListerStub struct {
	students []models.Student
}

func (s exportStudentListerStub) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	return s.students, nil
}

type exportUserReaderStub struct {
	users map[string]*models.User
}

func (s exportUserReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type exportScoreComputerStub struct {
	scores map[string]*models.SemesterScore
}

func (s exportScoreComputerStub) ComputeSemesterScore(ctx context.Context, studentID, semesterKey string) (*models.SemesterScore, error) {
	if score, ok := s.scores[studentID]; ok {
		return score, nil
	}
	return &models.SemesterScore{StudentID: studentID, SemesterKey: semesterKey, Total: decimal.Zero}, nil
}

type memoryStorageStub struct {
	saved map[string][]byte
}

func newMemoryStorageStub() *memoryStorageStub {
	return &memoryStorageStub{saved: make(map[string][]byte)}
}

func (s *memoryStorageStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return filename, nil
}

func (s *memoryStorageStub) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *memoryStorageStub) Delete(filename string) error {
	delete(s.saved, filename)
	return nil
}

func (s *memoryStorageStub) Sweep(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func exportFixture(store *memoryStorageStub) *ExportService {
	students := exportStudentListerStub{students: []models.Student{
		{ID: "st-1", StudentCode: "SV001", UserID: "u-s1", ClassID: "cl-1"},
		{ID: "st-2", StudentCode: "SV002", UserID: "u-s2", ClassID: "cl-1"},
	}}
	users := exportUserReaderStub{users: map[string]*models.User{
		"u-s1": {ID: "u-s1", FullName: "Nguyen Van A"},
	}}
	scores := exportScoreComputerStub{scores: map[string]*models.SemesterScore{
		"st-1": {StudentID: "st-1", Total: decimal.RequireFromString("7.5"), ActivityCount: 3},
	}}
	signer := storage.NewDownloadSigner("export-secret", time.Hour)
	return NewExportService(students, users, scores, store, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
}

func TestGenerateClassScoreCSV(t *testing.T) {
	store := newMemoryStorageStub()
	svc := exportFixture(store)

	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeClassScores,
		Params: models.ReportJobParams{
			ClassID:     "cl-1",
			SemesterKey: "1-2025",
			Format:      models.ReportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)
	assert.NotEmpty(t, result.Token)

	require.Len(t, store.saved, 1)
	var content string
	for _, data := range store.saved {
		content = string(data)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student Code,Student Name,Total Points,Activities", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "SV001")
	assert.Contains(t, lines[1], "Nguyen Van A")
	assert.Contains(t, lines[1], "7.50")
	// A student without credited activities still appears with a zero total.
	assert.Contains(t, lines[2], "SV002")
	assert.Contains(t, lines[2], "0.00")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestGenerateRejectsMalformedSemesterKey(t *testing.T) {
	svc := exportFixture(newMemoryStorageStub())

	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeClassScores,
		Params: models.ReportJobParams{
			ClassID:     "cl-1",
			SemesterKey: "bogus",
			Format:      models.ReportFormatCSV,
		},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestGenerateRejectsUnsupportedType(t *testing.T) {
	svc := exportFixture(newMemoryStorageStub())

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-1",
		Type:   "attendance_summary",
		Params: models.ReportJobParams{ClassID: "cl-1", SemesterKey: "1-2025", Format: models.ReportFormatCSV},
	})
	require.Error(t, err)
}

func TestBuildFilenameSanitizesParams(t *testing.T) {
	svc := exportFixture(newMemoryStorageStub())

	name := svc.buildFilename(&models.ReportJob{
		Type: models.ReportTypeClassScores,
		Params: models.ReportJobParams{
			ClassID:     "cl/1 a",
			SemesterKey: "1-2025",
			Format:      models.ReportFormatCSV,
		},
	})
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, " ")
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
