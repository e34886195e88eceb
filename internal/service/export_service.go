package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	"github.com/minhng-dev/conduct-portal-api/pkg/export"
	"github.com/minhng-dev/conduct-portal-api/pkg/storage"
)

type exportStudentLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type exportUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type exportScoreComputer interface {
	ComputeSemesterScore(ctx context.Context, studentID, semesterKey string) (*models.SemesterScore, error)
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Sweep(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(sheet export.ScoreSheet) ([]byte, error)
}

type pdfRenderer interface {
	Render(sheet export.ScoreSheet) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds class score report datasets and persists rendered
// files behind signed download tokens.
type ExportService struct {
	students exportStudentLister
	users    exportUserReader
	scores   exportScoreComputer
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.DownloadSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	students exportStudentLister,
	users exportUserReader,
	scores exportScoreComputer,
	fileStore fileStorage,
	signer *storage.DownloadSigner,
	cfg ExportConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		students: students,
		users:    users,
		scores:   scores,
		storage:  fileStore,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeClassScores {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}
	sheet, err := s.buildScoreSheet(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(sheet)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(sheet)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.Sweep(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	classPart := sanitizeFilename(job.Params.ClassID)
	semesterPart := sanitizeFilename(job.Params.SemesterKey)
	return fmt.Sprintf("%s_%s_%s_%s.%s", strings.ToLower(string(job.Type)), classPart, semesterPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// buildScoreSheet computes a score line per student of the class.
// Students without credited activities still appear, with a zero total.
func (s *ExportService) buildScoreSheet(ctx context.Context, params models.ReportJobParams) (export.ScoreSheet, error) {
	if _, err := ParseSemesterKey(params.SemesterKey); err != nil {
		return export.ScoreSheet{}, err
	}

	students, err := s.students.ListByClass(ctx, params.ClassID)
	if err != nil {
		return export.ScoreSheet{}, err
	}

	rows := make([]export.ScoreRow, 0, len(students))
	for _, student := range students {
		score, err := s.scores.ComputeSemesterScore(ctx, student.ID, params.SemesterKey)
		if err != nil {
			return export.ScoreSheet{}, err
		}
		name := ""
		if user, err := s.users.FindByID(ctx, student.UserID); err == nil {
			name = user.FullName
		}
		rows = append(rows, export.ScoreRow{
			StudentCode:   student.StudentCode,
			StudentName:   name,
			TotalPoints:   score.Total.StringFixed(2),
			ActivityCount: fmt.Sprintf("%d", score.ActivityCount),
		})
	}

	return export.ScoreSheet{
		Title: fmt.Sprintf("Class Scores %s %s", params.ClassID, params.SemesterKey),
		Rows:  rows,
	}, nil
}
