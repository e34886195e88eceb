package service

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

// semesterKeyPattern is the full grammar for semester keys. Legacy data mixes
// bare term digits with the "hoc_ky_N" prefix and both dash and underscore
// separators; everything outside this grammar is rejected. There is no
// second-chance sniffing of ambiguous strings.
var semesterKeyPattern = regexp.MustCompile(`^(1|2|hoc_ky_1|hoc_ky_2)[-_](\d{4})(-\d{4})?$`)

type semesterKeySource interface {
	DistinctSemesterKeys(ctx context.Context) ([]string, error)
}

// SemesterService normalizes semester-string encodings into canonical keys.
type SemesterService struct {
	activities semesterKeySource
	logger     *zap.Logger
}

// NewSemesterService builds a SemesterService.
func NewSemesterService(activities semesterKeySource, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{activities: activities, logger: logger}
}

// ParseSemesterKey parses a raw semester string into its canonical key.
// Inputs outside the strict grammar fail with a typed error; callers that
// want "all semesters" must pass no filter at all, never a malformed one.
func ParseSemesterKey(raw string) (models.SemesterKey, error) {
	m := semesterKeyPattern.FindStringSubmatch(raw)
	if m == nil {
		return models.SemesterKey{}, appErrors.Clone(appErrors.ErrMalformedSemesterKey, fmt.Sprintf("malformed semester key %q", raw))
	}

	term := models.TermOne
	if m[1] == "2" || m[1] == "hoc_ky_2" {
		term = models.TermTwo
	}

	year := m[2]
	if m[3] != "" {
		year += m[3]
	}

	return models.SemesterKey{Term: term, AcademicYear: year}, nil
}

// ParseSemesterKey is the method form used through the service interface.
func (s *SemesterService) ParseSemesterKey(raw string) (models.SemesterKey, error) {
	return ParseSemesterKey(raw)
}

// ListOptions derives the selectable semesters from existing activities.
// Keys that fail the grammar are skipped with a warning instead of guessed
// at; they point at bad rows, not at a different encoding.
func (s *SemesterService) ListOptions(ctx context.Context, activeKey string) ([]models.SemesterOption, error) {
	raws, err := s.activities.DistinctSemesterKeys(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester keys")
	}

	seen := make(map[string]struct{}, len(raws))
	options := make([]models.SemesterOption, 0, len(raws))
	for _, raw := range raws {
		key, err := ParseSemesterKey(raw)
		if err != nil {
			s.logger.Warn("skipping malformed semester key on activity", zap.String("raw", raw))
			continue
		}
		canonical := key.String()
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}

		termN := "1"
		if key.Term == models.TermTwo {
			termN = "2"
		}
		options = append(options, models.SemesterOption{
			Value:  canonical,
			Label:  fmt.Sprintf("HK%s %s", termN, key.AcademicYear),
			Active: canonical == activeKey,
		})
	}
	return options, nil
}
