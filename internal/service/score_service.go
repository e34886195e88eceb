package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
)

type creditedSource interface {
	CreditedActivitiesForStudent(ctx context.Context, studentID, semesterKey string) ([]models.CreditedActivity, error)
}

// ScoreService aggregates credited points into semester scores.
type ScoreService struct {
	credits creditedSource
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewScoreService builds a ScoreService.
func NewScoreService(credits creditedSource, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ScoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{credits: credits, cache: cache, metrics: metrics, logger: logger}
}

func scoreCacheKey(studentID, semesterKey string) string {
	return fmt.Sprintf("score:%s:%s", studentID, semesterKey)
}

// ComputeSemesterScore sums the credited points of a student for one
// semester. Sums are exact decimal arithmetic; rounding to two fraction
// digits happens once, at the very end, never mid-sum.
func (s *ScoreService) ComputeSemesterScore(ctx context.Context, studentID, semesterKey string) (*models.SemesterScore, error) {
	cacheKey := scoreCacheKey(studentID, semesterKey)
	if s.cache != nil {
		var cached models.SemesterScore
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	start := time.Now()
	credited, err := s.credits.CreditedActivitiesForStudent(ctx, studentID, semesterKey)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	byType := make(map[string]decimal.Decimal)
	for _, c := range credited {
		total = total.Add(c.PointsValue)
		byType[c.TypeID] = byType[c.TypeID].Add(c.PointsValue)
	}

	score := &models.SemesterScore{
		StudentID:       studentID,
		SemesterKey:     semesterKey,
		Total:           total.Round(2),
		ActivityCount:   len(credited),
		BreakdownByType: make(map[string]decimal.Decimal, len(byType)),
	}
	for typeID, sum := range byType {
		score.BreakdownByType[typeID] = sum.Round(2)
	}

	if s.metrics != nil {
		s.metrics.ObserveScoreComputation(time.Since(start))
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, score, 0)
	}
	return score, nil
}

// InvalidateStudent drops cached scores for a student across all semesters.
// Registration and attendance writes call this.
func (s *ScoreService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("score:%s:*", studentID)); err != nil {
		s.logger.Warn("score cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
