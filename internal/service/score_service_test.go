package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type creditedSourceStub struct {
	credited []models.CreditedActivity
	err      error
	calls    int
}

func (s *creditedSourceStub) CreditedActivitiesForStudent(ctx context.Context, studentID, semesterKey string) ([]models.CreditedActivity, error) {
	s.calls++
	return s.credited, s.err
}

type cacheRepoStub struct {
	entries map[string]*models.SemesterScore
	sets    map[string]*models.SemesterScore
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{
		entries: make(map[string]*models.SemesterScore),
		sets:    make(map[string]*models.SemesterScore),
	}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	score, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*models.SemesterScore); ok {
		*out = *score
	}
	return nil
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if score, ok := value.(*models.SemesterScore); ok {
		s.sets[key] = score
	}
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

func TestComputeSemesterScoreRoundsOnceAtTheEnd(t *testing.T) {
	// Three values that would drift under per-item rounding.
	credits := &creditedSourceStub{credited: []models.CreditedActivity{
		{ActivityID: "a-1", TypeID: "volunteer", PointsValue: decimal.RequireFromString("0.333")},
		{ActivityID: "a-2", TypeID: "volunteer", PointsValue: decimal.RequireFromString("0.333")},
		{ActivityID: "a-3", TypeID: "academic", PointsValue: decimal.RequireFromString("0.334")},
	}}

	svc := NewScoreService(credits, nil, nil, nil)

	score, err := svc.ComputeSemesterScore(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.Equal(t, "1", score.Total.String())
	assert.Equal(t, 3, score.ActivityCount)
	assert.Equal(t, "0.67", score.BreakdownByType["volunteer"].StringFixed(2))
	assert.Equal(t, "0.33", score.BreakdownByType["academic"].StringFixed(2))
}

func TestComputeSemesterScoreEmptyCreditedSet(t *testing.T) {
	svc := NewScoreService(&creditedSourceStub{}, nil, nil, nil)

	score, err := svc.ComputeSemesterScore(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.True(t, score.Total.IsZero())
	assert.Equal(t, 0, score.ActivityCount)
	assert.Empty(t, score.BreakdownByType)
}

func TestComputeSemesterScoreCacheHitSkipsComputation(t *testing.T) {
	repo := newCacheRepoStub()
	repo.entries["score:st-1:1-2025"] = &models.SemesterScore{
		StudentID:   "st-1",
		SemesterKey: "1-2025",
		Total:       decimal.RequireFromString("7.50"),
	}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	credits := &creditedSourceStub{}

	svc := NewScoreService(credits, cache, nil, nil)

	score, err := svc.ComputeSemesterScore(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.Equal(t, "7.50", score.Total.StringFixed(2))
	assert.Zero(t, credits.calls)
}

func TestComputeSemesterScoreCacheMissComputesAndStores(t *testing.T) {
	repo := newCacheRepoStub()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	credits := &creditedSourceStub{credited: []models.CreditedActivity{
		{ActivityID: "a-1", TypeID: "volunteer", PointsValue: decimal.NewFromInt(4)},
	}}

	svc := NewScoreService(credits, cache, nil, nil)

	score, err := svc.ComputeSemesterScore(context.Background(), "st-1", "1-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, credits.calls)
	assert.Equal(t, "4", score.Total.String())

	stored, ok := repo.sets["score:st-1:1-2025"]
	require.True(t, ok)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(4)))
}

func TestComputeSemesterScorePropagatesCreditError(t *testing.T) {
	credits := &creditedSourceStub{err: appErrors.Clone(appErrors.ErrMalformedSemesterKey, "malformed semester key")}
	svc := NewScoreService(credits, nil, nil, nil)

	_, err := svc.ComputeSemesterScore(context.Background(), "st-1", "garbage")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedSemesterKey.Code, appErrors.FromError(err).Code)
}

func TestInvalidateStudentDropsAllSemesters(t *testing.T) {
	repo := newCacheRepoStub()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewScoreService(&creditedSourceStub{}, cache, nil, nil)

	svc.InvalidateStudent(context.Background(), "st-1")
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, "score:st-1:*", repo.deleted[0])
}

func TestInvalidateStudentWithoutCacheIsNoop(t *testing.T) {
	svc := NewScoreService(&creditedSourceStub{}, nil, nil, nil)
	svc.InvalidateStudent(context.Background(), "st-1")
}
