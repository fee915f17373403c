package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

const (
	statsKeyCompletion   = "completion"
	statsKeyUniversities = "universities"
	statsKeyEducators    = "educators"
	statsKeyOverview     = "overview"
)

type statisticsService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	threshold float64
	ttl       time.Duration
}

func NewStatisticsService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, passThreshold float64, ttl time.Duration) StatisticsService {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	if ttl <= 0 {
		ttl = cache.StatsCacheConfig.TTL
	}
	return &statisticsService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger,
		threshold: passThreshold,
		ttl:       ttl,
	}
}

func (s *statisticsService) GetExamCompletionStats(ctx context.Context) ([]models.ExamCompletionStat, error) {
	var stats []models.ExamCompletionStat
	err := s.cache.Stats.CacheOrExecute(ctx, statsKeyCompletion, &stats, s.ttl, func() (interface{}, error) {
		snapshot, err := s.loadSnapshot(ctx, false)
		if err != nil {
			return nil, err
		}
		return CompletionFunnel(snapshot.Exams, snapshot.Counts), nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statisticsService) GetUniversityRanking(ctx context.Context) ([]models.UniversityStat, error) {
	var stats []models.UniversityStat
	err := s.cache.Stats.CacheOrExecute(ctx, statsKeyUniversities, &stats, s.ttl, func() (interface{}, error) {
		snapshot, err := s.loadSnapshot(ctx, true)
		if err != nil {
			return nil, err
		}
		return UniversityRanking(snapshot, s.threshold), nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statisticsService) GetEducatorPerformance(ctx context.Context) ([]models.EducatorPerformance, error) {
	var stats []models.EducatorPerformance
	err := s.cache.Stats.CacheOrExecute(ctx, statsKeyEducators, &stats, s.ttl, func() (interface{}, error) {
		snapshot, err := s.loadSnapshot(ctx, true)
		if err != nil {
			return nil, err
		}
		return EducatorPerformance(snapshot, s.threshold), nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statisticsService) GetOverview(ctx context.Context) (*OverviewResponse, error) {
	var overview OverviewResponse
	err := s.cache.Stats.CacheOrExecute(ctx, statsKeyOverview, &overview, s.ttl, func() (interface{}, error) {
		return s.buildOverview(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (s *statisticsService) buildOverview(ctx context.Context) (*OverviewResponse, error) {
	snapshot, err := s.loadSnapshot(ctx, true)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.User().ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	educators, err := s.repo.User().ListByRole(ctx, models.RoleEducator)
	if err != nil {
		return nil, fmt.Errorf("failed to list educators: %w", err)
	}

	universities := make(map[string]bool)
	for _, group := range [][]*models.User{students, educators} {
		for _, u := range group {
			if u.University != "" {
				universities[u.University] = true
			}
		}
	}

	overview := &OverviewResponse{
		TotalExams:        int64(len(snapshot.Exams)),
		TotalStudents:     len(students),
		TotalEducators:    len(educators),
		TotalUniversities: len(universities),
	}
	for _, c := range snapshot.Counts {
		overview.TotalStarted += c.Started
		overview.TotalCompleted += c.Completed
	}
	for _, stat := range UniversityRanking(snapshot, s.threshold) {
		overview.TotalPassed += stat.Passed
		overview.TotalFailed += stat.Failed
	}
	return overview, nil
}

// loadSnapshot reads exams, counts and submitted attempts from one read-only
// snapshot so the aggregates agree with each other. Identities are resolved afterwards
// when withUsers is set.
func (s *statisticsService) loadSnapshot(ctx context.Context, withUsers bool) (StatsSnapshot, error) {
	var snapshot StatsSnapshot
	err := s.repo.WithReadTransaction(ctx, func(tx repositories.Repository) error {
		listed, err := tx.Exam().List(ctx, repositories.ExamFilters{})
		if err != nil {
			return fmt.Errorf("failed to list exams: %w", err)
		}
		ids := make([]uint, 0, len(listed))
		for _, e := range listed {
			ids = append(ids, e.ID)
		}
		if snapshot.Exams, err = tx.Exam().GetManyWithQuestions(ctx, ids); err != nil {
			return fmt.Errorf("failed to load exams: %w", err)
		}
		if snapshot.Counts, err = tx.Attempt().CountsByExam(ctx); err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if snapshot.Attempts, err = tx.Attempt().List(ctx, repositories.AttemptFilters{SubmittedOnly: true}); err != nil {
			return fmt.Errorf("failed to list attempts: %w", err)
		}
		return nil
	})
	if err != nil || !withUsers {
		return snapshot, err
	}

	studentIDs := make([]string, 0, len(snapshot.Attempts))
	for _, a := range snapshot.Attempts {
		studentIDs = append(studentIDs, a.StudentID)
	}
	creatorIDs := make([]string, 0, len(snapshot.Exams))
	for _, e := range snapshot.Exams {
		creatorIDs = append(creatorIDs, e.CreatorID)
	}

	if snapshot.Students, err = s.resolveUsers(ctx, studentIDs); err != nil {
		return snapshot, err
	}
	if snapshot.Educators, err = s.resolveUsers(ctx, creatorIDs); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// resolveUsers looks up identities; an unreachable directory degrades to
// Unknown buckets instead of failing the report.
func (s *statisticsService) resolveUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users := make(map[string]*models.User, len(unique))
	if len(unique) == 0 {
		return users, nil
	}

	found, err := s.repo.User().GetByIDs(ctx, unique)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Failed to resolve users for statistics", "error", err, "count", len(unique))
		return users, nil
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}
