package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	ttl       time.Duration
	now       func() time.Time
}

func NewExamService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, ttl time.Duration, now func() time.Time) ExamService {
	if ttl <= 0 {
		ttl = cache.ExamCacheConfig.TTL
	}
	if now == nil {
		now = time.Now
	}
	return &examService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
		ttl:       ttl,
		now:       now,
	}
}

func (s *examService) GetExam(ctx context.Context, examID uint, viewer *models.User) (*models.Exam, error) {
	exam, err := s.cachedExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	if canSeeAnswerKey(viewer) {
		return exam, nil
	}
	// Students only see published exams, without the answer key
	if !exam.IsPublished {
		return nil, ErrExamNotFound
	}
	return withoutAnswerKey(exam), nil
}

func (s *examService) ListPublishedExamsForUniversity(ctx context.Context, university string, now time.Time) ([]*models.Exam, error) {
	var published []*models.Exam
	err := s.cache.Exam.CacheOrExecute(ctx, cache.PublishedByUniversityKey(university), &published, s.ttl, func() (interface{}, error) {
		return s.publishedForUniversity(ctx, university)
	})
	if err != nil {
		return nil, err
	}

	open := make([]*models.Exam, 0, len(published))
	for _, e := range published {
		if e.IsOpenAt(now) {
			open = append(open, e)
		}
	}
	return open, nil
}

func (s *examService) ListAvailableExams(ctx context.Context, student *models.User) ([]*models.Exam, error) {
	if student == nil {
		return nil, fmt.Errorf("%w: student is required", ErrInvalidRequest)
	}
	return s.ListPublishedExamsForUniversity(ctx, student.University, s.now().UTC())
}

func (s *examService) ListExamsByCreator(ctx context.Context, creatorID string) ([]*models.Exam, error) {
	exams, err := s.repo.Exam().List(ctx, repositories.ExamFilters{CreatorID: &creatorID})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (s *examService) GetExamDetails(ctx context.Context, examID uint) (*ExamDetailsResponse, error) {
	exam, err := s.repo.Exam().GetWithQuestions(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		ExamID:        &examID,
		SubmittedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	issues := s.validator.GetBusinessValidator().ValidateExamDefinition(exam)
	if len(issues) > 0 {
		s.logger.Warn("Exam definition has integrity issues",
			"exam_id", exam.ID,
			"issues", len(issues))
	}

	return &ExamDetailsResponse{
		Exam:              exam,
		TotalPoints:       exam.TotalPoints(),
		SubmittedAttempts: attempts,
		IntegrityIssues:   issues,
	}, nil
}

// ===== HELPERS =====

func (s *examService) cachedExam(ctx context.Context, examID uint) (*models.Exam, error) {
	var exam models.Exam
	err := s.cache.Exam.CacheOrExecute(ctx, cache.ExamKey(examID), &exam, s.ttl, func() (interface{}, error) {
		return s.repo.Exam().GetWithQuestions(ctx, examID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

// publishedForUniversity keeps published exams whose creator belongs to the
// given university.
func (s *examService) publishedForUniversity(ctx context.Context, university string) ([]*models.Exam, error) {
	exams, err := s.repo.Exam().List(ctx, repositories.ExamFilters{PublishedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list published exams: %w", err)
	}

	creatorIDs := make([]string, 0, len(exams))
	seen := make(map[string]bool)
	for _, e := range exams {
		if !seen[e.CreatorID] {
			seen[e.CreatorID] = true
			creatorIDs = append(creatorIDs, e.CreatorID)
		}
	}

	creators, err := s.repo.User().GetByIDs(ctx, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exam creators: %w", err)
	}
	universityOf := make(map[string]string, len(creators))
	for _, u := range creators {
		universityOf[u.ID] = u.University
	}

	out := make([]*models.Exam, 0, len(exams))
	for _, e := range exams {
		if creatorUniversity, ok := universityOf[e.CreatorID]; ok && creatorUniversity == university {
			out = append(out, e)
		}
	}
	return out, nil
}

func canSeeAnswerKey(u *models.User) bool {
	return u != nil && (u.HasRole(models.RoleEducator) || u.HasRole(models.RoleAdmin))
}

// withoutAnswerKey returns a copy of exam with every correct flag cleared.
func withoutAnswerKey(exam *models.Exam) *models.Exam {
	out := *exam
	out.Questions = make([]models.Question, len(exam.Questions))
	for i, q := range exam.Questions {
		q.Options = append([]models.Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].IsCorrect = false
		}
		out.Questions[i] = q
	}
	return &out
}
