package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
)

// AttemptPolicy holds the tunables of the attempt lifecycle
type AttemptPolicy struct {
	// LateSubmissionGrace is how long past the deadline saves and submits are still accepted
	LateSubmissionGrace time.Duration
	PassThreshold       float64
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	policy    AttemptPolicy
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, policy AttemptPolicy) AttemptService {
	if policy.Now == nil {
		policy.Now = time.Now
	}
	if policy.PassThreshold <= 0 {
		policy.PassThreshold = DefaultPassThreshold
	}
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
		policy:    policy,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) StartAttempt(ctx context.Context, studentID string, req *StartAttemptRequest) (*StartAttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"exam_id", req.ExamID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := s.policy.Now().UTC()
	var (
		attempt   *models.Attempt
		remaining int
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		exam, err := tx.Exam().GetByID(ctx, req.ExamID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to get exam: %w", err)
		}

		if !exam.IsPublished || !exam.IsOpenAt(now) {
			return ErrExamNotAvailable
		}

		if err := tx.Attempt().LockStudentExam(ctx, studentID, exam.ID); err != nil {
			return fmt.Errorf("failed to lock attempts: %w", err)
		}

		prior, err := tx.Attempt().CountByStudentAndExam(ctx, studentID, exam.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if prior >= int64(exam.MaxAttempts) {
			return &AttemptCapError{MaxAttempts: exam.MaxAttempts, Attempts: prior}
		}

		attempt = &models.Attempt{
			ExamID:        exam.ID,
			StudentID:     studentID,
			AttemptNumber: int(prior) + 1,
			StartedAt:     now,
			Deadline:      now.Add(exam.Duration()),
		}
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrConcurrentAttemptStart
			}
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		remaining = exam.MaxAttempts - attempt.AttemptNumber
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Completion counts include started attempts
	cache.InvalidateStatistics(ctx, s.cache)

	s.publish(ctx, events.AttemptStarted, events.AttemptStartedPayload{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     studentID,
		AttemptNumber: attempt.AttemptNumber,
		Deadline:      attempt.Deadline,
	})

	s.logger.Info("Exam attempt started successfully",
		"attempt_id", attempt.ID,
		"exam_id", attempt.ExamID,
		"student_id", studentID,
		"attempt_number", attempt.AttemptNumber)

	return &StartAttemptResponse{
		AttemptID:         attempt.ID,
		ExamID:            attempt.ExamID,
		AttemptNumber:     attempt.AttemptNumber,
		StartedAt:         attempt.StartedAt,
		Deadline:          attempt.Deadline,
		RemainingAttempts: remaining,
	}, nil
}

func (s *attemptService) SaveProgress(ctx context.Context, attemptID uint, studentID string, req *SaveProgressRequest) (*SaveProgressResponse, error) {
	if attemptID == 0 {
		return nil, fmt.Errorf("%w: attempt id is required", ErrInvalidRequest)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := s.policy.Now().UTC()
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := s.lockOpenAttempt(ctx, tx, attemptID, studentID, "save", now)
		if err != nil {
			return err
		}

		if err := tx.Answer().ReplaceForAttempt(ctx, attempt.ID, toAnswers(attempt.ID, req.Answers)); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Attempt progress saved",
		"attempt_id", attemptID,
		"answers", len(req.Answers))

	return &SaveProgressResponse{Saved: true, ServerTime: now}, nil
}

func (s *attemptService) GetProgress(ctx context.Context, attemptID uint, studentID string) (*ProgressResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "view", "not owned by student")
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	if answers == nil {
		answers = []models.Answer{}
	}

	now := s.policy.Now().UTC()
	remaining := int64(0)
	if !attempt.IsSubmitted() && attempt.Deadline.After(now) {
		remaining = int64(attempt.Deadline.Sub(now).Seconds())
	}

	return &ProgressResponse{
		AttemptID:            attempt.ID,
		ExamID:               attempt.ExamID,
		Deadline:             attempt.Deadline,
		Submitted:            attempt.IsSubmitted(),
		Answers:              answers,
		ServerTime:           now,
		TimeRemainingSeconds: remaining,
	}, nil
}

func (s *attemptService) SubmitAttempt(ctx context.Context, attemptID uint, studentID string, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	s.logger.Info("Submitting exam attempt",
		"attempt_id", attemptID,
		"student_id", studentID)

	if attemptID == 0 {
		return nil, fmt.Errorf("%w: attempt id is required", ErrInvalidRequest)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := s.policy.Now().UTC()
	var (
		attempt     *models.Attempt
		result      ScoreResult
		remaining   int
		examMissing bool
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, err = s.lockOpenAttempt(ctx, tx, attemptID, studentID, "submit", now)
		if err != nil {
			return err
		}

		var exam *models.Exam
		exam, examMissing, err = loadExamForScoring(ctx, tx, attempt.ExamID)
		if err != nil {
			return err
		}

		var answers []models.Answer
		if req.Answers == nil {
			answers, err = tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load saved answers: %w", err)
			}
		} else {
			answers = toAnswers(attempt.ID, req.Answers)
			if err := tx.Answer().ReplaceForAttempt(ctx, attempt.ID, answers); err != nil {
				return fmt.Errorf("failed to store answers: %w", err)
			}
		}

		result = Score(exam, answers)

		applied, err := tx.Attempt().MarkSubmitted(ctx, attempt.ID, repositories.SubmissionUpdate{
			Score:       result.Score,
			TotalPoints: result.TotalPoints,
			Results:     result.Results,
			SubmittedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !applied {
			return ErrAttemptAlreadySubmitted
		}

		submitted, err := tx.Attempt().CountSubmittedByStudentAndExam(ctx, studentID, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to count submitted attempts: %w", err)
		}
		remaining = max(exam.MaxAttempts-int(submitted), 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateStatistics(ctx, s.cache)

	s.publish(ctx, events.AttemptSubmitted, events.AttemptSubmittedPayload{
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		StudentID:   studentID,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		SubmittedAt: now,
	})
	if examMissing {
		s.reportIntegrityFault(ctx, attempt, nil, "exam not found at scoring time")
	}
	if len(result.Unscorable) > 0 {
		s.reportIntegrityFault(ctx, attempt, result.Unscorable, "question has no correct option")
	}

	s.logger.Info("Exam attempt submitted successfully",
		"attempt_id", attempt.ID,
		"score", result.Score,
		"total_points", result.TotalPoints)

	return &SubmitAttemptResponse{
		AttemptID:           attempt.ID,
		Score:               result.Score,
		TotalPoints:         result.TotalPoints,
		Percentage:          Percentage(result.Score, result.TotalPoints),
		Outcome:             EvaluateOutcome(result.Score, result.TotalPoints, s.policy.PassThreshold),
		Results:             result.Results,
		UnscorableQuestions: result.Unscorable,
		RemainingAttempts:   remaining,
		SubmittedAt:         now,
	}, nil
}

func (s *attemptService) ListMyResults(ctx context.Context, studentID string) ([]AttemptSummary, error) {
	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		StudentID:     &studentID,
		SubmittedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	titles, err := s.examTitles(ctx, attempts)
	if err != nil {
		return nil, err
	}

	summaries := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		summaries = append(summaries, AttemptSummary{
			AttemptID:     a.ID,
			ExamID:        a.ExamID,
			ExamTitle:     titles[a.ExamID],
			AttemptNumber: a.AttemptNumber,
			StartedAt:     a.StartedAt,
			SubmittedAt:   a.SubmittedAt,
			Score:         a.Score,
			TotalPoints:   a.TotalPoints,
			Percentage:    Percentage(a.Score, a.TotalPoints),
			Outcome:       EvaluateOutcome(a.Score, a.TotalPoints, s.policy.PassThreshold),
		})
	}
	return summaries, nil
}

// ===== HELPERS =====

// lockOpenAttempt row-locks the attempt and checks it can still take answers.
func (s *attemptService) lockOpenAttempt(ctx context.Context, tx repositories.Repository, attemptID uint, studentID, action string, now time.Time) (*models.Attempt, error) {
	attempt, err := tx.Attempt().GetForUpdate(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", action, "not owned by student")
	}
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}
	if now.After(attempt.Deadline.Add(s.policy.LateSubmissionGrace)) {
		return nil, fmt.Errorf("%w: deadline was %s", ErrAttemptTimeExpired, attempt.Deadline.Format(time.RFC3339))
	}
	return attempt, nil
}

// loadExamForScoring reads the answer key inside the transaction. A missing
// exam is scored as an empty exam and reported as missing.
func loadExamForScoring(ctx context.Context, tx repositories.Repository, examID uint) (*models.Exam, bool, error) {
	exam, err := tx.Exam().GetWithQuestions(ctx, examID)
	if err == nil {
		return exam, false, nil
	}
	if repositories.IsNotFoundError(err) {
		return &models.Exam{ID: examID}, true, nil
	}
	return nil, false, fmt.Errorf("failed to load exam: %w", err)
}

func (s *attemptService) examTitles(ctx context.Context, attempts []*models.Attempt) (map[uint]string, error) {
	ids := make([]uint, 0, len(attempts))
	seen := make(map[uint]bool)
	for _, a := range attempts {
		if !seen[a.ExamID] {
			seen[a.ExamID] = true
			ids = append(ids, a.ExamID)
		}
	}

	exams, err := s.repo.Exam().GetManyWithQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get exams: %w", err)
	}

	titles := make(map[uint]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}
	return titles, nil
}

func (s *attemptService) reportIntegrityFault(ctx context.Context, attempt *models.Attempt, questionIDs []uint, reason string) {
	s.logger.Warn("Scoring integrity fault",
		"attempt_id", attempt.ID,
		"exam_id", attempt.ExamID,
		"question_ids", questionIDs,
		"reason", reason)

	s.publish(ctx, events.ScoringIntegrityFault, events.IntegrityFaultPayload{
		ExamID:      attempt.ExamID,
		AttemptID:   attempt.ID,
		QuestionIDs: questionIDs,
		Reason:      reason,
	})
}

// publish never fails the caller; the operation has already committed.
func (s *attemptService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", eventType,
			"error", err)
	}
}

func toAnswers(attemptID uint, inputs []AnswerInput) []models.Answer {
	answers := make([]models.Answer, 0, len(inputs))
	for _, in := range inputs {
		answers = append(answers, models.Answer{
			AttemptID:        attemptID,
			QuestionID:       in.QuestionID,
			SelectedOptionID: in.SelectedOptionID,
		})
	}
	return answers
}
