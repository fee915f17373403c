package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

// ExamFilters narrows exam listings
type ExamFilters struct {
	CreatorID     *string
	PublishedOnly bool
	OpenAt        *time.Time // only exams whose window contains this instant
}

type ExamRepository interface {
	// Create stores an exam together with its questions and options.
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetWithQuestions loads questions and options ordered by position.
	GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	GetManyWithQuestions(ctx context.Context, ids []uint) ([]*models.Exam, error)
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, error)
	Count(ctx context.Context) (int64, error)
}

// AttemptFilters narrows attempt listings
type AttemptFilters struct {
	ExamID        *uint
	StudentID     *string
	SubmittedOnly bool
}

// SubmissionUpdate is the terminal state written when an attempt is submitted.
type SubmissionUpdate struct {
	Score       float64
	TotalPoints float64
	Results     []models.AnswerResult
	SubmittedAt time.Time
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)

	// GetForUpdate reads the attempt and holds a row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*models.Attempt, error)

	// LockStudentExam serializes attempt creation for one (student, exam)
	// pair until the surrounding transaction ends.
	LockStudentExam(ctx context.Context, studentID string, examID uint) error

	CountByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error)
	CountSubmittedByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error)

	// MarkSubmitted sets the terminal state only if the attempt is still
	// unsubmitted. It reports false when another submission got there first.
	MarkSubmitted(ctx context.Context, id uint, update SubmissionUpdate) (bool, error)

	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, error)
	CountsByExam(ctx context.Context) ([]models.AttemptCounts, error)
}

type AnswerRepository interface {
	// ReplaceForAttempt deletes the attempt's answers and stores the given set.
	ReplaceForAttempt(ctx context.Context, attemptID uint, answers []models.Answer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error)
}

// UserRepository is the identity lookup (the service does not own user data)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
}
