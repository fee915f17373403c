package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
)

// ===== ATTEMPT DTOs =====

type StartAttemptRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

type StartAttemptResponse struct {
	AttemptID         uint      `json:"attempt_id"`
	ExamID            uint      `json:"exam_id"`
	AttemptNumber     int       `json:"attempt_number"`
	StartedAt         time.Time `json:"started_at"`
	Deadline          time.Time `json:"deadline"`
	RemainingAttempts int       `json:"remaining_attempts"`
}

type AnswerInput struct {
	QuestionID       uint  `json:"question_id" validate:"required"`
	SelectedOptionID *uint `json:"selected_option_id" validate:"omitempty,min=1"`
}

type SaveProgressRequest struct {
	Answers []AnswerInput `json:"answers" validate:"unique=QuestionID,dive"`
}

type SaveProgressResponse struct {
	Saved      bool      `json:"saved"`
	ServerTime time.Time `json:"server_time"`
}

// SubmitAttemptRequest carries the final answer set. When Answers is omitted
// the last saved progress is scored instead.
type SubmitAttemptRequest struct {
	Answers []AnswerInput `json:"answers" validate:"unique=QuestionID,dive"`
}

type SubmitAttemptResponse struct {
	AttemptID           uint                  `json:"attempt_id"`
	Score               float64               `json:"score"`
	TotalPoints         float64               `json:"total_points"`
	Percentage          float64               `json:"percentage"`
	Outcome             Outcome               `json:"outcome"`
	Results             []models.AnswerResult `json:"results"`
	UnscorableQuestions []uint                `json:"unscorable_questions,omitempty"`
	RemainingAttempts   int                   `json:"remaining_attempts"`
	SubmittedAt         time.Time             `json:"submitted_at"`
}

type ProgressResponse struct {
	AttemptID            uint            `json:"attempt_id"`
	ExamID               uint            `json:"exam_id"`
	Deadline             time.Time       `json:"deadline"`
	Submitted            bool            `json:"submitted"`
	Answers              []models.Answer `json:"answers"`
	ServerTime           time.Time       `json:"server_time"`
	TimeRemainingSeconds int64           `json:"time_remaining_seconds"`
}

type AttemptSummary struct {
	AttemptID     uint       `json:"attempt_id"`
	ExamID        uint       `json:"exam_id"`
	ExamTitle     string     `json:"exam_title"`
	AttemptNumber int        `json:"attempt_number"`
	StartedAt     time.Time  `json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	Score         float64    `json:"score"`
	TotalPoints   float64    `json:"total_points"`
	Percentage    float64    `json:"percentage"`
	Outcome       Outcome    `json:"outcome"`
}

// ===== EXAM DTOs =====

type ExamDetailsResponse struct {
	Exam              *models.Exam               `json:"exam"`
	TotalPoints       float64                    `json:"total_points"`
	SubmittedAttempts []*models.Attempt          `json:"submitted_attempts"`
	IntegrityIssues   validator.ValidationErrors `json:"integrity_issues,omitempty"`
}

// ===== STATISTICS DTOs =====

type OverviewResponse struct {
	TotalExams        int64 `json:"total_exams"`
	TotalStarted      int64 `json:"total_started"`
	TotalCompleted    int64 `json:"total_completed"`
	TotalStudents     int   `json:"total_students"`
	TotalEducators    int   `json:"total_educators"`
	TotalUniversities int   `json:"total_universities"`
	TotalPassed       int   `json:"total_passed"`
	TotalFailed       int   `json:"total_failed"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	// GetExam returns the exam with its questions. Answer keys are stripped
	// unless the viewer is an educator or admin.
	GetExam(ctx context.Context, examID uint, viewer *models.User) (*models.Exam, error)
	ListPublishedExamsForUniversity(ctx context.Context, university string, now time.Time) ([]*models.Exam, error)
	ListAvailableExams(ctx context.Context, student *models.User) ([]*models.Exam, error)
	ListExamsByCreator(ctx context.Context, creatorID string) ([]*models.Exam, error)
	GetExamDetails(ctx context.Context, examID uint) (*ExamDetailsResponse, error)
}

type AttemptService interface {
	StartAttempt(ctx context.Context, studentID string, req *StartAttemptRequest) (*StartAttemptResponse, error)
	SaveProgress(ctx context.Context, attemptID uint, studentID string, req *SaveProgressRequest) (*SaveProgressResponse, error)
	GetProgress(ctx context.Context, attemptID uint, studentID string) (*ProgressResponse, error)
	SubmitAttempt(ctx context.Context, attemptID uint, studentID string, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error)
	ListMyResults(ctx context.Context, studentID string) ([]AttemptSummary, error)
}

type StatisticsService interface {
	GetExamCompletionStats(ctx context.Context) ([]models.ExamCompletionStat, error)
	GetUniversityRanking(ctx context.Context) ([]models.UniversityStat, error)
	GetEducatorPerformance(ctx context.Context) ([]models.EducatorPerformance, error)
	GetOverview(ctx context.Context) (*OverviewResponse, error)
}

type ReportService interface {
	// ExportStatistics renders the statistics as an xlsx workbook
	ExportStatistics(ctx context.Context) ([]byte, error)
}

// ServiceManager owns the lifecycle of every service
type ServiceManager interface {
	Initialize(ctx context.Context) error

	Exam() ExamService
	Attempt() AttemptService
	Statistics() StatisticsService
	Report() ReportService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
