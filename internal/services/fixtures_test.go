package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uintPtr(v uint) *uint { return &v }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	ctx       context.Context
	repo      *memory.Repository
	users     *memory.UserDirectory
	publisher *events.MockEventPublisher
	cache     *cache.CacheManager
	clock     *testClock
	attempts  AttemptService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCache(t, cache.NewCacheManager(nil))
}

func newFixtureWithCache(t *testing.T, cm *cache.CacheManager) *fixture {
	t.Helper()
	users := memory.NewUserDirectory(
		&models.User{ID: "edu-1", DisplayName: "Dr. Lan", Roles: []models.UserRole{models.RoleEducator}, University: "HUST"},
		&models.User{ID: "edu-2", DisplayName: "Dr. Minh", Roles: []models.UserRole{models.RoleEducator}, University: "FPT"},
		&models.User{ID: "stu-1", DisplayName: "An", Roles: []models.UserRole{models.RoleStudent}, University: "HUST"},
		&models.User{ID: "stu-2", DisplayName: "Binh", Roles: []models.UserRole{models.RoleStudent}, University: "FPT"},
		&models.User{ID: "stu-3", DisplayName: "Chi", Roles: []models.UserRole{models.RoleStudent}},
	)
	f := &fixture{
		ctx:       context.Background(),
		repo:      memory.NewRepository(users),
		users:     users,
		publisher: events.NewMockEventPublisher(testLogger()),
		cache:     cm,
		clock:     &testClock{now: baseTime},
	}
	f.attempts = NewAttemptService(f.repo, f.publisher, cm, testLogger(), validator.New(), AttemptPolicy{
		LateSubmissionGrace: time.Minute,
		PassThreshold:       DefaultPassThreshold,
		Now:                 f.clock.Now,
	})
	return f
}

// twoQuestionExam is open for one day from baseTime. Question one is worth 2
// points with the first option correct; question two is worth 3 points with
// the second option correct.
func twoQuestionExam(creatorID string, maxAttempts int) *models.Exam {
	return &models.Exam{
		Title:           "Networks midterm",
		CreatorID:       creatorID,
		DurationMinutes: 30,
		StartTime:       baseTime,
		EndTime:         baseTime.Add(24 * time.Hour),
		MaxAttempts:     maxAttempts,
		IsPublished:     true,
		Questions: []models.Question{
			{Text: "q1", Type: models.QuestionMCQ, Points: 2, Position: 1, Options: []models.Option{
				{Text: "A", IsCorrect: true, Position: 1},
				{Text: "B", Position: 2},
			}},
			{Text: "q2", Type: models.QuestionMCQ, Points: 3, Position: 2, Options: []models.Option{
				{Text: "C", Position: 1},
				{Text: "D", IsCorrect: true, Position: 2},
			}},
		},
	}
}

func (f *fixture) createExam(t *testing.T, exam *models.Exam) *models.Exam {
	t.Helper()
	if err := f.repo.Exam().Create(f.ctx, exam); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return exam
}

func (f *fixture) start(t *testing.T, studentID string, examID uint) *StartAttemptResponse {
	t.Helper()
	resp, err := f.attempts.StartAttempt(f.ctx, studentID, &StartAttemptRequest{ExamID: examID})
	if err != nil {
		t.Fatalf("StartAttempt() error = %v", err)
	}
	return resp
}

func (f *fixture) submit(t *testing.T, studentID string, attemptID uint, answers ...AnswerInput) *SubmitAttemptResponse {
	t.Helper()
	if answers == nil {
		answers = []AnswerInput{}
	}
	resp, err := f.attempts.SubmitAttempt(f.ctx, attemptID, studentID, &SubmitAttemptRequest{Answers: answers})
	if err != nil {
		t.Fatalf("SubmitAttempt() error = %v", err)
	}
	return resp
}

func answer(q models.Question, optionIdx int) AnswerInput {
	return AnswerInput{QuestionID: q.ID, SelectedOptionID: uintPtr(q.Options[optionIdx].ID)}
}
