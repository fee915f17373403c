package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-attempt-service/pkg"
)

// newIntegrationRepo connects to EXAM_ATTEMPT_TEST_DSN when EXAM_ATTEMPT_INTEGRATION=1.
func newIntegrationRepo(t *testing.T) repositories.Repository {
	t.Helper()
	if os.Getenv("EXAM_ATTEMPT_INTEGRATION") != "1" {
		t.Skip("set EXAM_ATTEMPT_INTEGRATION=1 and EXAM_ATTEMPT_TEST_DSN to run postgres tests")
	}

	db, err := gorm.Open(postgres.Open(os.Getenv("EXAM_ATTEMPT_TEST_DSN")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := pkg.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec("TRUNCATE answers, attempts, options, questions, exams RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}

	manager := NewRepositoryManager(RepositoryConfig{DB: db, Users: memory.NewUserDirectory()})
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })
	return manager.GetRepository()
}

func TestPostgresAttemptLifecycle(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	exam := &models.Exam{
		Title:           "Databases",
		CreatorID:       "edu-1",
		DurationMinutes: 30,
		StartTime:       start.Add(-time.Hour),
		EndTime:         start.Add(time.Hour),
		MaxAttempts:     3,
		IsPublished:     true,
		Questions: []models.Question{
			{Text: "q2", Points: 3, Position: 2, Options: []models.Option{{Text: "yes", IsCorrect: true}}},
			{Text: "q1", Points: 2, Position: 1, Options: []models.Option{{Text: "no"}, {Text: "yes", IsCorrect: true, Position: 1}}},
		},
	}
	if err := repo.Exam().Create(ctx, exam); err != nil {
		t.Fatalf("create exam: %v", err)
	}

	loaded, err := repo.Exam().GetWithQuestions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetWithQuestions() error = %v", err)
	}
	if len(loaded.Questions) != 2 || loaded.Questions[0].Text != "q1" {
		t.Errorf("questions = %+v, want ordered by position", loaded.Questions)
	}

	now := start
	open, _ := repo.Exam().List(ctx, repositories.ExamFilters{PublishedOnly: true, OpenAt: &now})
	if len(open) != 1 {
		t.Errorf("open exams = %d, want 1", len(open))
	}

	// Concurrent count-then-create inside the advisory lock yields unique numbers
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.WithTransaction(ctx, func(tx repositories.Repository) error {
				if err := tx.Attempt().LockStudentExam(ctx, "stu-1", exam.ID); err != nil {
					return err
				}
				n, err := tx.Attempt().CountByStudentAndExam(ctx, "stu-1", exam.ID)
				if err != nil {
					return err
				}
				return tx.Attempt().Create(ctx, &models.Attempt{
					ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: int(n) + 1,
					StartedAt: start, Deadline: start.Add(30 * time.Minute),
				})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("start attempt: %v", err)
		}
	}

	attempts, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{ExamID: &exam.ID})
	if len(attempts) != 5 {
		t.Fatalf("attempts = %d, want 5", len(attempts))
	}
	first := attempts[0]

	dup := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1, StartedAt: start, Deadline: start}
	if err := repo.Attempt().Create(ctx, dup); !repositories.IsDuplicateError(err) {
		t.Errorf("duplicate attempt number error = %v", err)
	}

	opt := loaded.Questions[0].Options[1].ID
	answers := []models.Answer{{QuestionID: loaded.Questions[0].ID, SelectedOptionID: &opt}}
	if err := repo.Answer().ReplaceForAttempt(ctx, first.ID, answers); err != nil {
		t.Fatalf("ReplaceForAttempt() error = %v", err)
	}
	saved, _ := repo.Answer().GetByAttempt(ctx, first.ID)
	if len(saved) != 1 || saved[0].SelectedOptionID == nil || *saved[0].SelectedOptionID != opt {
		t.Errorf("saved answers = %+v", saved)
	}

	update := repositories.SubmissionUpdate{
		Score:       2,
		TotalPoints: 5,
		Results:     []models.AnswerResult{{QuestionID: loaded.Questions[0].ID, SelectedOptionID: &opt, IsCorrect: true}},
		SubmittedAt: start.Add(5 * time.Minute),
	}
	applied, err := repo.Attempt().MarkSubmitted(ctx, first.ID, update)
	if err != nil || !applied {
		t.Fatalf("MarkSubmitted() = %v, %v", applied, err)
	}
	if applied, err := repo.Attempt().MarkSubmitted(ctx, first.ID, update); err != nil || applied {
		t.Errorf("second MarkSubmitted() = %v, %v", applied, err)
	}
	if _, err := repo.Attempt().MarkSubmitted(ctx, 99999, update); !repositories.IsNotFoundError(err) {
		t.Errorf("MarkSubmitted(missing) error = %v", err)
	}

	stored, _ := repo.Attempt().GetByID(ctx, first.ID)
	if !stored.IsSubmitted() || len(stored.Results) != 1 || !stored.Results[0].IsCorrect {
		t.Errorf("stored attempt = %+v", stored)
	}

	counts, _ := repo.Attempt().CountsByExam(ctx)
	if len(counts) != 1 || counts[0].Started != 5 || counts[0].Completed != 1 {
		t.Errorf("CountsByExam() = %+v", counts)
	}
}

func TestPostgresReadTransactionIsSnapshot(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	exam := &models.Exam{
		Title: "Snapshots", CreatorID: "edu-1", DurationMinutes: 30,
		StartTime: start.Add(-time.Hour), EndTime: start.Add(time.Hour), MaxAttempts: 1, IsPublished: true,
	}
	if err := repo.Exam().Create(ctx, exam); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	attempt := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1, StartedAt: start, Deadline: start.Add(30 * time.Minute)}
	if err := repo.Attempt().Create(ctx, attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	err := repo.WithReadTransaction(ctx, func(tx repositories.Repository) error {
		counts, err := tx.Attempt().CountsByExam(ctx)
		if err != nil {
			return err
		}
		if len(counts) != 1 || counts[0].Completed != 0 {
			t.Errorf("counts = %+v", counts)
		}

		// Committed by another connection after the snapshot was taken
		applied, err := repo.Attempt().MarkSubmitted(ctx, attempt.ID, repositories.SubmissionUpdate{Score: 1, TotalPoints: 1, SubmittedAt: start})
		if err != nil || !applied {
			t.Fatalf("MarkSubmitted() = %v, %v", applied, err)
		}

		submitted, err := tx.Attempt().List(ctx, repositories.AttemptFilters{SubmittedOnly: true})
		if err != nil {
			return err
		}
		if len(submitted) != 0 {
			t.Errorf("snapshot sees %d submitted attempts, want 0", len(submitted))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithReadTransaction() error = %v", err)
	}
}
