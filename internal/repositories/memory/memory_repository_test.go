package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seedExam(t *testing.T, repo *Repository, creator string, published bool) *models.Exam {
	t.Helper()
	exam := &models.Exam{
		Title:           "Algorithms",
		CreatorID:       creator,
		DurationMinutes: 60,
		StartTime:       t0,
		EndTime:         t0.Add(time.Hour * 24),
		MaxAttempts:     2,
		IsPublished:     published,
		Questions: []models.Question{
			{Text: "second", Points: 1, Position: 2, Options: []models.Option{{Text: "x", IsCorrect: true}}},
			{Text: "first", Points: 2, Position: 1, Options: []models.Option{
				{Text: "b", Position: 2},
				{Text: "a", Position: 1, IsCorrect: true},
			}},
		},
	}
	if err := repo.Exam().Create(context.Background(), exam); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return exam
}

func TestExamStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	exam := seedExam(t, repo, "edu-1", true)
	seedExam(t, repo, "edu-2", false)

	got, err := repo.Exam().GetWithQuestions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetWithQuestions() error = %v", err)
	}
	if got.Questions[0].Text != "first" || got.Questions[0].Options[0].Text != "a" {
		t.Errorf("questions not ordered by position: %+v", got.Questions)
	}

	got.Questions[0].Points = 99
	again, _ := repo.Exam().GetWithQuestions(ctx, exam.ID)
	if again.Questions[0].Points != 2 {
		t.Error("caller mutation leaked into the store")
	}

	plain, _ := repo.Exam().GetByID(ctx, exam.ID)
	if plain.Questions != nil {
		t.Error("GetByID() should not load questions")
	}

	if _, err := repo.Exam().GetByID(ctx, 42); !repositories.IsNotFoundError(err) {
		t.Errorf("GetByID(42) error = %v, want not found", err)
	}

	creator := "edu-1"
	open := t0.Add(time.Hour)
	listed, _ := repo.Exam().List(ctx, repositories.ExamFilters{PublishedOnly: true, OpenAt: &open})
	if len(listed) != 1 || listed[0].ID != exam.ID {
		t.Errorf("published open exams = %d, want exam %d", len(listed), exam.ID)
	}
	mine, _ := repo.Exam().List(ctx, repositories.ExamFilters{CreatorID: &creator})
	if len(mine) != 1 {
		t.Errorf("exams by creator = %d, want 1", len(mine))
	}
	late := t0.Add(48 * time.Hour)
	if closed, _ := repo.Exam().List(ctx, repositories.ExamFilters{OpenAt: &late}); len(closed) != 0 {
		t.Errorf("exams open after window = %d, want 0", len(closed))
	}

	many, _ := repo.Exam().GetManyWithQuestions(ctx, []uint{exam.ID, 42})
	if len(many) != 1 {
		t.Errorf("GetManyWithQuestions() = %d exams, want missing ids skipped", len(many))
	}
	if n, _ := repo.Exam().Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestAttemptStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	exam := seedExam(t, repo, "edu-1", true)

	first := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1, StartedAt: t0, Deadline: t0.Add(time.Hour)}
	if err := repo.Attempt().Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dup := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1}
	if err := repo.Attempt().Create(ctx, dup); !repositories.IsDuplicateError(err) {
		t.Errorf("duplicate attempt number error = %v", err)
	}
	second := &models.Attempt{ExamID: exam.ID, StudentID: "stu-2", AttemptNumber: 1, StartedAt: t0, Deadline: t0.Add(time.Hour)}
	_ = repo.Attempt().Create(ctx, second)

	update := repositories.SubmissionUpdate{
		Score:       2,
		TotalPoints: 3,
		Results:     []models.AnswerResult{{QuestionID: 1, IsCorrect: true}},
		SubmittedAt: t0.Add(10 * time.Minute),
	}
	applied, err := repo.Attempt().MarkSubmitted(ctx, first.ID, update)
	if err != nil || !applied {
		t.Fatalf("MarkSubmitted() = %v, %v", applied, err)
	}
	update.Score = 3
	if applied, _ := repo.Attempt().MarkSubmitted(ctx, first.ID, update); applied {
		t.Error("second MarkSubmitted() applied")
	}
	stored, _ := repo.Attempt().GetByID(ctx, first.ID)
	if stored.Score != 2 || !stored.IsSubmitted() || len(stored.Results) != 1 {
		t.Errorf("stored attempt = %+v", stored)
	}

	if n, _ := repo.Attempt().CountByStudentAndExam(ctx, "stu-1", exam.ID); n != 1 {
		t.Errorf("CountByStudentAndExam() = %d", n)
	}
	if n, _ := repo.Attempt().CountSubmittedByStudentAndExam(ctx, "stu-2", exam.ID); n != 0 {
		t.Errorf("CountSubmittedByStudentAndExam() = %d", n)
	}

	submitted, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{SubmittedOnly: true})
	if len(submitted) != 1 || submitted[0].ID != first.ID {
		t.Errorf("submitted attempts = %+v", submitted)
	}

	counts, _ := repo.Attempt().CountsByExam(ctx)
	want := models.AttemptCounts{ExamID: exam.ID, Started: 2, Completed: 1}
	if len(counts) != 1 || counts[0] != want {
		t.Errorf("CountsByExam() = %+v, want %+v", counts, want)
	}
}

func TestAnswerStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	exam := seedExam(t, repo, "edu-1", true)
	attempt := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1}
	_ = repo.Attempt().Create(ctx, attempt)

	opt := exam.Questions[0].Options[0].ID
	answers := []models.Answer{{QuestionID: exam.Questions[0].ID, SelectedOptionID: &opt}, {QuestionID: exam.Questions[1].ID}}
	if err := repo.Answer().ReplaceForAttempt(ctx, attempt.ID, answers); err != nil {
		t.Fatalf("ReplaceForAttempt() error = %v", err)
	}
	if err := repo.Answer().ReplaceForAttempt(ctx, attempt.ID, answers[:1]); err != nil {
		t.Fatalf("ReplaceForAttempt() error = %v", err)
	}
	got, _ := repo.Answer().GetByAttempt(ctx, attempt.ID)
	if len(got) != 1 || got[0].AttemptID != attempt.ID {
		t.Errorf("answers after replace = %+v", got)
	}

	dupes := []models.Answer{{QuestionID: 7}, {QuestionID: 7}}
	if err := repo.Answer().ReplaceForAttempt(ctx, attempt.ID, dupes); !repositories.IsDuplicateError(err) {
		t.Errorf("duplicate answers error = %v", err)
	}
	if err := repo.Answer().ReplaceForAttempt(ctx, 99, nil); !repositories.IsNotFoundError(err) {
		t.Errorf("unknown attempt error = %v", err)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Exam().Create(ctx, &models.Exam{Title: "draft"}); err != nil {
			return err
		}
		if n, _ := tx.Exam().Count(ctx); n != 1 {
			t.Errorf("count inside tx = %d, want 1", n)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v", err)
	}
	if n, _ := repo.Exam().Count(ctx); n != 0 {
		t.Errorf("count after rollback = %d, want 0", n)
	}

	err = repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Exam().Create(ctx, &models.Exam{Title: "kept"})
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}
	if n, _ := repo.Exam().Count(ctx); n != 1 {
		t.Errorf("count after commit = %d, want 1", n)
	}
}

func TestWithTransactionSerializes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	exam := seedExam(t, repo, "edu-1", true)

	// Count-then-create must never produce two attempts with the same number.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.WithTransaction(ctx, func(tx repositories.Repository) error {
				n, err := tx.Attempt().CountByStudentAndExam(ctx, "stu-1", exam.ID)
				if err != nil {
					return err
				}
				return tx.Attempt().Create(ctx, &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: int(n) + 1})
			})
		}()
	}
	wg.Wait()

	attempts, _ := repo.Attempt().List(ctx, repositories.AttemptFilters{})
	if len(attempts) != 20 {
		t.Fatalf("attempts = %d, want 20", len(attempts))
	}
	for i, a := range attempts {
		if a.AttemptNumber != i+1 {
			t.Errorf("attempt %d has number %d", a.ID, a.AttemptNumber)
		}
	}
}

func TestWithReadTransactionSeesOneSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil)
	exam := seedExam(t, repo, "edu-1", true)
	attempt := &models.Attempt{ExamID: exam.ID, StudentID: "stu-1", AttemptNumber: 1, StartedAt: t0, Deadline: t0.Add(time.Hour)}
	_ = repo.Attempt().Create(ctx, attempt)

	err := repo.WithReadTransaction(ctx, func(tx repositories.Repository) error {
		counts, err := tx.Attempt().CountsByExam(ctx)
		if err != nil {
			return err
		}
		if len(counts) != 1 || counts[0].Completed != 0 {
			t.Errorf("counts = %+v", counts)
		}

		// A submission committed mid-read must not show up in later reads.
		applied, err := repo.Attempt().MarkSubmitted(ctx, attempt.ID, repositories.SubmissionUpdate{Score: 1, TotalPoints: 3, SubmittedAt: t0})
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
		return tx.Exam().Create(ctx, &models.Exam{Title: "discarded"})
	})
	if err != nil {
		t.Fatalf("WithReadTransaction() error = %v", err)
	}

	if n, _ := repo.Exam().Count(ctx); n != 1 {
		t.Errorf("exams after read transaction = %d, want 1", n)
	}
	if n, _ := repo.Attempt().CountSubmittedByStudentAndExam(ctx, "stu-1", exam.ID); n != 1 {
		t.Errorf("submitted attempts after read transaction = %d, want 1", n)
	}
}

func TestUserDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewUserDirectory(
		&models.User{ID: "b", Roles: []models.UserRole{models.RoleStudent}},
		&models.User{ID: "a", Roles: []models.UserRole{models.RoleStudent, models.RoleEducator}},
	)

	if _, err := dir.GetByID(ctx, "zz"); !repositories.IsNotFoundError(err) {
		t.Errorf("GetByID(zz) error = %v", err)
	}
	users, _ := dir.GetByIDs(ctx, []string{"a", "zz", "b"})
	if len(users) != 2 {
		t.Errorf("GetByIDs() = %d users, want unknown ids skipped", len(users))
	}
	students, _ := dir.ListByRole(ctx, models.RoleStudent)
	if len(students) != 2 || students[0].ID != "a" {
		t.Errorf("ListByRole(student) = %+v", students)
	}
}
