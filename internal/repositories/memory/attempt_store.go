package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type attemptStore struct {
	repo *Repository
}

func (s *attemptStore) Create(ctx context.Context, attempt *models.Attempt) error {
	return s.repo.run(func(d *data) error {
		for _, existing := range d.attempts {
			if existing.StudentID == attempt.StudentID &&
				existing.ExamID == attempt.ExamID &&
				existing.AttemptNumber == attempt.AttemptNumber {
				return fmt.Errorf("attempt %d for student %s on exam %d: %w",
					attempt.AttemptNumber, attempt.StudentID, attempt.ExamID, repositories.ErrDuplicate)
			}
		}
		now := time.Now().UTC()
		d.nextAttemptID++
		attempt.ID = d.nextAttemptID
		attempt.CreatedAt, attempt.UpdatedAt = now, now
		d.attempts[attempt.ID] = copyAttempt(attempt)
		return nil
	})
}

func (s *attemptStore) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var out *models.Attempt
	err := s.repo.run(func(d *data) error {
		a, ok := d.attempts[id]
		if !ok {
			return fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
		}
		out = copyAttempt(a)
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions already run one at a time.
func (s *attemptStore) GetForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return s.GetByID(ctx, id)
}

func (s *attemptStore) LockStudentExam(ctx context.Context, studentID string, examID uint) error {
	return ctx.Err()
}

func (s *attemptStore) CountByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error) {
	return s.count(studentID, examID, false)
}

func (s *attemptStore) CountSubmittedByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error) {
	return s.count(studentID, examID, true)
}

func (s *attemptStore) count(studentID string, examID uint, submittedOnly bool) (int64, error) {
	var n int64
	err := s.repo.run(func(d *data) error {
		for _, a := range d.attempts {
			if a.StudentID != studentID || a.ExamID != examID {
				continue
			}
			if submittedOnly && !a.IsSubmitted() {
				continue
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *attemptStore) MarkSubmitted(ctx context.Context, id uint, update repositories.SubmissionUpdate) (bool, error) {
	var applied bool
	err := s.repo.run(func(d *data) error {
		a, ok := d.attempts[id]
		if !ok {
			return fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
		}
		if a.IsSubmitted() {
			return nil
		}
		submittedAt := update.SubmittedAt
		a.SubmittedAt = &submittedAt
		a.Score = update.Score
		a.TotalPoints = update.TotalPoints
		a.Results = append(a.Results[:0:0], update.Results...)
		a.UpdatedAt = time.Now().UTC()
		applied = true
		return nil
	})
	return applied, err
}

func (s *attemptStore) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	var out []*models.Attempt
	err := s.repo.run(func(d *data) error {
		for _, a := range d.attempts {
			if filters.ExamID != nil && a.ExamID != *filters.ExamID {
				continue
			}
			if filters.StudentID != nil && a.StudentID != *filters.StudentID {
				continue
			}
			if filters.SubmittedOnly && !a.IsSubmitted() {
				continue
			}
			out = append(out, copyAttempt(a))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *attemptStore) CountsByExam(ctx context.Context) ([]models.AttemptCounts, error) {
	byExam := make(map[uint]*models.AttemptCounts)
	err := s.repo.run(func(d *data) error {
		for _, a := range d.attempts {
			c, ok := byExam[a.ExamID]
			if !ok {
				c = &models.AttemptCounts{ExamID: a.ExamID}
				byExam[a.ExamID] = c
			}
			c.Started++
			if a.IsSubmitted() {
				c.Completed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.AttemptCounts, 0, len(byExam))
	for _, c := range byExam {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExamID < out[j].ExamID })
	return out, nil
}

type answerStore struct {
	repo *Repository
}

func (s *answerStore) ReplaceForAttempt(ctx context.Context, attemptID uint, answers []models.Answer) error {
	return s.repo.run(func(d *data) error {
		if _, ok := d.attempts[attemptID]; !ok {
			return fmt.Errorf("attempt %d: %w", attemptID, repositories.ErrNotFound)
		}
		seen := make(map[uint]bool, len(answers))
		stored := make([]models.Answer, 0, len(answers))
		for _, ans := range answers {
			if seen[ans.QuestionID] {
				return fmt.Errorf("answer for question %d: %w", ans.QuestionID, repositories.ErrDuplicate)
			}
			seen[ans.QuestionID] = true
			d.nextAnswerID++
			ans.ID = d.nextAnswerID
			ans.AttemptID = attemptID
			stored = append(stored, ans)
		}
		d.answers[attemptID] = stored
		return nil
	})
}

func (s *answerStore) GetByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	var out []models.Answer
	err := s.repo.run(func(d *data) error {
		out = append([]models.Answer(nil), d.answers[attemptID]...)
		return nil
	})
	return out, err
}
