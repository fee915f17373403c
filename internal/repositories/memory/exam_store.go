package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type examStore struct {
	repo *Repository
}

func (s *examStore) Create(ctx context.Context, exam *models.Exam) error {
	return s.repo.run(func(d *data) error {
		now := time.Now().UTC()
		d.nextExamID++
		exam.ID = d.nextExamID
		exam.CreatedAt, exam.UpdatedAt = now, now
		for i := range exam.Questions {
			q := &exam.Questions[i]
			d.nextQuestionID++
			q.ID = d.nextQuestionID
			q.ExamID = exam.ID
			for j := range q.Options {
				d.nextOptionID++
				q.Options[j].ID = d.nextOptionID
				q.Options[j].QuestionID = q.ID
			}
		}
		d.exams[exam.ID] = copyExam(exam)
		return nil
	})
}

func (s *examStore) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.GetWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	exam.Questions = nil
	return exam, nil
}

func (s *examStore) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	var out *models.Exam
	err := s.repo.run(func(d *data) error {
		exam, ok := d.exams[id]
		if !ok {
			return fmt.Errorf("exam %d: %w", id, repositories.ErrNotFound)
		}
		out = copyExam(exam)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortQuestions(out)
	return out, nil
}

func (s *examStore) GetManyWithQuestions(ctx context.Context, ids []uint) ([]*models.Exam, error) {
	var out []*models.Exam
	err := s.repo.run(func(d *data) error {
		for _, id := range ids {
			if exam, ok := d.exams[id]; ok {
				out = append(out, copyExam(exam))
			}
		}
		return nil
	})
	for _, e := range out {
		sortQuestions(e)
	}
	return out, err
}

func (s *examStore) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var out []*models.Exam
	err := s.repo.run(func(d *data) error {
		for _, exam := range d.exams {
			if filters.CreatorID != nil && exam.CreatorID != *filters.CreatorID {
				continue
			}
			if filters.PublishedOnly && !exam.IsPublished {
				continue
			}
			if filters.OpenAt != nil && !exam.IsOpenAt(*filters.OpenAt) {
				continue
			}
			e := copyExam(exam)
			e.Questions = nil
			out = append(out, e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *examStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.repo.run(func(d *data) error {
		n = int64(len(d.exams))
		return nil
	})
	return n, err
}

func sortQuestions(e *models.Exam) {
	sort.SliceStable(e.Questions, func(i, j int) bool {
		if e.Questions[i].Position != e.Questions[j].Position {
			return e.Questions[i].Position < e.Questions[j].Position
		}
		return e.Questions[i].ID < e.Questions[j].ID
	})
	for i := range e.Questions {
		opts := e.Questions[i].Options
		sort.SliceStable(opts, func(a, b int) bool {
			if opts[a].Position != opts[b].Position {
				return opts[a].Position < opts[b].Position
			}
			return opts[a].ID < opts[b].ID
		})
	}
}
