package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Create(exam).Error; err != nil {
		return translateError(err, "create exam")
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, translateError(err, "get exam %d", id)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Options", orderedOptions).
		First(&exam, id).Error
	if err != nil {
		return nil, translateError(err, "get exam %d with questions", id)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetManyWithQuestions(ctx context.Context, ids []uint) ([]*models.Exam, error) {
	var exams []*models.Exam
	if len(ids) == 0 {
		return exams, nil
	}
	err := e.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Options", orderedOptions).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&exams).Error
	if err != nil {
		return nil, translateError(err, "get exams with questions")
	}
	return exams, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var exams []*models.Exam
	query := ApplyExamFilters(e.db.WithContext(ctx).Model(&models.Exam{}), filters)
	if err := query.Order("id ASC").Find(&exams).Error; err != nil {
		return nil, translateError(err, "list exams")
	}
	return exams, nil
}

func (e *ExamPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := e.db.WithContext(ctx).Model(&models.Exam{}).Count(&count).Error; err != nil {
		return 0, translateError(err, "count exams")
	}
	return count, nil
}
