package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

// translateError maps gorm's sentinel errors onto the repository ones.
func translateError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", msg, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("failed to %s: %w", msg, err)
	}
}

// ApplyExamFilters applies common filters to exam queries
func ApplyExamFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if filters.CreatorID != nil {
		query = query.Where("creator_id = ?", *filters.CreatorID)
	}
	if filters.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filters.OpenAt != nil {
		query = query.Where("start_time <= ? AND end_time >= ?", *filters.OpenAt, *filters.OpenAt)
	}
	return query
}

// ApplyAttemptFilters applies common filters to attempt queries
func ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.SubmittedOnly {
		query = query.Where("submitted_at IS NOT NULL")
	}
	return query
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}
