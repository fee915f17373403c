package postgres

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return translateError(err, "create attempt")
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err, "get attempt %d", id)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error
	if err != nil {
		return nil, translateError(err, "lock attempt %d", id)
	}
	return &attempt, nil
}

// LockStudentExam takes a transaction-scoped advisory lock keyed on the pair.
// It is released automatically on commit or rollback.
func (a *AttemptPostgreSQL) LockStudentExam(ctx context.Context, studentID string, examID uint) error {
	err := a.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?), ?)", studentID, int32(examID)).Error
	if err != nil {
		return translateError(err, "lock attempts of student %s on exam %d", studentID, examID)
	}
	return nil
}

func (a *AttemptPostgreSQL) CountByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count attempts")
	}
	return count, nil
}

func (a *AttemptPostgreSQL) CountSubmittedByStudentAndExam(ctx context.Context, studentID string, examID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("student_id = ? AND exam_id = ? AND submitted_at IS NOT NULL", studentID, examID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count submitted attempts")
	}
	return count, nil
}

func (a *AttemptPostgreSQL) MarkSubmitted(ctx context.Context, id uint, update repositories.SubmissionUpdate) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(map[string]interface{}{
			"score":        update.Score,
			"total_points": update.TotalPoints,
			"results":      datatypes.NewJSONSlice(update.Results),
			"submitted_at": update.SubmittedAt,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, translateError(result.Error, "submit attempt %d", id)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// Distinguish a lost race from a missing row
	if _, err := a.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := ApplyAttemptFilters(a.db.WithContext(ctx).Model(&models.Attempt{}), filters)
	if err := query.Order("id ASC").Find(&attempts).Error; err != nil {
		return nil, translateError(err, "list attempts")
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) CountsByExam(ctx context.Context) ([]models.AttemptCounts, error) {
	var counts []models.AttemptCounts
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("exam_id, COUNT(*) AS started, COUNT(submitted_at) AS completed").
		Group("exam_id").
		Order("exam_id ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, translateError(err, "count attempts by exam")
	}
	return counts, nil
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// ReplaceForAttempt must run inside a transaction so the delete and the
// insert are applied together.
func (a *AnswerPostgreSQL) ReplaceForAttempt(ctx context.Context, attemptID uint, answers []models.Answer) error {
	db := a.db.WithContext(ctx)
	if err := db.Where("attempt_id = ?", attemptID).Delete(&models.Answer{}).Error; err != nil {
		return translateError(err, "delete answers of attempt %d", attemptID)
	}
	if len(answers) == 0 {
		return nil
	}

	rows := make([]models.Answer, len(answers))
	for i, ans := range answers {
		rows[i] = models.Answer{
			AttemptID:        attemptID,
			QuestionID:       ans.QuestionID,
			SelectedOptionID: ans.SelectedOptionID,
		}
	}
	if err := db.CreateInBatches(rows, 100).Error; err != nil {
		return translateError(err, "store answers of attempt %d", attemptID)
	}
	return nil
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, translateError(err, "get answers of attempt %d", attemptID)
	}
	return answers, nil
}
