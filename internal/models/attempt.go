package models

import (
	"time"

	"gorm.io/datatypes"
)

type Attempt struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ExamID        uint   `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_student_exam_attempt,priority:2"`
	StudentID     string `json:"student_id" gorm:"not null;index;size:255;uniqueIndex:idx_student_exam_attempt,priority:1"`
	AttemptNumber int    `json:"attempt_number" gorm:"not null;uniqueIndex:idx_student_exam_attempt,priority:3"`

	// Timing
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	Deadline    time.Time  `json:"deadline" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at" gorm:"index"`

	// Scoring
	Score       float64                           `json:"score" gorm:"default:0"`
	TotalPoints float64                           `json:"total_points" gorm:"default:0"`
	Results     datatypes.JSONSlice[AnswerResult] `json:"results,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

type Answer struct {
	ID               uint  `json:"id" gorm:"primaryKey"`
	AttemptID        uint  `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question,priority:1"`
	QuestionID       uint  `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question,priority:2"`
	SelectedOptionID *uint `json:"selected_option_id"`
}

func (Answer) TableName() string {
	return "answers"
}

// AnswerResult is the per-question outcome of scoring one answer.
type AnswerResult struct {
	QuestionID       uint  `json:"question_id"`
	SelectedOptionID *uint `json:"selected_option_id"`
	IsCorrect        bool  `json:"is_correct"`
	Unscorable       bool  `json:"unscorable,omitempty"`
}
