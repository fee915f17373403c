package models

import "time"

type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "true_false"
)

type Exam struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"not null;size:200"`
	Description     *string   `json:"description" gorm:"type:text"`
	Subject         *string   `json:"subject" gorm:"size:100"`
	CreatorID       string    `json:"creator_id" gorm:"not null;index;size:255"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;default:30"`
	StartTime       time.Time `json:"start_time" gorm:"not null"`
	EndTime         time.Time `json:"end_time" gorm:"not null"`
	MaxAttempts     int       `json:"max_attempts" gorm:"not null;default:1"`
	IsPublished     bool      `json:"is_published" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// IsOpenAt reports whether now falls inside the inclusive availability window.
func (e *Exam) IsOpenAt(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// TotalPoints sums the points of every question currently on the exam.
func (e *Exam) TotalPoints() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// FindQuestion returns the question with the given id, or nil.
func (e *Exam) FindQuestion(id uint) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}

type Question struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	ExamID   uint         `json:"exam_id" gorm:"not null;index"`
	Text     string       `json:"text" gorm:"type:text;not null"`
	Type     QuestionType `json:"type" gorm:"size:20;default:mcq"`
	Points   float64      `json:"points" gorm:"not null;default:1"`
	Position int          `json:"position" gorm:"not null;default:0"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOption returns the option flagged correct, or nil when the answer key
// is missing for this question.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct,omitempty" gorm:"default:false"`
	Position   int    `json:"position" gorm:"not null;default:0"`
}

func (Option) TableName() string {
	return "options"
}
