package validator

import (
	"fmt"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// examRules carries the tag-checked fields of an exam definition
type examRules struct {
	Title           string `json:"title" validate:"required,max=200"`
	CreatorID       string `json:"creator_id" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"exam_duration"`
	MaxAttempts     int    `json:"max_attempts" validate:"max_attempts"`
}

type questionRules struct {
	Points float64 `json:"points" validate:"positive_points"`
}

// ValidateExamDefinition reports every rule the exam breaks: malformed
// scheduling, attempt cap or duration, non-positive weights, and answer key
// faults (no correct option, or more than one).
func (bv *BusinessValidator) ValidateExamDefinition(exam *models.Exam) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, ToValidationErrors(bv.validate.Struct(examRules{
		Title:           exam.Title,
		CreatorID:       exam.CreatorID,
		DurationMinutes: exam.DurationMinutes,
		MaxAttempts:     exam.MaxAttempts,
	}))...)

	if exam.EndTime.Before(exam.StartTime) {
		errors = append(errors, ValidationError{
			Field:   "end_time",
			Message: "must not be before start_time",
			Value:   exam.EndTime,
			Rule:    "exam_window",
		})
	}

	for i := range exam.Questions {
		errors = append(errors, bv.ValidateQuestion(&exam.Questions[i])...)
	}

	return errors
}

// ValidateQuestion checks the weight and the answer key of one question
func (bv *BusinessValidator) ValidateQuestion(q *models.Question) ValidationErrors {
	var errors ValidationErrors
	field := fmt.Sprintf("questions[%d]", q.ID)

	for _, fe := range ToValidationErrors(bv.validate.Struct(questionRules{Points: q.Points})) {
		fe.Field = field + "." + fe.Field
		errors = append(errors, fe)
	}

	correct := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			correct++
		}
	}
	switch {
	case correct == 0:
		errors = append(errors, ValidationError{
			Field:   field + ".options",
			Message: "no option is flagged correct",
			Value:   q.ID,
			Rule:    RuleMissingAnswerKey,
		})
	case correct > 1:
		errors = append(errors, ValidationError{
			Field:   field + ".options",
			Message: "more than one option is flagged correct",
			Value:   correct,
			Rule:    RuleAmbiguousAnswerKey,
		})
	}

	return errors
}

const (
	RuleMissingAnswerKey   = "answer_key_missing"
	RuleAmbiguousAnswerKey = "answer_key_ambiguous"
)

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Per-attempt duration (1 minute to 24 hours)
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 1440
	})

	bv.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})

	bv.validate.RegisterValidation("positive_points", func(fl validator.FieldLevel) bool {
		return fl.Field().Float() > 0
	})
}
