package services

import (
	"math"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

// DefaultPassThreshold is the percentage at or above which an attempt passes
const DefaultPassThreshold = 50.0

type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	// OutcomeNone applies when the exam is worth zero points
	OutcomeNone Outcome = "none"
)

type ScoreResult struct {
	Score       float64
	TotalPoints float64
	Results     []models.AnswerResult
	// Unscorable lists every question of the exam that has no correct option,
	// answered or not, in question order
	Unscorable []uint
}

// Score grades answers against the exam's answer key. Answers to questions
// outside the exam, and repeated answers to the same question, are skipped.
// Results follow the order of answers. The function has no side effects.
func Score(exam *models.Exam, answers []models.Answer) ScoreResult {
	result := ScoreResult{
		TotalPoints: exam.TotalPoints(),
		Results:     make([]models.AnswerResult, 0, len(answers)),
	}

	seen := make(map[uint]bool, len(answers))
	for _, ans := range answers {
		question := exam.FindQuestion(ans.QuestionID)
		if question == nil || seen[ans.QuestionID] {
			continue
		}
		seen[ans.QuestionID] = true

		entry := models.AnswerResult{
			QuestionID:       ans.QuestionID,
			SelectedOptionID: ans.SelectedOptionID,
		}

		correct := question.CorrectOption()
		switch {
		case correct == nil:
			entry.Unscorable = true
		case ans.SelectedOptionID != nil && *ans.SelectedOptionID == correct.ID:
			entry.IsCorrect = true
			result.Score += question.Points
		}

		result.Results = append(result.Results, entry)
	}

	for i := range exam.Questions {
		if exam.Questions[i].CorrectOption() == nil {
			result.Unscorable = append(result.Unscorable, exam.Questions[i].ID)
		}
	}

	return result
}

// Percentage returns score as a percentage of total, or 0 for a zero total.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return roundFloat(score/total*100, 2)
}

// EvaluateOutcome applies the pass threshold. A zero total is neither a pass
// nor a fail.
func EvaluateOutcome(score, total, threshold float64) Outcome {
	if total <= 0 {
		return OutcomeNone
	}
	if score/total*100 >= threshold {
		return OutcomePass
	}
	return OutcomeFail
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
