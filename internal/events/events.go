package events

import "time"

type EventType string

const (
	AttemptStarted        EventType = "attempt.started"
	AttemptSubmitted      EventType = "attempt.submitted"
	ScoringIntegrityFault EventType = "scoring.integrity_fault"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type AttemptStartedPayload struct {
	AttemptID     uint      `json:"attempt_id"`
	ExamID        uint      `json:"exam_id"`
	StudentID     string    `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	Deadline      time.Time `json:"deadline"`
}

type AttemptSubmittedPayload struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	StudentID   string    `json:"student_id"`
	Score       float64   `json:"score"`
	TotalPoints float64   `json:"total_points"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IntegrityFaultPayload flags questions that could not be scored because
// their answer key is missing.
type IntegrityFaultPayload struct {
	ExamID      uint   `json:"exam_id"`
	AttemptID   uint   `json:"attempt_id"`
	QuestionIDs []uint `json:"question_ids"`
	Reason      string `json:"reason"`
}
