package domain

import (
	"time"
)

// Turn is one entry in the conversation log. Turns are immutable once
// appended; the log is append-only and never reordered.
type Turn struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionID"`
	Speaker   Speaker      `json:"speaker"`
	Text      string       `json:"text"`
	AudioURL  string       `json:"audioUrl,omitempty"`
	ImageURL  string       `json:"imageUrl,omitempty"`
	Test      *TestPayload `json:"test,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type Speaker string

const (
	SpeakerUser Speaker = "USER"
	SpeakerAI   Speaker = "AI"
)

// TestPayload carries a generated test question. Present only on AI turns
// emitted during the TEST phase.
type TestPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// TestAttempt is the ephemeral result of a test submission. It is consumed
// by the GRADING transition and not persisted beyond its summarizing turn.
type TestAttempt struct {
	AnswerText   string
	AnswerImage  string
	Score        int
	Passed       bool
	FeedbackText string
}
