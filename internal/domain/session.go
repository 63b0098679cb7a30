package domain

import (
	"time"
)

// Session is the aggregate root for one day of tutoring.
// All mutation goes through the session controller; nothing else
// writes these fields.
type Session struct {
	ID             string        `json:"id"`
	PlanID         int64         `json:"planID"`
	StudyDay       int           `json:"studyDay"`
	Goal           string        `json:"goal,omitempty"`
	TodayTopic     string        `json:"todayTopic,omitempty"`
	Persona        Persona       `json:"persona"`
	CustomOption   string        `json:"customOption,omitempty"`
	Phase          Phase         `json:"phase"`
	PhaseIndex     int           `json:"phaseIndex"`
	TimeLeft       int           `json:"timeLeft"`
	Practice       bool          `json:"practice"`
	SpeakerOn      bool          `json:"speakerOn"`
	CompletedToday bool          `json:"completedToday"`
	Schedule       map[Phase]int `json:"schedule,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Persona is the tutor character selected at session start.
type Persona string

const (
	PersonaTiger    Persona = "tiger"
	PersonaTurtle   Persona = "turtle"
	PersonaRabbit   Persona = "rabbit"
	PersonaKangaroo Persona = "kangaroo"
	PersonaDragon   Persona = "dragon"
)

// Personas lists the selectable tutor characters in display order.
func Personas() []Persona {
	return []Persona{PersonaTiger, PersonaTurtle, PersonaRabbit, PersonaKangaroo, PersonaDragon}
}

// Valid reports whether p is one of the known personas.
func (p Persona) Valid() bool {
	switch p {
	case PersonaTiger, PersonaTurtle, PersonaRabbit, PersonaKangaroo, PersonaDragon:
		return true
	}
	return false
}

// Phase is one stage of the daily session sequence.
type Phase string

const (
	PhaseClass           Phase = "CLASS"
	PhaseBreak           Phase = "BREAK"
	PhaseTest            Phase = "TEST"
	PhaseGrading         Phase = "GRADING"
	PhaseExplanation     Phase = "EXPLANATION"
	PhaseAIFeedback      Phase = "AI_FEEDBACK"
	PhaseStudentFeedback Phase = "STUDENT_FEEDBACK"
	PhaseReview          Phase = "REVIEW"
)

// SameCalendarDay reports whether two times fall on the same local calendar
// date. Used to derive CompletedToday from the server's last-study date.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
