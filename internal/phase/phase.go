// Package phase defines the fixed daily session sequence and per-phase
// timing configuration.
package phase

import (
	"errors"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
)

// ErrExhausted signals that the sequence has no further phase.
var ErrExhausted = errors.New("phase sequence exhausted")

// sequence is the total order of a daily session. It never varies.
var sequence = []domain.Phase{
	domain.PhaseClass,
	domain.PhaseBreak,
	domain.PhaseTest,
	domain.PhaseGrading,
	domain.PhaseExplanation,
	domain.PhaseAIFeedback,
	domain.PhaseStudentFeedback,
	domain.PhaseReview,
}

// Config holds per-phase display and timing settings.
type Config struct {
	Label       string // Korean display label, matching the product UI
	DefaultTime int    // seconds; 0 means no countdown, explicit advance only
}

var configs = map[domain.Phase]Config{
	domain.PhaseClass:           {Label: "수업", DefaultTime: 5 * 60},
	domain.PhaseBreak:           {Label: "쉬는 시간", DefaultTime: 1 * 60},
	domain.PhaseTest:            {Label: "테스트", DefaultTime: 15 * 60},
	domain.PhaseGrading:         {Label: "채점 중", DefaultTime: 10},
	domain.PhaseExplanation:     {Label: "해설 강의", DefaultTime: 10 * 60},
	domain.PhaseAIFeedback:      {Label: "AI 피드백", DefaultTime: 5 * 60},
	domain.PhaseStudentFeedback: {Label: "수업 평가", DefaultTime: 3 * 60},
	domain.PhaseReview:          {Label: "복습 자료", DefaultTime: 0},
}

// Sequence returns the fixed ordered list of phases.
func Sequence() []domain.Phase {
	out := make([]domain.Phase, len(sequence))
	copy(out, sequence)
	return out
}

// Len returns the number of phases in the sequence.
func Len() int { return len(sequence) }

// At returns the phase at the given index.
func At(i int) domain.Phase {
	return sequence[i]
}

// Next returns the index following i, or ErrExhausted when i is the last
// valid index.
func Next(i int) (int, error) {
	if i+1 < len(sequence) {
		return i + 1, nil
	}
	return 0, ErrExhausted
}

// Lookup returns the configuration for a phase. Unknown phases fall back to
// the CLASS configuration.
func Lookup(p domain.Phase) Config {
	if c, ok := configs[p]; ok {
		return c
	}
	return configs[domain.PhaseClass]
}

// Duration resolves the countdown seconds for a phase. A schedule override
// supplied by the server takes precedence over the default when present.
func Duration(p domain.Phase, schedule map[domain.Phase]int) int {
	if d, ok := schedule[p]; ok {
		return d
	}
	return Lookup(p).DefaultTime
}
