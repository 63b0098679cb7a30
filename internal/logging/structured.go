// Package logging provides structured JSON logging for client components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Event     string                 `json:"event"`
	PlanID    int64                  `json:"plan_id,omitempty"`
	Phase     string                 `json:"phase,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

var (
	outMu sync.Mutex
	out   io.Writer = os.Stderr
)

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SetOutput redirects log output. The TUI owns the terminal while it runs,
// so the study command points this at a log file instead of stderr.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// Logger provides structured logging
type Logger struct {
	component string
	planID    int64
	phase     string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithPlan sets the plan context
func (l *Logger) WithPlan(planID int64) *Logger {
	return &Logger{component: l.component, planID: planID, phase: l.phase}
}

// WithPhase sets the session-phase context
func (l *Logger) WithPhase(phase string) *Logger {
	return &Logger{component: l.component, planID: l.planID, phase: phase}
}

// log emits a structured log event
func (l *Logger) log(level Level, event string, extra map[string]interface{}, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Event:     event,
		PlanID:    l.planID,
		Phase:     l.phase,
		Extra:     extra,
	}

	if err != nil {
		e.Error = err.Error()
	}

	emit(e)
}

func emit(e Event) {
	data, _ := json.Marshal(e)
	outMu.Lock()
	fmt.Fprintln(out, string(data))
	outMu.Unlock()
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.log(LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an event with duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: l.component,
		Event:     event,
		PlanID:    l.planID,
		Phase:     l.phase,
		Duration:  time.Since(start).Milliseconds(),
		Extra:     extra,
	}
	emit(e)
}

// PhaseEvent logs a phase transition.
func PhaseEvent(planID int64, from, to string, timeLeft int) {
	emit(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: "session",
		Event:     "phase_change",
		PlanID:    planID,
		Phase:     to,
		Extra: map[string]interface{}{
			"from":      from,
			"time_left": timeLeft,
		},
	})
}

// RemoteCallEvent logs the outcome of one study-service call.
func RemoteCallEvent(op string, planID int64, duration time.Duration, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: "studyapi",
		Event:     op,
		PlanID:    planID,
		Duration:  duration.Milliseconds(),
	}
	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}
	emit(e)
}
