// Package session implements the client-side study-session state machine.
// The Controller is the single owner of the session aggregate: every
// mutation, local or remote-triggered, funnels through its operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/logging"
	"github.com/tutoroo/tutoroo-cli/internal/phase"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
	"github.com/tutoroo/tutoroo-cli/internal/timer"
)

// Blocking precondition errors. These are the only failures surfaced to the
// user before any mutation; everything else degrades into log turns.
var (
	ErrAlreadyCompleted = errors.New("today's study is already completed")
	ErrNoPlan           = errors.New("no study plan selected")
	ErrBusy             = errors.New("another request is in flight")
	ErrWrongPhase       = errors.New("operation not valid in the current phase")
	ErrEmptyAnswer      = errors.New("answer text or image required")
	ErrInvalidRating    = errors.New("rating must be at least 1")
)

// Tutor-facing messages, matching the product's Korean UI.
const (
	msgGenericError     = "오류가 발생했습니다."
	msgAllDone          = "오늘의 모든 학습이 종료되었습니다! 복습 자료를 확인해보세요."
	msgFinalizeOK       = "오늘의 학습이 기록되었습니다. 수고했어요!"
	msgFinalizeDegraded = "학습 기록 중 문제가 발생했지만, 오늘의 학습은 완료 처리되었습니다."
	msgFeedbackThanks   = "소중한 평가 감사합니다! 다음 수업에 반영할게요."
)

// pacing pause between a graded submission and the next phase
const advanceDelay = 2 * time.Second

// API is the slice of the study service the controller depends on.
type API interface {
	Status(ctx context.Context, planID int64) (*studyapi.StatusResponse, error)
	StartClass(ctx context.Context, req *studyapi.ClassStartRequest) (*studyapi.ClassStartResponse, error)
	StartSession(ctx context.Context, req *studyapi.SessionStartRequest) (*studyapi.SessionStartResponse, error)
	Chat(ctx context.Context, req *studyapi.ChatRequest) (*studyapi.ChatResponse, error)
	GenerateTest(ctx context.Context, planID int64, dayCount int) (*studyapi.TestResponse, error)
	SubmitTest(ctx context.Context, planID int64, textAnswer string, image []byte, imageName string) (*studyapi.TestSubmitResponse, error)
	SaveLog(ctx context.Context, req *studyapi.LogRequest) error
	GenerateAiFeedback(ctx context.Context, planID int64) (*studyapi.FeedbackResponse, error)
}

var _ API = (*studyapi.Client)(nil)

// TutorChoice is the persona selection made on the tutor screen.
type TutorChoice struct {
	Persona      domain.Persona
	CustomOption string
}

// Controller orchestrates phase transitions, remote calls, and the
// conversation log. Operations serialize on an internal mutex so a timer
// goroutine and UI events never interleave mid-mutation.
type Controller struct {
	mu    sync.Mutex
	api   API
	store domain.Store
	clock *timer.Countdown
	log   *logging.Logger

	sess     *domain.Session
	turns    []*domain.Turn
	attempt  *domain.TestAttempt
	rating   int
	comment  string
	terminal bool

	loading     bool // status load / session start in flight
	chatLoading bool // chat, test, or feedback exchange in flight

	now   func() time.Time
	delay func(time.Duration, func())
}

// New creates a controller bound to a study service client and local store.
func New(api API, store domain.Store) *Controller {
	c := &Controller{
		api:   api,
		store: store,
		clock: timer.New(),
		log:   logging.New("session"),
		now:   time.Now,
	}
	c.delay = func(d time.Duration, fn func()) {
		time.AfterFunc(d, fn)
	}
	c.sess = c.blankSession()
	return c
}

func (c *Controller) blankSession() *domain.Session {
	now := c.nowFn()
	return &domain.Session{
		ID:        uuid.NewString(),
		StudyDay:  1,
		Persona:   domain.PersonaKangaroo,
		Phase:     domain.PhaseClass,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Controller) nowFn() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// State is an immutable snapshot handed to the UI layer.
type State struct {
	PlanID         int64
	StudyDay       int
	Goal           string
	TodayTopic     string
	Persona        domain.Persona
	Phase          domain.Phase
	PhaseLabel     string
	PhaseIndex     int
	TimeLeft       int
	TimerRunning   bool
	Practice       bool
	SpeakerOn      bool
	CompletedToday bool
	Terminal       bool
	Loading        bool
	ChatLoading    bool
	Turns          []*domain.Turn
}

// State returns a snapshot of the session for rendering. The turn slice is
// copied; the turns themselves are immutable once appended.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := make([]*domain.Turn, len(c.turns))
	copy(turns, c.turns)

	return State{
		PlanID:         c.sess.PlanID,
		StudyDay:       c.sess.StudyDay,
		Goal:           c.sess.Goal,
		TodayTopic:     c.sess.TodayTopic,
		Persona:        c.sess.Persona,
		Phase:          c.sess.Phase,
		PhaseLabel:     phase.Lookup(c.sess.Phase).Label,
		PhaseIndex:     c.sess.PhaseIndex,
		TimeLeft:       c.clock.Remaining(),
		TimerRunning:   c.clock.Running(),
		Practice:       c.sess.Practice,
		SpeakerOn:      c.sess.SpeakerOn,
		CompletedToday: c.sess.CompletedToday,
		Terminal:       c.terminal,
		Loading:        c.loading,
		ChatLoading:    c.chatLoading,
		Turns:          turns,
	}
}

// SetPlanInfo selects the active plan. Choosing a different plan resets the
// whole session; re-selecting the current plan only refreshes the goal text
// so an in-progress session survives navigation.
func (c *Controller) SetPlanInfo(planID int64, goal string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.PlanID == planID {
		c.sess.Goal = goal
		return
	}

	c.sess = c.blankSession()
	c.sess.PlanID = planID
	c.sess.Goal = goal
	c.turns = nil
	c.attempt = nil
	c.terminal = false
	c.clock.Reset(phase.Lookup(domain.PhaseClass).DefaultTime)
	c.clock.Stop()
}

// SetPractice switches unbounded practice mode on or off. In practice mode
// the countdown is inert and phases advance only by explicit action.
func (c *Controller) SetPractice(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.Practice = on
	c.clock.SetInert(on)
	if !on {
		c.clock.Resume()
	}
}

// ToggleSpeaker flips the TTS request flag for subsequent remote calls.
func (c *Controller) ToggleSpeaker() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.SpeakerOn = !c.sess.SpeakerOn
	return c.sess.SpeakerOn
}

// LoadStatus reads the plan's remote state and fills in day, persona, and
// the completion flag. A plan with no recorded state is a valid empty read.
func (c *Controller) LoadStatus(ctx context.Context, planID int64) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if planID == 0 {
		planID = c.sess.PlanID
	}
	if planID == 0 {
		c.mu.Unlock()
		return ErrNoPlan
	}
	c.loading = true
	c.mu.Unlock()

	start := time.Now()
	st, err := c.api.Status(ctx, planID)
	logging.RemoteCallEvent("status", planID, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		if errors.Is(err, studyapi.ErrNoActiveState) {
			return nil
		}
		return fmt.Errorf("load status: %w", err)
	}

	c.sess.PlanID = st.PlanID
	if st.CurrentDay > 0 {
		c.sess.StudyDay = st.CurrentDay
	}
	c.sess.Goal = st.Goal
	if st.TodayTopic != "" {
		c.sess.TodayTopic = st.TodayTopic
	} else {
		c.sess.TodayTopic = "오늘의 학습"
	}
	if p := domain.Persona(strings.ToLower(st.PersonaName)); p.Valid() {
		c.sess.Persona = p
	}
	c.sess.CompletedToday = c.isSameDay(st.LastStudyDate)
	return nil
}

// isSameDay parses the service's last-study date and compares it with the
// local calendar date. Equal dates mean today is already completed.
func (c *Controller) isSameDay(dateStr string) bool {
	if dateStr == "" {
		return false
	}
	var parsed time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		parsed, err = time.Parse(layout, dateStr)
		if err == nil {
			break
		}
	}
	if err != nil {
		return false
	}
	return domain.SameCalendarDay(c.nowFn(), parsed)
}

// Initialize prepares the controller on page entry. A non-empty in-memory
// log means a session is already underway and nothing happens; otherwise a
// persisted session for the plan is restored, and failing that the remote
// status is loaded.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if len(c.turns) > 0 {
		c.mu.Unlock()
		return nil
	}
	planID := c.sess.PlanID
	c.mu.Unlock()

	if planID != 0 && c.restore(ctx, planID) {
		return nil
	}
	return c.LoadStatus(ctx, 0)
}

// restore loads the latest persisted session for the plan back into memory.
func (c *Controller) restore(ctx context.Context, planID int64) bool {
	if c.store == nil {
		return false
	}
	sess, err := c.store.LatestSession(ctx, planID)
	if err != nil {
		return false
	}
	turns, err := c.store.GetTurns(ctx, sess.ID)
	if err != nil || len(turns) == 0 {
		return false
	}
	// A restored session from a previous day is stale; start fresh instead.
	if !domain.SameCalendarDay(c.nowFn(), sess.UpdatedAt) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = sess
	c.turns = turns
	c.terminal = false
	c.clock.SetInert(sess.Practice)
	c.clock.Restore(sess.TimeLeft, phase.Duration(sess.Phase, sess.Schedule) > 0)
	c.log.WithPlan(planID).Info("session_restored", map[string]interface{}{
		"phase": string(sess.Phase),
		"turns": len(turns),
	})
	return true
}

// Start begins a new study day with the chosen tutor. Preconditions are
// checked before any mutation or remote call: a set plan and an incomplete
// day. Violations are blocking errors for the UI to present.
func (c *Controller) Start(ctx context.Context, choice TutorChoice) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.sess.PlanID == 0 {
		c.mu.Unlock()
		return ErrNoPlan
	}
	if c.sess.CompletedToday {
		c.mu.Unlock()
		return ErrAlreadyCompleted
	}

	persona := choice.Persona
	if !persona.Valid() {
		persona = domain.PersonaKangaroo
	}

	c.loading = true
	planID := c.sess.PlanID
	day := c.sess.StudyDay
	tts := c.sess.SpeakerOn
	c.mu.Unlock()

	start := time.Now()
	res, err := c.api.StartClass(ctx, &studyapi.ClassStartRequest{
		PlanID:       planID,
		DayCount:     day,
		PersonaName:  strings.ToUpper(string(persona)),
		DailyMood:    "NORMAL",
		CustomOption: choice.CustomOption,
		NeedsTts:     tts,
	})
	logging.RemoteCallEvent("class_start", planID, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		return fmt.Errorf("start class: %w", err)
	}

	// Fresh aggregate for the day; the explicit start wipes any stale log.
	goal := c.sess.Goal
	topic := c.sess.TodayTopic
	practice := c.sess.Practice
	c.sess = c.blankSession()
	c.sess.PlanID = planID
	c.sess.StudyDay = day
	c.sess.Goal = goal
	c.sess.TodayTopic = topic
	c.sess.Practice = practice
	c.sess.Persona = persona
	c.sess.CustomOption = choice.CustomOption
	c.sess.SpeakerOn = tts
	c.sess.Schedule = toPhaseSchedule(res.Schedule)
	c.turns = nil
	c.attempt = nil
	c.terminal = false

	// The class-start response already carries the CLASS opener, so entering
	// the first phase skips the usual opener fetch.
	c.sess.PhaseIndex = 0
	c.sess.Phase = domain.PhaseClass
	duration := phase.Duration(domain.PhaseClass, c.sess.Schedule)
	c.clock.SetInert(c.sess.Practice)
	c.clock.Reset(duration)
	c.sess.TimeLeft = c.clock.Remaining()
	logging.PhaseEvent(planID, "", string(domain.PhaseClass), duration)

	c.persistSession(ctx, true)
	c.appendTurn(ctx, &domain.Turn{
		Speaker:  domain.SpeakerAI,
		Text:     res.AiMessage,
		AudioURL: res.AudioURL,
		ImageURL: res.ImageURL,
	})
	return nil
}

func toPhaseSchedule(m map[string]int) map[domain.Phase]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[domain.Phase]int, len(m))
	for k, v := range m {
		out[domain.Phase(k)] = v
	}
	return out
}

// Tick advances the session clock by one second. The host event loop calls
// this at its own cadence; when the countdown is exhausted the phase
// advances before the clock is reset for the new phase.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal {
		return
	}
	if c.clock.Tick() {
		c.advanceLocked(ctx)
	} else {
		c.sess.TimeLeft = c.clock.Remaining()
	}
}

// Next advances the phase on explicit user action. This is the only way
// untimed phases and practice sessions move forward.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal {
		return
	}
	c.advanceLocked(ctx)
}

// advanceLocked moves to the next phase and runs its on-enter action.
// Callers hold the mutex.
func (c *Controller) advanceLocked(ctx context.Context) {
	next, err := phase.Next(c.sess.PhaseIndex)
	if err != nil {
		// Sequence exhausted: stop the clock and close out the day.
		c.terminal = true
		c.clock.Stop()
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgAllDone})
		c.persistSession(ctx, false)
		return
	}
	c.enterPhaseLocked(ctx, next)
}

// enterPhaseLocked switches to the phase at the given index, resets the
// clock from the schedule, and dispatches the phase's on-enter action.
func (c *Controller) enterPhaseLocked(ctx context.Context, index int) {
	from := c.sess.Phase
	p := phase.At(index)
	c.sess.PhaseIndex = index
	c.sess.Phase = p

	duration := phase.Duration(p, c.sess.Schedule)
	c.clock.Reset(duration)
	c.sess.TimeLeft = c.clock.Remaining()

	logging.PhaseEvent(c.sess.PlanID, string(from), string(p), duration)
	c.persistSession(ctx, false)

	switch onEnterAction(p) {
	case enterFetchTest:
		c.fetchTestLocked(ctx)
	case enterResetFeedback:
		c.rating = 0
		c.comment = ""
	case enterFinalize:
		c.fetchOpenerLocked(ctx, p)
		c.finalizeLocked(ctx)
	default:
		c.fetchOpenerLocked(ctx, p)
	}
}

// enterKind tags the per-phase on-enter behavior.
type enterKind int

const (
	enterFetchOpener enterKind = iota // default: fetch the phase-opening AI turn
	enterFetchTest                    // TEST: fetch a generated question instead
	enterResetFeedback                // STUDENT_FEEDBACK: reset local rating capture
	enterFinalize                     // REVIEW: opener plus the finalize call
)

func onEnterAction(p domain.Phase) enterKind {
	switch p {
	case domain.PhaseTest:
		return enterFetchTest
	case domain.PhaseStudentFeedback:
		return enterResetFeedback
	case domain.PhaseReview:
		return enterFinalize
	default:
		return enterFetchOpener
	}
}

// fetchOpenerLocked asks the tutor for the phase's opening message. Failures
// degrade into a generic error turn; the session keeps moving.
func (c *Controller) fetchOpenerLocked(ctx context.Context, p domain.Phase) {
	start := time.Now()
	res, err := c.api.StartSession(ctx, &studyapi.SessionStartRequest{
		PlanID:      c.sess.PlanID,
		SessionMode: string(p),
		PersonaName: strings.ToUpper(string(c.sess.Persona)),
		DayCount:    c.sess.StudyDay,
		NeedsTts:    c.sess.SpeakerOn,
	})
	logging.RemoteCallEvent("session_start", c.sess.PlanID, time.Since(start), err)

	if err != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgGenericError})
		return
	}
	c.appendTurn(ctx, &domain.Turn{
		Speaker:  domain.SpeakerAI,
		Text:     res.AiMessage,
		AudioURL: res.AudioURL,
		ImageURL: res.ImageURL,
	})
}

// fetchTestLocked pulls the day's generated question on TEST entry.
func (c *Controller) fetchTestLocked(ctx context.Context) {
	start := time.Now()
	res, err := c.api.GenerateTest(ctx, c.sess.PlanID, c.sess.StudyDay)
	logging.RemoteCallEvent("test_generate", c.sess.PlanID, time.Since(start), err)

	if err != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgGenericError})
		return
	}
	c.appendTurn(ctx, &domain.Turn{
		Speaker: domain.SpeakerAI,
		Text:    res.Question,
		Test:    &domain.TestPayload{Question: res.Question, Options: res.Options},
	})
}

// finalizeLocked runs the end-of-day bookkeeping on REVIEW entry. The day is
// marked complete regardless of remote outcome: once a student reaches
// REVIEW the session is not reversible, so a transient server error must
// never trap them in an unfinishable day.
func (c *Controller) finalizeLocked(ctx context.Context) {
	score := 0
	summary := ""
	if c.attempt != nil {
		score = c.attempt.Score
		summary = c.attempt.FeedbackText
	}

	start := time.Now()
	logErr := c.api.SaveLog(ctx, &studyapi.LogRequest{
		PlanID:    c.sess.PlanID,
		Score:     score,
		Summary:   summary,
		Completed: true,
	})
	logging.RemoteCallEvent("save_log", c.sess.PlanID, time.Since(start), logErr)

	start = time.Now()
	res, err := c.api.GenerateAiFeedback(ctx, c.sess.PlanID)
	logging.RemoteCallEvent("finalize", c.sess.PlanID, time.Since(start), err)

	c.sess.CompletedToday = true
	c.attempt = nil

	if err != nil || logErr != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgFinalizeDegraded})
	} else {
		text := msgFinalizeOK
		if res != nil && res.Feedback != "" {
			text = res.Feedback
		}
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: text})
	}
	c.persistSession(ctx, false)
}

// SendMessage sends a chat turn to the tutor, optionally with a staged
// image reference. The user turn is appended optimistically and never
// rolled back; a failed exchange is made visible with a generic error turn
// instead.
func (c *Controller) SendMessage(ctx context.Context, text, imageRef string) error {
	text = strings.TrimSpace(text)
	if text == "" && imageRef == "" {
		return nil
	}

	c.mu.Lock()
	if c.chatLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.chatLoading = true
	c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerUser, Text: text, ImageURL: imageRef})
	planID := c.sess.PlanID
	tts := c.sess.SpeakerOn
	c.mu.Unlock()

	start := time.Now()
	res, err := c.api.Chat(ctx, &studyapi.ChatRequest{PlanID: planID, Message: text, Image: imageRef, NeedsTts: tts})
	logging.RemoteCallEvent("chat", planID, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatLoading = false

	if err != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgGenericError})
		return nil
	}
	c.appendTurn(ctx, &domain.Turn{
		Speaker:  domain.SpeakerAI,
		Text:     res.AiResponse,
		AudioURL: res.AudioURL,
	})
	return nil
}

// SubmitTest grades the student's answer. An empty answer with no image is
// rejected locally before any remote call. A graded result appends the
// answer and a scored tutor turn, then schedules the advance to GRADING
// after a short pacing pause.
func (c *Controller) SubmitTest(ctx context.Context, answerText string, image []byte, imageName string) error {
	answerText = strings.TrimSpace(answerText)

	c.mu.Lock()
	if c.sess.Phase != domain.PhaseTest {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if answerText == "" && len(image) == 0 {
		c.mu.Unlock()
		return ErrEmptyAnswer
	}
	if c.chatLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.chatLoading = true
	planID := c.sess.PlanID
	c.mu.Unlock()

	start := time.Now()
	res, err := c.api.SubmitTest(ctx, planID, answerText, image, imageName)
	logging.RemoteCallEvent("test_submit", planID, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatLoading = false

	userText := answerText
	if userText == "" {
		userText = "(이미지 답안 제출)"
	}
	c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerUser, Text: userText, ImageURL: imageName})

	if err != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgGenericError})
		return nil
	}

	c.attempt = &domain.TestAttempt{
		AnswerText:   answerText,
		AnswerImage:  imageName,
		Score:        res.Score,
		Passed:       res.IsPassed,
		FeedbackText: res.AiFeedback,
	}

	verdict := "아쉽지만 통과하지 못했어요."
	if res.IsPassed {
		verdict = "통과했어요!"
	}
	c.appendTurn(ctx, &domain.Turn{
		Speaker:  domain.SpeakerAI,
		Text:     fmt.Sprintf("%d점! %s %s", res.Score, verdict, res.AiFeedback),
		AudioURL: res.AudioURL,
	})

	c.scheduleAdvance(ctx)
	return nil
}

// SubmitFeedback records the student's rating of today's class. A rating
// below one is rejected locally with no remote call.
func (c *Controller) SubmitFeedback(ctx context.Context, rating int, comment string) error {
	c.mu.Lock()
	if c.sess.Phase != domain.PhaseStudentFeedback {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if rating < 1 {
		c.mu.Unlock()
		return ErrInvalidRating
	}
	if c.chatLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.chatLoading = true
	c.rating = rating
	c.comment = comment
	planID := c.sess.PlanID
	tts := c.sess.SpeakerOn
	c.mu.Unlock()

	message := fmt.Sprintf("[수업 평가] 별점 %d점", rating)
	if strings.TrimSpace(comment) != "" {
		message += ": " + comment
	}

	start := time.Now()
	res, err := c.api.Chat(ctx, &studyapi.ChatRequest{PlanID: planID, Message: message, NeedsTts: tts})
	logging.RemoteCallEvent("feedback_submit", planID, time.Since(start), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatLoading = false

	c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerUser, Text: message})

	if err != nil {
		c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: msgGenericError})
		return nil
	}

	thanks := msgFeedbackThanks
	if res.AiResponse != "" {
		thanks = res.AiResponse
	}
	c.appendTurn(ctx, &domain.Turn{Speaker: domain.SpeakerAI, Text: thanks, AudioURL: res.AudioURL})

	c.scheduleAdvance(ctx)
	return nil
}

// scheduleAdvance queues the phase advance after the pacing delay.
// Callers hold the mutex.
func (c *Controller) scheduleAdvance(ctx context.Context) {
	fromIndex := c.sess.PhaseIndex
	c.delay(advanceDelay, func() {
		defer logging.Recover("session")
		c.mu.Lock()
		defer c.mu.Unlock()
		// A tick may have advanced the phase already; don't double-step.
		if c.terminal || c.sess.PhaseIndex != fromIndex {
			return
		}
		c.advanceLocked(context.WithoutCancel(ctx))
	})
}

// Reset discards the session and its persisted log entirely.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil && c.sess.ID != "" {
		if err := c.store.DeleteTurns(ctx, c.sess.ID); err != nil {
			c.log.Warn("reset_delete_turns", nil, err)
		}
		if err := c.store.DeleteSession(ctx, c.sess.ID); err != nil {
			c.log.Warn("reset_delete_session", nil, err)
		}
	}

	planID := c.sess.PlanID
	goal := c.sess.Goal
	c.sess = c.blankSession()
	c.sess.PlanID = planID
	c.sess.Goal = goal
	c.turns = nil
	c.attempt = nil
	c.terminal = false
	c.clock.Stop()
}

// Pause stops the countdown without losing remaining time, for use at true
// application-lifetime boundaries.
func (c *Controller) Pause(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Stop()
	c.persistSession(ctx, false)
}

// Resume restarts a paused countdown.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Resume()
}

// appendTurn adds one immutable turn to the log and persists it.
// Callers hold the mutex.
func (c *Controller) appendTurn(ctx context.Context, turn *domain.Turn) {
	turn.ID = ulid.Make().String()
	turn.SessionID = c.sess.ID
	turn.Timestamp = c.nowFn()
	c.turns = append(c.turns, turn)

	if c.store != nil {
		if err := c.store.AppendTurn(ctx, turn); err != nil {
			c.log.Warn("persist_turn", map[string]interface{}{"turn": turn.ID}, err)
		}
	}
}

// persistSession writes the aggregate to local storage. Persistence is
// best-effort: a storage failure is logged, never fatal to the session.
// Callers hold the mutex.
func (c *Controller) persistSession(ctx context.Context, create bool) {
	if c.store == nil {
		return
	}
	c.sess.TimeLeft = c.clock.Remaining()
	c.sess.UpdatedAt = c.nowFn()

	var err error
	if create {
		err = c.store.CreateSession(ctx, c.sess)
	} else {
		err = c.store.UpdateSession(ctx, c.sess)
	}
	if err != nil {
		c.log.Warn("persist_session", map[string]interface{}{"session": c.sess.ID}, err)
	}
}
