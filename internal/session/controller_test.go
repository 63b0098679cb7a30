package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/logging"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeAPI scripts study-service responses and records call order.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	statusRes   *studyapi.StatusResponse
	statusErr   error
	classRes    *studyapi.ClassStartResponse
	classErr    error
	sessionRes  *studyapi.SessionStartResponse
	sessionErr  error
	chatRes     *studyapi.ChatResponse
	chatErr     error
	testRes     *studyapi.TestResponse
	testErr     error
	submitRes   *studyapi.TestSubmitResponse
	submitErr   error
	saveLogErr  error
	feedbackRes *studyapi.FeedbackResponse
	feedbackErr error
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) Status(ctx context.Context, planID int64) (*studyapi.StatusResponse, error) {
	f.record("status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.statusRes != nil {
		return f.statusRes, nil
	}
	return &studyapi.StatusResponse{PlanID: planID, CurrentDay: 1}, nil
}

func (f *fakeAPI) StartClass(ctx context.Context, req *studyapi.ClassStartRequest) (*studyapi.ClassStartResponse, error) {
	f.record("class_start")
	if f.classErr != nil {
		return nil, f.classErr
	}
	if f.classRes != nil {
		return f.classRes, nil
	}
	return &studyapi.ClassStartResponse{AiMessage: "오늘 수업을 시작할게요!"}, nil
}

func (f *fakeAPI) StartSession(ctx context.Context, req *studyapi.SessionStartRequest) (*studyapi.SessionStartResponse, error) {
	f.record("session_start:" + req.SessionMode)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if f.sessionRes != nil {
		return f.sessionRes, nil
	}
	return &studyapi.SessionStartResponse{AiMessage: req.SessionMode + " 시작!"}, nil
}

func (f *fakeAPI) Chat(ctx context.Context, req *studyapi.ChatRequest) (*studyapi.ChatResponse, error) {
	f.record("chat")
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatRes != nil {
		return f.chatRes, nil
	}
	return &studyapi.ChatResponse{AiResponse: "답변: " + req.Message}, nil
}

func (f *fakeAPI) GenerateTest(ctx context.Context, planID int64, dayCount int) (*studyapi.TestResponse, error) {
	f.record("test_generate")
	if f.testErr != nil {
		return nil, f.testErr
	}
	if f.testRes != nil {
		return f.testRes, nil
	}
	return &studyapi.TestResponse{Question: "1+1은?", Options: []string{"1", "2", "3"}}, nil
}

func (f *fakeAPI) SubmitTest(ctx context.Context, planID int64, textAnswer string, image []byte, imageName string) (*studyapi.TestSubmitResponse, error) {
	f.record("test_submit")
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitRes != nil {
		return f.submitRes, nil
	}
	return &studyapi.TestSubmitResponse{Score: 100, IsPassed: true, AiFeedback: "완벽해요!"}, nil
}

func (f *fakeAPI) SaveLog(ctx context.Context, req *studyapi.LogRequest) error {
	f.record("save_log")
	return f.saveLogErr
}

func (f *fakeAPI) GenerateAiFeedback(ctx context.Context, planID int64) (*studyapi.FeedbackResponse, error) {
	f.record("finalize")
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	if f.feedbackRes != nil {
		return f.feedbackRes, nil
	}
	return &studyapi.FeedbackResponse{Feedback: "오늘도 잘했어요!"}, nil
}

var _ API = (*fakeAPI)(nil)

// memStore is an in-memory domain.Store for controller tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	order    []string
	turns    map[string][]*domain.Turn
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*domain.Session),
		turns:    make(map[string][]*domain.Turn),
	}
}

func (s *memStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	s.order = append(s.order, sess.ID)
	return nil
}

func (s *memStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) LatestSession(ctx context.Context, planID int64) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if sess := s.sessions[s.order[i]]; sess != nil && sess.PlanID == planID {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, errors.New("session not found")
}

func (s *memStore) UpdateSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memStore) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *turn
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], &cp)
	return nil
}

func (s *memStore) GetTurns(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[sessionID]
	out := make([]*domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *memStore) DeleteTurns(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
	return nil
}

func (s *memStore) Close() error { return nil }

var _ domain.Store = (*memStore)(nil)

// newTestController wires a controller to the fakes and captures delayed
// advances into a flush function so tests trigger them deterministically.
func newTestController(api *fakeAPI, store domain.Store) (*Controller, func()) {
	c := New(api, store)
	var mu sync.Mutex
	var pending []func()
	c.delay = func(d time.Duration, fn func()) {
		mu.Lock()
		pending = append(pending, fn)
		mu.Unlock()
	}
	flush := func() {
		mu.Lock()
		fns := pending
		pending = nil
		mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return c, flush
}

func startSession(t *testing.T, c *Controller) {
	t.Helper()
	c.SetPlanInfo(7, "중학 수학")
	require.NoError(t, c.Start(context.Background(), TutorChoice{Persona: domain.PersonaRabbit}))
}

func ticks(c *Controller, n int) {
	for i := 0; i < n; i++ {
		c.Tick(context.Background())
	}
}

func TestStartRequiresPlan(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)

	err := c.Start(context.Background(), TutorChoice{Persona: domain.PersonaTiger})
	assert.ErrorIs(t, err, ErrNoPlan)
	assert.Zero(t, api.callCount())
	assert.Empty(t, c.State().Turns)
}

func TestStartBlockedWhenCompletedToday(t *testing.T) {
	api := &fakeAPI{
		statusRes: &studyapi.StatusResponse{
			PlanID:        7,
			CurrentDay:    3,
			LastStudyDate: time.Now().Format("2006-01-02"),
		},
	}
	c, _ := newTestController(api, nil)
	c.SetPlanInfo(7, "중학 수학")
	require.NoError(t, c.LoadStatus(context.Background(), 7))
	require.True(t, c.State().CompletedToday)

	err := c.Start(context.Background(), TutorChoice{Persona: domain.PersonaTiger})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	// Only the status call happened; the rejected start reached nothing.
	assert.Equal(t, 1, api.callCount())
	assert.Empty(t, c.State().Turns)
}

func TestLoadStatusYesterdayNotCompleted(t *testing.T) {
	api := &fakeAPI{
		statusRes: &studyapi.StatusResponse{
			PlanID:        7,
			CurrentDay:    3,
			LastStudyDate: time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
		},
	}
	c, _ := newTestController(api, nil)
	require.NoError(t, c.LoadStatus(context.Background(), 7))

	st := c.State()
	assert.False(t, st.CompletedToday)
	assert.Equal(t, 3, st.StudyDay)
}

func TestLoadStatusNoActiveStateIsEmptyRead(t *testing.T) {
	api := &fakeAPI{statusErr: studyapi.ErrNoActiveState}
	c, _ := newTestController(api, nil)

	assert.NoError(t, c.LoadStatus(context.Background(), 7))
	assert.False(t, c.State().CompletedToday)
}

func TestStartEntersClassWithSchedule(t *testing.T) {
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{
			AiMessage: "안녕! 오늘은 방정식이야.",
			Schedule:  map[string]int{"CLASS": 10, "BREAK": 5},
		},
	}
	c, _ := newTestController(api, newMemStore())
	startSession(t, c)

	st := c.State()
	assert.Equal(t, domain.PhaseClass, st.Phase)
	assert.Equal(t, "수업", st.PhaseLabel)
	assert.Equal(t, 10, st.TimeLeft)
	assert.True(t, st.TimerRunning)
	require.Len(t, st.Turns, 1)
	assert.Equal(t, domain.SpeakerAI, st.Turns[0].Speaker)
	assert.Equal(t, "안녕! 오늘은 방정식이야.", st.Turns[0].Text)
	// class/start carries the CLASS opener itself
	assert.Equal(t, []string{"class_start"}, api.calls)
}

func TestTickCountsDownThenAdvances(t *testing.T) {
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{
			AiMessage: "시작!",
			Schedule:  map[string]int{"CLASS": 3},
		},
	}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	ticks(c, 2)
	st := c.State()
	assert.Equal(t, domain.PhaseClass, st.Phase, "counting down does not advance yet")
	assert.Equal(t, 1, st.TimeLeft)

	c.Tick(context.Background())
	st = c.State()
	assert.Equal(t, domain.PhaseBreak, st.Phase, "the tick that reaches zero advances")
	assert.Equal(t, 60, st.TimeLeft)
	assert.Contains(t, api.calls, "session_start:BREAK")
}

func TestPhaseOpenerFailureAppendsErrorTurn(t *testing.T) {
	api := &fakeAPI{
		classRes:   &studyapi.ClassStartResponse{AiMessage: "시작!", Schedule: map[string]int{"CLASS": 1}},
		sessionErr: errors.New("boom"),
	}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	ticks(c, 1) // the 1-second CLASS advances into BREAK
	st := c.State()
	assert.Equal(t, domain.PhaseBreak, st.Phase)
	require.Len(t, st.Turns, 2)
	assert.Equal(t, msgGenericError, st.Turns[1].Text)
}

func TestTestPhaseFetchesQuestion(t *testing.T) {
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{
			AiMessage: "시작!",
			Schedule:  map[string]int{"CLASS": 1, "BREAK": 1},
		},
		testRes: &studyapi.TestResponse{Question: "2x=4, x는?", Options: []string{"1", "2"}},
	}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	ticks(c, 2) // 1-second CLASS, then 1-second BREAK
	st := c.State()
	require.Equal(t, domain.PhaseTest, st.Phase)
	assert.Contains(t, api.calls, "test_generate")

	last := st.Turns[len(st.Turns)-1]
	require.NotNil(t, last.Test)
	assert.Equal(t, "2x=4, x는?", last.Test.Question)
	assert.Equal(t, []string{"1", "2"}, last.Test.Options)
}

func TestSendMessageAppendsBothTurns(t *testing.T) {
	api := &fakeAPI{chatRes: &studyapi.ChatResponse{AiResponse: "좋은 질문이에요!"}}
	c, _ := newTestController(api, newMemStore())
	startSession(t, c)

	require.NoError(t, c.SendMessage(context.Background(), "방정식이 뭐예요?", ""))

	st := c.State()
	require.Len(t, st.Turns, 3)
	assert.Equal(t, domain.SpeakerUser, st.Turns[1].Speaker)
	assert.Equal(t, "방정식이 뭐예요?", st.Turns[1].Text)
	assert.Equal(t, domain.SpeakerAI, st.Turns[2].Speaker)
	assert.Equal(t, "좋은 질문이에요!", st.Turns[2].Text)
	assert.False(t, st.ChatLoading)
}

func TestSendMessageFailureKeepsUserTurn(t *testing.T) {
	api := &fakeAPI{chatErr: errors.New("relay down")}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	require.NoError(t, c.SendMessage(context.Background(), "안녕하세요", ""))

	st := c.State()
	require.Len(t, st.Turns, 3)
	assert.Equal(t, "안녕하세요", st.Turns[1].Text, "optimistic user turn is never rolled back")
	assert.Equal(t, msgGenericError, st.Turns[2].Text)
	assert.False(t, st.ChatLoading, "busy flag clears so the session continues")

	// The session is still live: the timer keeps pacing.
	before := c.State().TimeLeft
	c.Tick(context.Background())
	assert.Equal(t, before-1, c.State().TimeLeft)
}

func TestSendMessageIgnoresBlank(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	require.NoError(t, c.SendMessage(context.Background(), "   ", ""))
	assert.Len(t, c.State().Turns, 1)
	assert.Equal(t, []string{"class_start"}, api.calls)
}

func advanceToPhase(t *testing.T, c *Controller, target domain.Phase) {
	t.Helper()
	for i := 0; i < 16; i++ {
		if c.State().Phase == target {
			return
		}
		c.Next(context.Background())
	}
	t.Fatalf("never reached phase %s", target)
}

func TestSubmitTestRejectsEmptyAnswer(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseTest)
	callsBefore := api.callCount()
	turnsBefore := len(c.State().Turns)

	err := c.SubmitTest(context.Background(), "   ", nil, "")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.Equal(t, callsBefore, api.callCount(), "rejected locally, no remote call")
	assert.Len(t, c.State().Turns, turnsBefore)
}

func TestSubmitTestOutsideTestPhase(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	err := c.SubmitTest(context.Background(), "정답", nil, "")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSubmitTestGradesAndAdvances(t *testing.T) {
	api := &fakeAPI{
		submitRes: &studyapi.TestSubmitResponse{Score: 80, IsPassed: true, AiFeedback: "잘했어요"},
	}
	c, flush := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseTest)

	require.NoError(t, c.SubmitTest(context.Background(), "x=2", nil, ""))

	st := c.State()
	require.Equal(t, domain.PhaseTest, st.Phase, "advance waits for the pacing delay")
	n := len(st.Turns)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "x=2", st.Turns[n-2].Text)
	assert.Contains(t, st.Turns[n-1].Text, "80점")

	flush()
	assert.Equal(t, domain.PhaseGrading, c.State().Phase)
}

func TestSubmitTestImageOnlyAnswer(t *testing.T) {
	api := &fakeAPI{}
	c, flush := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseTest)

	require.NoError(t, c.SubmitTest(context.Background(), "", []byte("png-bytes"), "answer.png"))
	flush()
	assert.Equal(t, domain.PhaseGrading, c.State().Phase)
	assert.Contains(t, api.calls, "test_submit")
}

func TestSubmitTestFailureStaysInPhase(t *testing.T) {
	api := &fakeAPI{submitErr: errors.New("grader offline")}
	c, flush := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseTest)

	require.NoError(t, c.SubmitTest(context.Background(), "x=2", nil, ""))
	flush()

	st := c.State()
	assert.Equal(t, domain.PhaseTest, st.Phase, "a failed submission can be retried")
	assert.Equal(t, msgGenericError, st.Turns[len(st.Turns)-1].Text)
	assert.False(t, st.ChatLoading)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	err := c.SubmitFeedback(context.Background(), 5, "좋았어요")
	assert.ErrorIs(t, err, ErrWrongPhase)

	advanceToPhase(t, c, domain.PhaseStudentFeedback)
	callsBefore := api.callCount()

	err = c.SubmitFeedback(context.Background(), 0, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Equal(t, callsBefore, api.callCount())
}

func TestSubmitFeedbackThanksAndAdvances(t *testing.T) {
	api := &fakeAPI{
		chatRes: &studyapi.ChatResponse{AiResponse: ""},
		// REVIEW entry will fire save_log + finalize; keep them green
		feedbackRes: &studyapi.FeedbackResponse{Feedback: "내일 또 만나요!"},
	}
	c, flush := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseStudentFeedback)

	require.NoError(t, c.SubmitFeedback(context.Background(), 5, "재밌었어요"))

	st := c.State()
	last := st.Turns[len(st.Turns)-1]
	assert.Equal(t, msgFeedbackThanks, last.Text)

	flush()
	st = c.State()
	assert.Equal(t, domain.PhaseReview, st.Phase)
	assert.True(t, st.CompletedToday)
}

func TestReviewFinalizeSuccess(t *testing.T) {
	api := &fakeAPI{
		feedbackRes: &studyapi.FeedbackResponse{Feedback: "성실하게 참여했어요."},
	}
	c, _ := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseReview)

	st := c.State()
	assert.True(t, st.CompletedToday)
	assert.Contains(t, api.calls, "save_log")
	assert.Contains(t, api.calls, "finalize")
	assert.Equal(t, "성실하게 참여했어요.", st.Turns[len(st.Turns)-1].Text)
	assert.False(t, st.TimerRunning, "REVIEW has no countdown")
}

func TestReviewFinalizeFailureStillCompletes(t *testing.T) {
	api := &fakeAPI{feedbackErr: errors.New("summary service down")}
	c, _ := newTestController(api, nil)
	startSession(t, c)
	advanceToPhase(t, c, domain.PhaseReview)

	st := c.State()
	assert.True(t, st.CompletedToday, "finalize failure never traps the day")
	assert.Equal(t, msgFinalizeDegraded, st.Turns[len(st.Turns)-1].Text)
}

func TestFullDayReachesTerminal(t *testing.T) {
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{
			AiMessage: "시작!",
			Schedule: map[string]int{
				"CLASS": 1, "BREAK": 1, "TEST": 1, "GRADING": 1,
				"EXPLANATION": 1, "AI_FEEDBACK": 1, "STUDENT_FEEDBACK": 1,
			},
		},
	}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	seen := []domain.Phase{c.State().Phase}
	for i := 0; i < 20 && !c.State().Terminal; i++ {
		before := c.State().Phase
		ticks(c, 1) // each phase lasts one second here
		if after := c.State().Phase; after != before {
			seen = append(seen, after)
		}
		if c.State().Phase == domain.PhaseReview {
			c.Next(context.Background())
		}
	}

	st := c.State()
	require.True(t, st.Terminal)
	assert.Equal(t, []domain.Phase{
		domain.PhaseClass, domain.PhaseBreak, domain.PhaseTest,
		domain.PhaseGrading, domain.PhaseExplanation, domain.PhaseAIFeedback,
		domain.PhaseStudentFeedback, domain.PhaseReview,
	}, seen)
	assert.True(t, st.CompletedToday)
	assert.Equal(t, msgAllDone, st.Turns[len(st.Turns)-1].Text)

	// Terminal is absorbing: further ticks and advances change nothing.
	turns := len(st.Turns)
	ticks(c, 3)
	c.Next(context.Background())
	assert.Equal(t, domain.PhaseReview, c.State().Phase)
	assert.Len(t, c.State().Turns, turns)
}

func TestLogIsAppendOnly(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, newMemStore())
	startSession(t, c)

	var prev []string
	snapshot := func() []string {
		var ids []string
		for _, turn := range c.State().Turns {
			ids = append(ids, turn.ID)
		}
		return ids
	}

	prev = snapshot()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.SendMessage(context.Background(), fmt.Sprintf("질문 %d", i), ""))
		cur := snapshot()
		require.GreaterOrEqual(t, len(cur), len(prev))
		assert.Equal(t, prev, cur[:len(prev)], "existing turns keep identity and order")
		prev = cur
	}
}

func TestInitializeIsIdempotentOnceStarted(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, newMemStore())
	startSession(t, c)
	calls := api.callCount()

	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, calls, api.callCount(), "a live session is never re-fetched")
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{
			AiMessage: "시작!",
			Schedule:  map[string]int{"CLASS": 100},
		},
	}
	c, _ := newTestController(api, store)
	startSession(t, c)
	require.NoError(t, c.SendMessage(context.Background(), "첫 질문", ""))
	ticks(c, 40)
	c.Pause(context.Background())

	// A new controller on the same store picks the session back up.
	c2, _ := newTestController(&fakeAPI{}, store)
	c2.SetPlanInfo(7, "중학 수학")
	require.NoError(t, c2.Initialize(context.Background()))

	st := c2.State()
	assert.Equal(t, domain.PhaseClass, st.Phase)
	assert.Equal(t, 60, st.TimeLeft)
	require.Len(t, st.Turns, 3)
	assert.Equal(t, "첫 질문", st.Turns[1].Text)
}

func TestInitializeSkipsStaleSession(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{}
	c, _ := newTestController(api, store)
	startSession(t, c)
	c.Pause(context.Background())

	statusAPI := &fakeAPI{}
	c2, _ := newTestController(statusAPI, store)
	c2.SetPlanInfo(7, "중학 수학")
	c2.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	require.NoError(t, c2.Initialize(context.Background()))
	assert.Empty(t, c2.State().Turns, "yesterday's session is not resumed")
	assert.Contains(t, statusAPI.calls, "status")
}

func TestChatBusyFlagRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	startSession(t, c)

	blocking := &blockingAPI{fakeAPI: api, release: release, entered: make(chan struct{}, 1)}
	c.api = blocking

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(context.Background(), "느린 질문", "") }()

	// Wait for the first call to be in flight.
	select {
	case <-blocking.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first chat never started")
	}

	err := c.SendMessage(context.Background(), "겹치는 질문", "")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.State().ChatLoading)
}

// blockingAPI parks Chat until released, for overlap tests.
type blockingAPI struct {
	*fakeAPI
	release <-chan struct{}
	entered chan struct{}
}

func (b *blockingAPI) Chat(ctx context.Context, req *studyapi.ChatRequest) (*studyapi.ChatResponse, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.fakeAPI.Chat(ctx, req)
}

func TestPracticeModeNeverAdvancesOnTick(t *testing.T) {
	api := &fakeAPI{
		classRes: &studyapi.ClassStartResponse{AiMessage: "시작!", Schedule: map[string]int{"CLASS": 2}},
	}
	c, _ := newTestController(api, nil)
	c.SetPlanInfo(7, "중학 수학")
	c.SetPractice(true)
	require.NoError(t, c.Start(context.Background(), TutorChoice{Persona: domain.PersonaDragon}))

	ticks(c, 10)
	st := c.State()
	assert.Equal(t, domain.PhaseClass, st.Phase)
	assert.Equal(t, 2, st.TimeLeft, "inert clock ignores ticks")

	c.Next(context.Background())
	assert.Equal(t, domain.PhaseBreak, c.State().Phase, "explicit advance still works")
}

func TestSetPlanInfoResetOnPlanChange(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, newMemStore())
	startSession(t, c)
	require.NotEmpty(t, c.State().Turns)

	c.SetPlanInfo(8, "영어 회화")
	st := c.State()
	assert.Empty(t, st.Turns)
	assert.Equal(t, int64(8), st.PlanID)
	assert.Equal(t, domain.PhaseClass, st.Phase)

	// Same plan re-selected: session untouched, goal refreshed.
	startSession := func() {
		require.NoError(t, c.Start(context.Background(), TutorChoice{Persona: domain.PersonaTurtle}))
	}
	startSession()
	turns := len(c.State().Turns)
	c.SetPlanInfo(8, "영어 회화 (수정)")
	st = c.State()
	assert.Len(t, st.Turns, turns)
	assert.Equal(t, "영어 회화 (수정)", st.Goal)
}

func TestToggleSpeakerPropagatesToRequests(t *testing.T) {
	var gotTts bool
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	c.SetPlanInfo(7, "중학 수학")
	assert.True(t, c.ToggleSpeaker())
	require.NoError(t, c.Start(context.Background(), TutorChoice{Persona: domain.PersonaRabbit}))

	recorder := &ttsRecorder{fakeAPI: api, got: &gotTts}
	c.api = recorder
	require.NoError(t, c.SendMessage(context.Background(), "들려주세요", ""))
	assert.True(t, gotTts)
}

type ttsRecorder struct {
	*fakeAPI
	got *bool
}

func (r *ttsRecorder) Chat(ctx context.Context, req *studyapi.ChatRequest) (*studyapi.ChatResponse, error) {
	*r.got = req.NeedsTts
	return r.fakeAPI.Chat(ctx, req)
}

func TestPersonaFallsBackToDefault(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api, nil)
	c.SetPlanInfo(7, "중학 수학")
	require.NoError(t, c.Start(context.Background(), TutorChoice{Persona: domain.Persona("unicorn")}))
	assert.Equal(t, domain.PersonaKangaroo, c.State().Persona)
}

func TestScoreTurnFormat(t *testing.T) {
	tests := []struct {
		name   string
		res    *studyapi.TestSubmitResponse
		wantIn []string
	}{
		{
			name:   "passed",
			res:    &studyapi.TestSubmitResponse{Score: 95, IsPassed: true, AiFeedback: "훌륭해요"},
			wantIn: []string{"95점", "통과했어요", "훌륭해요"},
		},
		{
			name:   "failed",
			res:    &studyapi.TestSubmitResponse{Score: 40, IsPassed: false, AiFeedback: "다시 풀어봐요"},
			wantIn: []string{"40점", "통과하지 못했어요", "다시 풀어봐요"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{submitRes: tt.res}
			c, _ := newTestController(api, nil)
			startSession(t, c)
			advanceToPhase(t, c, domain.PhaseTest)

			require.NoError(t, c.SubmitTest(context.Background(), "답", nil, ""))
			st := c.State()
			last := st.Turns[len(st.Turns)-1].Text
			for _, want := range tt.wantIn {
				assert.True(t, strings.Contains(last, want), "turn %q should contain %q", last, want)
			}
		})
	}
}
