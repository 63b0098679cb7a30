package studyapi

// Request/response bodies for the Tutoroo study service. Field names mirror
// the service's JSON contract.

// StatusResponse describes the current enrollment state of a plan.
type StatusResponse struct {
	PlanID        int64  `json:"planId"`
	CurrentDay    int    `json:"currentDay"`
	Goal          string `json:"goal"`
	TodayTopic    string `json:"todayTopic"`
	PersonaName   string `json:"personaName"`
	LastStudyDate string `json:"lastStudyDate"` // ISO date; empty if never studied
}

// ClassStartRequest opens the first session of a study day.
type ClassStartRequest struct {
	PlanID       int64  `json:"planId"`
	DayCount     int    `json:"dayCount"`
	PersonaName  string `json:"personaName"`
	DailyMood    string `json:"dailyMood"`
	CustomOption string `json:"customOption,omitempty"`
	NeedsTts     bool   `json:"needsTts"`
}

// ClassStartResponse seeds the CLASS phase. Schedule carries per-phase
// second overrides keyed by phase name.
type ClassStartResponse struct {
	AiMessage string         `json:"aiMessage"`
	AudioURL  string         `json:"audioUrl"`
	ImageURL  string         `json:"imageUrl"`
	Schedule  map[string]int `json:"schedule"`
}

// SessionStartRequest announces a phase change and requests the opening
// AI message for the new phase.
type SessionStartRequest struct {
	PlanID      int64  `json:"planId"`
	SessionMode string `json:"sessionMode"`
	PersonaName string `json:"personaName"`
	DayCount    int    `json:"dayCount"`
	NeedsTts    bool   `json:"needsTts"`
}

type SessionStartResponse struct {
	AiMessage string `json:"aiMessage"`
	AudioURL  string `json:"audioUrl"`
	ImageURL  string `json:"imageUrl"`
}

type ChatRequest struct {
	PlanID   int64  `json:"planId"`
	Message  string `json:"message"`
	Image    string `json:"image,omitempty"` // staged upload reference
	NeedsTts bool   `json:"needsTts"`
}

type ChatResponse struct {
	AiResponse string `json:"aiResponse"`
	AudioURL   string `json:"audioUrl"`
}

// TestResponse is a generated daily-test question.
type TestResponse struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// TestSubmitResponse is the graded result of a test submission.
type TestSubmitResponse struct {
	Score      int    `json:"score"`
	IsPassed   bool   `json:"isPassed"`
	AiFeedback string `json:"aiFeedback"`
	AudioURL   string `json:"audioUrl"`
}

// LogRequest saves the day's study log before finalizing.
type LogRequest struct {
	PlanID    int64  `json:"planId"`
	Score     int    `json:"score"`
	Summary   string `json:"summary"`
	Completed bool   `json:"completed"`
}

// FeedbackResponse is the summary text produced by the finalize call.
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}

// PlanSummary is one entry of the enrolled-plan list.
type PlanSummary struct {
	PlanID     int64  `json:"planId"`
	Goal       string `json:"goal"`
	CurrentDay int    `json:"currentDay"`
	TotalDays  int    `json:"totalDays"`
	Persona    string `json:"personaName"`
}

// CreatePlanRequest enrolls a new study plan.
type CreatePlanRequest struct {
	Goal        string `json:"goal"`
	TotalDays   int    `json:"totalDays"`
	PersonaName string `json:"personaName"`
}

// CalendarDay is one studied day in the monthly dashboard calendar,
// derived from the service's study logs.
type CalendarDay struct {
	Date         string `json:"date"` // ISO date
	DayCount     int    `json:"dayCount"`
	DailySummary string `json:"dailySummary"`
	TestScore    int    `json:"testScore"`
	IsCompleted  bool   `json:"isCompleted"`
}

// CalendarResponse is the month's studied days.
type CalendarResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}
