// Package tui provides the Bubble Tea interactive study session interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/session"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
	tutorstrings "github.com/tutoroo/tutoroo-cli/internal/strings"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	aiNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	aiTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	userNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	userTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	testStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	timerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	focusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Padding(0, 1)
)

// personaFaces maps tutor personas to their header emoji.
var personaFaces = map[domain.Persona]string{
	domain.PersonaTiger:    "🐯",
	domain.PersonaTurtle:   "🐢",
	domain.PersonaRabbit:   "🐰",
	domain.PersonaKangaroo: "🦘",
	domain.PersonaDragon:   "🐲",
}

type (
	clockTickMsg    time.Time
	opDoneMsg       struct{ err error }
	downloadDoneMsg struct {
		path string
		err  error
	}
)

// StudyModel is the TUI model for a live study session.
type StudyModel struct {
	ctrl        *session.Controller
	api         *studyapi.Client
	downloadDir string

	ready    bool
	quitting bool
	busy     bool // a controller op is running in a Cmd
	notice   string
	err      error

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	width    int
	height   int
}

// NewStudyModel creates the study TUI around an initialized controller.
func NewStudyModel(ctrl *session.Controller, api *studyapi.Client, downloadDir string) StudyModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textarea.New()
	ti.Placeholder = "메시지를 입력하세요... (Enter로 전송)"
	ti.CharLimit = 2000
	ti.SetWidth(80)
	ti.SetHeight(3)
	ti.Focus()

	return StudyModel{
		ctrl:        ctrl,
		api:         api,
		downloadDir: downloadDir,
		spinner:     s,
		input:       ti,
	}
}

// Init starts the spinner and the one-second session clock.
func (m StudyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, clockTick())
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

// Update handles messages.
func (m StudyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case clockTickMsg:
		// The tick may advance the phase, which can block on remote calls;
		// run it off the update loop and reschedule the next tick.
		ctrl := m.ctrl
		tick := func() tea.Msg {
			ctrl.Tick(context.Background())
			return opDoneMsg{}
		}
		return m, tea.Batch(tick, clockTick())

	case opDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errorStyle.Render(msg.err.Error())
		}
		m.refreshViewport()
		return m, nil

	case downloadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = errorStyle.Render("다운로드 실패: " + msg.err.Error())
		} else {
			m.notice = successStyle.Render("복습 자료 저장됨: " + msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m StudyModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.ctrl.Pause(context.Background())
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m.handleEnterKey()

	case "alt+enter", "ctrl+j":
		m.input.SetValue(m.input.Value() + "\n")
		return m, nil

	case "ctrl+n":
		// Explicit advance, for untimed phases and practice mode.
		ctrl := m.ctrl
		m.busy = true
		return m, func() tea.Msg {
			ctrl.Next(context.Background())
			return opDoneMsg{}
		}

	case "ctrl+t":
		on := m.ctrl.ToggleSpeaker()
		if on {
			m.notice = mutedStyle.Render("음성 재생 켜짐")
		} else {
			m.notice = mutedStyle.Render("음성 재생 꺼짐")
		}
		return m, nil

	case "ctrl+r":
		return m.handleDownload()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m StudyModel) handleEnterKey() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	st := m.ctrl.State()
	if st.ChatLoading {
		return m, nil
	}

	m.input.SetValue("")
	m.notice = ""
	m.busy = true
	ctrl := m.ctrl

	var op func() tea.Msg
	switch st.Phase {
	case domain.PhaseTest:
		op = func() tea.Msg {
			return opDoneMsg{err: submitErrToNotice(ctrl.SubmitTest(context.Background(), text, nil, ""))}
		}
	case domain.PhaseStudentFeedback:
		rating, comment := parseFeedback(text)
		op = func() tea.Msg {
			return opDoneMsg{err: submitErrToNotice(ctrl.SubmitFeedback(context.Background(), rating, comment))}
		}
	default:
		op = func() tea.Msg {
			return opDoneMsg{err: ctrl.SendMessage(context.Background(), text, "")}
		}
	}

	m.refreshViewport()
	return m, tea.Batch(m.spinner.Tick, op)
}

// parseFeedback reads a leading star rating ("5 재밌었어요") from the input.
func parseFeedback(text string) (int, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, ""
	}
	rating, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, text
	}
	return rating, strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
}

// submitErrToNotice keeps precondition errors visible but in Korean.
func submitErrToNotice(err error) error {
	switch {
	case err == nil:
		return nil
	case err == session.ErrEmptyAnswer:
		return fmt.Errorf("답안을 입력하거나 이미지를 첨부해주세요")
	case err == session.ErrInvalidRating:
		return fmt.Errorf("별점(1~5)을 먼저 입력해주세요. 예: 5 재밌었어요")
	case err == session.ErrWrongPhase:
		return fmt.Errorf("지금 단계에서는 보낼 수 없어요")
	case err == session.ErrBusy:
		return fmt.Errorf("이전 요청을 처리하는 중이에요")
	default:
		return err
	}
}

func (m StudyModel) handleDownload() (tea.Model, tea.Cmd) {
	st := m.ctrl.State()
	if st.Phase != domain.PhaseReview || m.api == nil {
		m.notice = mutedStyle.Render("복습 자료는 복습 단계에서 받을 수 있어요")
		return m, nil
	}

	m.busy = true
	api := m.api
	dir := m.downloadDir
	planID := st.PlanID
	day := st.StudyDay
	return m, func() tea.Msg {
		data, err := api.DownloadReview(context.Background(), planID, day)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return downloadDoneMsg{err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("review-plan%d-day%d.pdf", planID, day))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: path}
	}
}

func (m StudyModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	statusHeight := 1
	inputHeight := 5
	vpWidth := msg.Width
	vpHeight := msg.Height - headerHeight - statusHeight - inputHeight

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()

	m.input.SetWidth(msg.Width - 4)
	return m, nil
}

func (m *StudyModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the TUI.
func (m StudyModel) View() string {
	if m.quitting {
		return "오늘도 수고했어요!\n"
	}
	if !m.ready {
		return fmt.Sprintf("\n  %s 준비 중...", m.spinner.View())
	}

	st := m.ctrl.State()
	var b strings.Builder

	face := personaFaces[st.Persona]
	header := titleStyle.Render(face+" Tutoroo") + "  " +
		mutedStyle.Render(tutorstrings.TruncateRunes(st.TodayTopic, 40))
	b.WriteString(header + "\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.renderStatus(st) + "\n")
	b.WriteString(m.renderInputArea(st))

	return b.String()
}

func (m StudyModel) renderStatus(st session.State) string {
	var parts []string

	parts = append(parts, timerStyle.Render(st.PhaseLabel))
	if st.TimerRunning {
		parts = append(parts, tutorstrings.FormatClock(st.TimeLeft))
	} else if st.Practice {
		parts = append(parts, "연습 모드")
	}

	if st.ChatLoading || m.busy {
		parts = append(parts, m.spinner.View()+" 응답 대기")
	}
	if st.CompletedToday {
		parts = append(parts, successStyle.Render("오늘 학습 완료"))
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}

	help := "Enter: 전송 │ Ctrl+T: 음성 │ Esc: 종료"
	switch st.Phase {
	case domain.PhaseReview:
		help = "Ctrl+R: 복습 자료 │ Ctrl+N: 마치기 │ Esc: 종료"
	case domain.PhaseStudentFeedback:
		help = "별점과 한마디를 입력하세요 (예: 5 재밌었어요)"
	}
	if st.Practice {
		help += " │ Ctrl+N: 다음 단계"
	}
	parts = append(parts, help)

	return statusStyle.Width(m.width).Render(strings.Join(parts, " │ "))
}

func (m StudyModel) renderInputArea(st session.State) string {
	if st.Terminal {
		return mutedStyle.Render("  오늘의 학습이 모두 끝났어요. Esc로 종료하세요.")
	}
	if st.ChatLoading {
		return fmt.Sprintf("  %s 선생님이 생각하는 중...", m.spinner.View())
	}
	if m.input.Focused() {
		return focusedInputStyle.Width(m.width - 4).Render(m.input.View())
	}
	return inputBorderStyle.Width(m.width - 4).Render(m.input.View())
}

func (m StudyModel) renderTranscript() string {
	st := m.ctrl.State()
	var b strings.Builder

	for _, turn := range st.Turns {
		switch turn.Speaker {
		case domain.SpeakerUser:
			b.WriteString(userNameStyle.Render("나") + "  " + userTextStyle.Render(turn.Text) + "\n\n")
		default:
			b.WriteString(aiNameStyle.Render("선생님") + "  " + aiTextStyle.Render(turn.Text) + "\n")
			if turn.Test != nil && len(turn.Test.Options) > 0 {
				for i, opt := range turn.Test.Options {
					b.WriteString(testStyle.Render(fmt.Sprintf("  %d) ", i+1)) + opt + "\n")
				}
			}
			b.WriteString("\n")
		}
	}

	content := b.String()
	if m.width > 4 {
		content = tutorstrings.WordWrap(content, m.width-4)
	}
	return content
}
