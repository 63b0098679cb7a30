package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tutoroo/tutoroo-cli/internal/config"
	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/logging"
	"github.com/tutoroo/tutoroo-cli/internal/session"
	"github.com/tutoroo/tutoroo-cli/internal/storage"
	"github.com/tutoroo/tutoroo-cli/internal/tui"
)

type studyOptions struct {
	tutor    string
	custom   string
	practice bool
}

func studyCmd() *cobra.Command {
	opts := studyOptions{}

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Start or resume today's study session",
		Long: `Start today's study session with your tutor, or resume the one
already in progress. The session runs through the full daily sequence:
class, break, test, grading, explanation, feedback, and review.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runStudy(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tutor, "tutor", "", "Tutor persona: tiger, turtle, rabbit, kangaroo, dragon")
	cmd.Flags().StringVar(&opts.custom, "custom", "", "Extra instruction for the tutor")
	cmd.Flags().BoolVar(&opts.practice, "practice", false, "Practice mode: no countdown, advance with Ctrl+N")

	return cmd
}

func runStudy(cmd *cobra.Command, opts studyOptions) {
	if !isTTY() {
		exitOnError(errors.New("study sessions need an interactive terminal"))
	}

	cfg := config.Load()
	paths := config.GetPaths()
	planID := resolvePlanID()
	if planID == 0 {
		exitOnError(errors.New("no plan selected: pass --plan or set TUTOROO_PLAN_ID"))
	}

	for _, dir := range []string{paths.Home, paths.Data, paths.Downloads} {
		if err := config.EnsureDir(dir); err != nil {
			exitOnError(fmt.Errorf("create %s: %w", dir, err))
		}
	}

	// The TUI owns the terminal; logs go to the session log file.
	logFile, err := os.OpenFile(paths.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		logging.SetOutput(logFile)
		defer logFile.Close()
	}

	store, err := storage.New(paths.Data)
	if err != nil {
		exitOnError(fmt.Errorf("open local storage: %w", err))
	}
	defer store.Close()

	api := newAPIClient()
	ctrl := session.New(api, store)
	ctrl.SetPlanInfo(planID, "")
	if opts.practice {
		ctrl.SetPractice(true)
	}
	if cfg.SpeakerOn {
		ctrl.ToggleSpeaker()
	}

	ctx := context.Background()
	if err := ctrl.Initialize(ctx); err != nil {
		exitOnError(err)
	}

	// A restored session already has its log; otherwise start the day.
	if len(ctrl.State().Turns) == 0 {
		persona := domain.Persona(opts.tutor)
		if opts.tutor == "" {
			persona = domain.Persona(cfg.Persona)
		}
		err := ctrl.Start(ctx, session.TutorChoice{Persona: persona, CustomOption: opts.custom})
		switch {
		case errors.Is(err, session.ErrAlreadyCompleted):
			fmt.Println("오늘의 학습은 이미 완료되었습니다. 내일 만나요!")
			return
		case err != nil:
			exitOnError(err)
		}
	}

	model := tui.NewStudyModel(ctrl, api, paths.Downloads)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		exitOnError(err)
	}
}
