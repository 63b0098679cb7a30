package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/tutoroo/tutoroo-cli/internal/config"
	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
)

// exitOnError prints the error and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// isTTY reports whether stdout is an interactive terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newAPIClient builds the study service client from the environment.
func newAPIClient() *studyapi.Client {
	cfg := config.Load()
	return studyapi.New(cfg.APIBaseURL, cfg.Token)
}

// completedToday compares the service's last-study date with the local
// calendar date.
func completedToday(lastStudyDate string) bool {
	if lastStudyDate == "" {
		return false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, lastStudyDate); err == nil {
			return domain.SameCalendarDay(time.Now(), parsed)
		}
	}
	return false
}
