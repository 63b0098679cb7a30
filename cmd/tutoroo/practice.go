package main

import (
	"github.com/spf13/cobra"
)

func practiceCmd() *cobra.Command {
	opts := studyOptions{practice: true}

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Start an unbounded practice session",
		Long: `Start a practice session with no countdown. Phases never advance on
their own; move forward with Ctrl+N whenever you're ready. Practice
sessions run the same daily sequence but without the clock.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runStudy(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tutor, "tutor", "", "Tutor persona: tiger, turtle, rabbit, kangaroo, dragon")
	cmd.Flags().StringVar(&opts.custom, "custom", "", "Extra instruction for the tutor")

	return cmd
}
