// Package main provides the Tutoroo CLI entrypoint.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tutoroo/tutoroo-cli/internal/config"
)

var (
	version = "0.1.0"
	pretty  = true
	planArg int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutoroo",
		Short: "Tutoroo - AI tutor study sessions in your terminal",
		Long: `Tutoroo: daily AI-tutored study sessions.

Usage modes:
  tutoroo              Start today's study session (default plan)
  tutoroo study        Same, with tutor and practice options
  tutoroo status       Show today's study state for a plan
  tutoroo plan         Manage study plans

Configuration lives in ~/.tutoroo/.env (TUTOROO_API_URL, TUTOROO_TOKEN,
TUTOROO_PLAN_ID, TUTOROO_PERSONA). Flags override the environment.`,
		Version: version,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runStudy(cmd, studyOptions{})
		},
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")
	rootCmd.PersistentFlags().Int64Var(&planArg, "plan", 0, "Plan ID (defaults to TUTOROO_PLAN_ID)")

	rootCmd.AddCommand(
		studyCmd(),
		practiceCmd(),
		statusCmd(),
		planCmd(),
		reviewCmd(),
		sttCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolvePlanID picks the plan from the --plan flag, falling back to the
// environment default.
func resolvePlanID() int64 {
	if planArg != 0 {
		return planArg
	}
	return config.Load().PlanID
}
