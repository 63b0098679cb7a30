package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutoroo/tutoroo-cli/internal/domain"
	"github.com/tutoroo/tutoroo-cli/internal/render"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage study plans",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			listPlans()
		},
	}

	cmd.AddCommand(planListCmd(), planCreateCmd(), planShowCmd(), planCalendarCmd())
	return cmd
}

func planListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled study plans",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			listPlans()
		},
	}
}

func listPlans() {
	api := newAPIClient()
	plans, err := api.ListPlans(context.Background())
	if err != nil {
		exitOnError(err)
	}
	fmt.Print(render.New(pretty && isTTY()).Plans(plans))
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show one plan's dashboard detail",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			planID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || planID < 1 {
				exitOnError(fmt.Errorf("invalid plan id %q", args[0]))
			}

			api := newAPIClient()
			plan, err := api.PlanDetail(context.Background(), planID)
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(pretty && isTTY()).PlanDetail(plan))
		},
	}
}

func planCalendarCmd() *cobra.Command {
	var (
		year  int
		month int
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the monthly study calendar",
		Long: `List the studied days of a month with their day count, test score,
and daily summary. Defaults to the current month; --plan narrows the
calendar to a single plan.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				exitOnError(fmt.Errorf("invalid month %d", month))
			}

			api := newAPIClient()
			cal, err := api.Calendar(context.Background(), year, month, resolvePlanID())
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(pretty && isTTY()).Calendar(cal))
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Calendar year (defaults to this year)")
	cmd.Flags().IntVar(&month, "month", 0, "Calendar month 1-12 (defaults to this month)")
	return cmd
}

func planCreateCmd() *cobra.Command {
	var (
		goal  string
		days  int
		tutor string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Enroll a new study plan",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if strings.TrimSpace(goal) == "" {
				exitOnError(errors.New("--goal is required"))
			}
			if days < 1 {
				exitOnError(errors.New("--days must be at least 1"))
			}
			persona := domain.Persona(strings.ToLower(tutor))
			if !persona.Valid() {
				persona = domain.PersonaKangaroo
			}

			api := newAPIClient()
			plan, err := api.CreatePlan(context.Background(), &studyapi.CreatePlanRequest{
				Goal:        goal,
				TotalDays:   days,
				PersonaName: strings.ToUpper(string(persona)),
			})
			if err != nil {
				exitOnError(err)
			}
			fmt.Println(render.New(pretty && isTTY()).PlanCreated(plan))
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "Learning goal (required)")
	cmd.Flags().IntVar(&days, "days", 30, "Plan length in days")
	cmd.Flags().StringVar(&tutor, "tutor", "kangaroo", "Tutor persona")

	return cmd
}
