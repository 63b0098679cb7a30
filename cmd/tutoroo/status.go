package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutoroo/tutoroo-cli/internal/render"
	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's study state for a plan",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			planID := resolvePlanID()
			if planID == 0 {
				exitOnError(errors.New("no plan selected: pass --plan or set TUTOROO_PLAN_ID"))
			}

			api := newAPIClient()
			r := render.New(pretty && isTTY())

			st, err := api.Status(context.Background(), planID)
			if errors.Is(err, studyapi.ErrNoActiveState) {
				fmt.Println(r.NoActiveState())
				return
			}
			if err != nil {
				exitOnError(err)
			}

			fmt.Print(r.Status(st, completedToday(st.LastStudyDate)))
		},
	}
}
