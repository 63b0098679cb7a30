package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tutoroo/tutoroo-cli/internal/config"
	"github.com/tutoroo/tutoroo-cli/internal/render"
)

func reviewCmd() *cobra.Command {
	var day int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Download the review PDF for a study day",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			planID := resolvePlanID()
			if planID == 0 {
				exitOnError(errors.New("no plan selected: pass --plan or set TUTOROO_PLAN_ID"))
			}

			api := newAPIClient()
			ctx := context.Background()

			if day == 0 {
				st, err := api.Status(ctx, planID)
				if err != nil {
					exitOnError(fmt.Errorf("resolve current day: %w", err))
				}
				day = st.CurrentDay
			}

			data, err := api.DownloadReview(ctx, planID, day)
			if err != nil {
				exitOnError(err)
			}

			paths := config.GetPaths()
			if err := config.EnsureDir(paths.Downloads); err != nil {
				exitOnError(err)
			}
			path := filepath.Join(paths.Downloads, fmt.Sprintf("review-plan%d-day%d.pdf", planID, day))
			if err := os.WriteFile(path, data, 0644); err != nil {
				exitOnError(err)
			}

			fmt.Println(render.New(pretty && isTTY()).ReviewSaved(path, len(data)))
		},
	}

	cmd.Flags().IntVar(&day, "day", 0, "Study day (defaults to the plan's current day)")
	return cmd
}
