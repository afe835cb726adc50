package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workout"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "add NAME SETS REPS",
		Short: "Log a workout on the selected day",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := models.ParseNewWorkout(args[0], args[1], args[2], comment)
			if err != nil {
				return err
			}
			svc, db, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := svc.AddWorkout(cmd.Context(), n)
			if errors.Is(err, workout.ErrReloadFailed) {
				a.log.Warn("workout added but list not refreshed", "id", id, "error", err)
				err = nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added workout %d on %s\n", id, svc.SelectedDate())
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "free-text note")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the selected day's workouts and sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return printSummary(cmd.OutOrStdout(), svc.Summary())
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "toggle WORKOUT_ID SET_ID",
		Short: "Mark a set done (or not done with --undo)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workoutID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("workout id: %w", err)
			}
			setID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("set id: %w", err)
			}
			svc, db, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := svc.ToggleSetDone(cmd.Context(), workoutID, setID, !undo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workout %d: %.0f%% done\n", workoutID, 100*svc.Progress(workoutID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the set not done")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete WORKOUT_ID",
		Short: "Delete a workout and its sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("workout id: %w", err)
			}
			svc, db, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return svc.DeleteWorkout(cmd.Context(), id)
		},
	}
}

func printSummary(out io.Writer, sum workout.Summary) error {
	fmt.Fprintf(out, "%s  %d%% complete\n", sum.Date, sum.CompletionPercent)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSETS\tREPS\tDONE\tCOMMENT")
	for _, w := range sum.Workouts {
		marks := make([]byte, 0, len(w.SetList))
		for _, s := range w.SetList {
			if s.Done {
				marks = append(marks, 'x')
			} else {
				marks = append(marks, '.')
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n", w.ID, w.Name, w.Sets, w.Reps, marks, w.Comment)
	}
	return tw.Flush()
}
