package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/models"
)

func NewTodayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's training, nutrition and check-in",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			today, err := e.app.Today(ctx)
			if err != nil {
				return fmt.Errorf("loading today: %w", err)
			}
			printToday(cmd.OutOrStdout(), today, e.app.Queue.PendingCount(), e.app.Monitor.Online())
			return nil
		}),
	}
}

func printToday(w io.Writer, t *models.TodayData, pending int, online bool) {
	fmt.Fprintf(w, "Today (%s)\n", t.Date)
	fmt.Fprintln(w, "=========")

	switch {
	case !t.Training.Available:
		fmt.Fprintln(w, "Training:  no program")
	case t.Training.IsTrainingDay:
		fmt.Fprintf(w, "Training:  %s (%d exercises)\n", t.Training.WorkoutName, t.Training.ExerciseCount)
	default:
		fmt.Fprintln(w, "Training:  rest day")
	}

	if t.Nutrition.Available {
		fmt.Fprintf(w, "Nutrition: %s day, P %g / C %g / F %g, %g kcal\n",
			t.Nutrition.DayType, t.Nutrition.TotalProtein, t.Nutrition.TotalCarbs, t.Nutrition.TotalFat, t.Nutrition.TotalCalories)
	} else {
		fmt.Fprintln(w, "Nutrition: no plan")
	}

	checkin := t.Checkin.Status
	if t.Checkin.NextCheckin != "" && !t.Checkin.IsCheckinDay {
		checkin += ", next " + t.Checkin.NextCheckin
	}
	fmt.Fprintf(w, "Check-in:  %s\n", checkin)

	if !online {
		fmt.Fprintln(w, "\nOffline: changes will be queued until the API is reachable.")
	}
	if pending > 0 {
		fmt.Fprintf(w, "%d change(s) waiting to sync.\n", pending)
	}
}

// NewShowCommand groups the read-only views. Each prints JSON.
func NewShowCommand() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print plans, logs and progress as JSON",
	}

	simple := []struct {
		use, short string
		read       func(ctx context.Context, e *env) (any, error)
	}{
		{"profile", "Program profile and check-in schedule", func(ctx context.Context, e *env) (any, error) { return e.app.Profile(ctx) }},
		{"training", "Today's training plan", func(ctx context.Context, e *env) (any, error) { return e.app.TrainingToday(ctx) }},
		{"training-week", "This week's training plan", func(ctx context.Context, e *env) (any, error) { return e.app.TrainingWeek(ctx) }},
		{"nutrition", "Today's meal plan", func(ctx context.Context, e *env) (any, error) { return e.app.Nutrition.Plan(ctx) }},
		{"nutrition-week", "This week's meal plan", func(ctx context.Context, e *env) (any, error) { return e.app.NutritionWeek(ctx) }},
		{"meals", "Meals logged today with totals", func(ctx context.Context, e *env) (any, error) { return e.app.Nutrition.Today(ctx) }},
		{"weight", "Weight history", func(ctx context.Context, e *env) (any, error) { return e.app.Progress.Weight(ctx) }},
		{"measurements", "Body measurements", func(ctx context.Context, e *env) (any, error) { return e.app.Progress.Measurements(ctx) }},
		{"photos", "Progress photos", func(ctx context.Context, e *env) (any, error) { return e.app.Progress.Photos(ctx) }},
		{"compliance", "Compliance streaks and heatmap", func(ctx context.Context, e *env) (any, error) { return e.app.Progress.Compliance(ctx) }},
		{"summaries", "Weekly summaries", func(ctx context.Context, e *env) (any, error) { return e.app.Progress.WeeklySummaries(ctx) }},
	}
	for _, s := range simple {
		read := s.read
		showCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
				v, err := read(ctx, e)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			}),
		})
	}

	showCmd.AddCommand(newFoodsCommand(), newHistoryCommand(), newAnalyticsCommand())
	return showCmd
}

func newFoodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "foods <query>",
		Short: "Search the food catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			foods, err := e.app.Client.SearchFoods(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), foods)
		}),
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <exercise name>",
		Short: "Logged sets for one exercise",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			h, err := e.app.Client.ExerciseHistory(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), h)
		}),
	}
}

func newAnalyticsCommand() *cobra.Command {
	var weeks, limit int
	analyticsCmd := &cobra.Command{
		Use:   "analytics <top|strength|volume> [exercise-id]",
		Short: "Training analytics",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			var (
				v   any
				err error
			)
			exerciseID := ""
			if len(args) == 2 {
				exerciseID = args[1]
			}
			switch args[0] {
			case "top":
				v, err = e.app.Client.TopExercises(ctx, limit)
			case "strength":
				v, err = requireExercise(exerciseID, func() (any, error) { return e.app.Client.Strength(ctx, exerciseID, weeks) })
			case "volume":
				v, err = requireExercise(exerciseID, func() (any, error) { return e.app.Client.Volume(ctx, exerciseID, weeks) })
			default:
				return fmt.Errorf("unknown analytics view %q: want top, strength or volume", args[0])
			}
			if api.IsStatus(err, http.StatusNotFound) {
				return fmt.Errorf("no %s analytics for %q: %w", args[0], exerciseID, err)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
	analyticsCmd.Flags().IntVar(&weeks, "weeks", 12, "weeks of history")
	analyticsCmd.Flags().IntVar(&limit, "limit", 5, "number of exercises for top")
	return analyticsCmd
}

func requireExercise(id string, read func() (any, error)) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("an exercise id is required")
	}
	return read()
}
