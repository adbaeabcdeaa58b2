package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/coachtrack/internal/models"
	"github.com/claude/coachtrack/internal/nutrition"
)

func today() string { return time.Now().Format(time.DateOnly) }

// NewLogCommand groups the write commands. Writes made offline are queued.
func NewLogCommand() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Log weight, meals and measurements",
	}
	logCmd.AddCommand(newLogWeightCommand(), newLogMealCommand(), newLogMeasurementsCommand())
	return logCmd
}

func newLogWeightCommand() *cobra.Command {
	var unit, date string
	cmd := &cobra.Command{
		Use:   "weight <value>",
		Short: "Log a weigh-in",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			w, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("weight %q is not a number", args[0])
			}
			p := models.WeightLogPayload{Date: date, Weight: w, Unit: unit}
			if err := e.app.Progress.LogWeight(ctx, p); err != nil {
				return err
			}
			if unit == "" {
				unit = e.app.Progress.DefaultUnit()
			}
			reportWrite(cmd, e, fmt.Sprintf("Logged %g %s for %s.", w, unit, date))
			return nil
		}),
	}
	cmd.Flags().StringVar(&unit, "unit", "", "kg or lb (default: the unit of your history)")
	cmd.Flags().StringVar(&date, "date", today(), "date of the weigh-in")
	return cmd
}

func newLogMealCommand() *cobra.Command {
	var (
		date, label, notes string
		adherence          float64
		foods              []string
	)
	cmd := &cobra.Command{
		Use:   "meal <meal-number> <completed|modified|partial|skipped>",
		Short: "Log a meal from today's plan",
		Long: `Logs one planned meal. Logging the same meal again replaces the earlier log.
Foods are given as --food "name=grams" (cooked weight) and their macros are
looked up in the food catalog.`,
		Args: cobra.ExactArgs(2),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("meal number %q is not an integer", args[0])
			}
			p := models.MealLogPayload{
				Date:       date,
				MealNumber: number,
				MealLabel:  label,
				Status:     strings.ToUpper(args[1]),
				Adherence:  adherence,
			}
			if notes != "" {
				p.Notes = &notes
			}
			if !cmd.Flags().Changed("adherence") && p.Status == models.MealSkipped {
				p.Adherence = 0
			}
			for _, arg := range foods {
				f, err := lookupFood(ctx, e, arg)
				if err != nil {
					return err
				}
				p.Foods = append(p.Foods, f)
			}

			if err := e.app.Nutrition.LogMeal(ctx, p); err != nil {
				return err
			}
			reportWrite(cmd, e, fmt.Sprintf("Logged meal %d as %s.", number, p.Status))
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", today(), "date of the meal")
	cmd.Flags().StringVar(&label, "label", "", "meal label")
	cmd.Flags().StringVar(&notes, "notes", "", "notes for your coach")
	cmd.Flags().Float64Var(&adherence, "adherence", 100, "adherence percentage")
	cmd.Flags().StringArrayVar(&foods, "food", nil, `food eaten as "name=grams", repeatable`)
	return cmd
}

// lookupFood resolves "name=grams" against the catalog and fills in macros.
func lookupFood(ctx context.Context, e *env, arg string) (models.MealLogFood, error) {
	name, grams, ok := strings.Cut(arg, "=")
	if !ok {
		return models.MealLogFood{}, fmt.Errorf("food %q: want name=grams", arg)
	}
	g, err := strconv.ParseFloat(strings.TrimSpace(grams), 64)
	if err != nil || g <= 0 {
		return models.MealLogFood{}, fmt.Errorf("food %q: grams must be a positive number", arg)
	}
	name = strings.TrimSpace(name)
	out := models.MealLogFood{FoodName: name, GramsActual: g}

	results, err := e.app.Client.SearchFoods(ctx, name)
	if err != nil {
		e.log.Warn("food search failed, logging without macros", "food", name, "error", err)
		return out, nil
	}
	for _, r := range results {
		if !strings.EqualFold(r.Name, name) {
			continue
		}
		m := nutrition.CalculateMacros(r, g)
		out.FoodID = r.ID
		out.Protein, out.Carbs, out.Fat, out.Calories = &m.Protein, &m.Carbs, &m.Fat, &m.Calories
		return out, nil
	}
	e.log.Warn("food not in catalog, logging without macros", "food", name)
	return out, nil
}

func newLogMeasurementsCommand() *cobra.Command {
	var date string
	sites := []string{"chest", "waist", "hips", "left-arm", "right-arm", "left-thigh", "right-thigh", "left-calf", "right-calf", "neck", "shoulders"}
	values := make(map[string]*float64, len(sites))

	cmd := &cobra.Command{
		Use:   "measurements",
		Short: "Log body measurements",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			set := func(site string) *float64 {
				if !cmd.Flags().Changed(site) {
					return nil
				}
				return values[site]
			}
			p := models.MeasurementPayload{
				Date:       date,
				Chest:      set("chest"),
				Waist:      set("waist"),
				Hips:       set("hips"),
				LeftArm:    set("left-arm"),
				RightArm:   set("right-arm"),
				LeftThigh:  set("left-thigh"),
				RightThigh: set("right-thigh"),
				LeftCalf:   set("left-calf"),
				RightCalf:  set("right-calf"),
				Neck:       set("neck"),
				Shoulders:  set("shoulders"),
			}
			if err := e.app.Progress.LogMeasurement(ctx, p); err != nil {
				return err
			}
			reportWrite(cmd, e, "Logged measurements for "+date+".")
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", today(), "date of the measurements")
	for _, site := range sites {
		values[site] = new(float64)
		cmd.Flags().Float64Var(values[site], site, 0, site+" measurement")
	}
	return cmd
}

func NewUploadPhotoCommand() *cobra.Command {
	var photoType string
	cmd := &cobra.Command{
		Use:   "upload-photo <file>",
		Short: "Upload a progress photo",
		Long:  "Uploads a progress photo of at most 10MB. Uploads need a connection and are never queued.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening photo: %w", err)
			}
			defer f.Close()

			photo, err := e.app.Progress.UploadPhoto(ctx, filepath.Base(args[0]), photoType, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s photo %s.\n", photo.PhotoType, photo.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&photoType, "type", "front", "front, side or back")
	return cmd
}

func NewCheckinCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Start today's check-in",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			if _, err := e.app.StartCheckin(ctx, date); err != nil {
				return err
			}
			reportWrite(cmd, e, "Check-in started for "+date+".")
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", today(), "check-in date")
	return cmd
}

// reportWrite prints msg and notes when the write is waiting in the queue.
func reportWrite(cmd *cobra.Command, e *env, msg string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, msg)
	if n := e.app.Queue.PendingCount(); n > 0 {
		fmt.Fprintf(out, "Offline: %d change(s) queued, run `coachtrack sync` when back online.\n", n)
	}
}
