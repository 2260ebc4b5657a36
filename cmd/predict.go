package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abhisek/atrisk/internal/advisor"
	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/inference"
)

const notTrainedHint = "no trained model found; run `atrisk train` first"

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score one student",
	Long: `Score one student given as flags or a JSON file.

Missing features are filled with the mean of the given ones, unless --save
is set, which requires every feature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := studentValues(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")
		advise, _ := cmd.Flags().GetBool("advise")
		asJSON, _ := cmd.Flags().GetBool("json")

		var (
			res     *inference.Result
			student features.Student
		)
		v, complete := completeVector(values)
		switch {
		case complete:
			student = features.StudentFromRecord(features.Record{Values: v})
			if intent, _ := cmd.Flags().GetInt("intent"); intent != 0 {
				student.IntentToQuit = intent
			}
			res, err = predictStudent(cmd, student, save)
		case save:
			return fmt.Errorf("--save needs every feature; missing %s", strings.Join(v.MissingFeatures(), ", "))
		default:
			res, err = predictPartial(values)
		}
		if err != nil {
			return err
		}

		var note *advisor.Note
		if advise {
			note, err = adviseOn(cmd, v, res)
			if err != nil {
				logger.Warn().Err(err).Msg("advisor note failed")
			}
		}

		if asJSON {
			return printJSON(struct {
				*inference.Result
				Note *advisor.Note `json:"advisor_note,omitempty"`
			}{res, note})
		}
		printResult(res)
		if note != nil {
			fmt.Println()
			fmt.Println("Advisor note")
			fmt.Println(strings.Repeat("─", 60))
			fmt.Print(note.Render())
		}
		return nil
	},
}

var predictBatchCmd = &cobra.Command{
	Use:   "batch <students.csv>",
	Short: "Score every row of a dataset CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := loadService()
		if err != nil {
			return err
		}
		rows, err := svc.PredictFile(args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if err := inference.WriteBatchFile(out, rows); err != nil {
			return err
		}
		sum := inference.Summarize(rows)
		fmt.Printf("Scored %d rows (%d failed): %d at risk, %d high, %d medium, %d low\n",
			sum.Total, sum.Failed, sum.AtRisk,
			sum.Tiers[inference.TierHigh], sum.Tiers[inference.TierMedium], sum.Tiers[inference.TierLow])
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Estimate next semester's GPA from study habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := studentValues(cmd)
		if err != nil {
			return err
		}
		v, _ := completeVector(values)
		f := inference.ForecastGPA(v)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(f)
		}
		fmt.Printf("GPA %.2f → %.2f (%+.2f, %s)\n", f.Current, f.Predicted, f.Delta, f.Trend)
		return nil
	},
}

func featureFlag(spec features.Spec) string {
	return strings.ReplaceAll(string(spec.Name), "_", "-")
}

func addFeatureFlags(fs *pflag.FlagSet) {
	for _, spec := range features.All() {
		fs.Float64(featureFlag(spec), 0, fmt.Sprintf("%s [%g-%g]", spec.Prompt, spec.Min, spec.Max))
	}
	fs.StringP("input", "i", "", "JSON file with the student's features")
	fs.Bool("json", false, "Print JSON instead of text")
}

// studentValues collects features from --input and any feature flags;
// flags win.
func studentValues(cmd *cobra.Command) (map[string]float64, error) {
	values := map[string]float64{}
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("parse input: %w", err)
		}
	}
	for _, spec := range features.All() {
		name := featureFlag(spec)
		if cmd.Flags().Changed(name) {
			x, _ := cmd.Flags().GetFloat64(name)
			values[string(spec.Name)] = x
		}
	}
	if len(values) == 0 {
		return nil, errors.New("no features given; use flags such as --attendance-pct or --input")
	}
	return values, nil
}

// completeVector maps named values onto a vector; missing ones stay NaN.
func completeVector(values map[string]float64) (features.Vector, bool) {
	v := features.Missing()
	for k, x := range values {
		if i, ok := features.Index(k); ok {
			v[i] = x
		}
	}
	return v, len(v.MissingFeatures()) == 0
}

func loadService() (*inference.Service, error) {
	svc, err := inference.Load(modelsDir(), "")
	if errors.Is(err, artifact.ErrModelNotTrained) {
		return nil, fmt.Errorf("%s: %w", notTrainedHint, err)
	}
	return svc, err
}

func predictStudent(cmd *cobra.Command, st features.Student, save bool) (*inference.Result, error) {
	if !save {
		svc, err := loadService()
		if err != nil {
			return nil, err
		}
		return svc.PredictStudent(st)
	}
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out, err := assessment.New(modelsDir(), s.StudentRepo(), s.PredictionRepo(), logger).Assess(cmd.Context(), st, true)
	if err != nil {
		return nil, err
	}
	if out.NotTrained {
		fmt.Fprintf(os.Stderr, "Saved student #%d.\n", out.StudentID)
		return nil, errors.New(notTrainedHint)
	}
	fmt.Fprintf(os.Stderr, "Saved student #%d with prediction.\n", out.StudentID)
	return out.Result, nil
}

// predictPartial scores a record with missing features; they are imputed
// from the given ones.
func predictPartial(values map[string]float64) (*inference.Result, error) {
	svc, err := loadService()
	if err != nil {
		return nil, err
	}
	v, _ := completeVector(values)
	return svc.Predict(v)
}

func adviseOn(cmd *cobra.Command, v features.Vector, res *inference.Result) (*advisor.Note, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	svc, err := newAdvisor(cmd.Context(), s.EventRepo(), logger)
	if err != nil {
		return nil, err
	}
	return svc.Generate(cmd.Context(), advisor.Input{Values: v, Result: res})
}

func printResult(res *inference.Result) {
	fmt.Printf("%s  (at-risk probability %.1f%%)\n", res.Tier.Label(), res.Confidence)
	fmt.Println(res.Tier.Message())
	fmt.Println()
	for _, r := range res.Reasons {
		fmt.Println(r.String())
	}
	f := res.Forecast
	fmt.Printf("\nGPA forecast: %.2f → %.2f (%+.2f, %s)\n", f.Current, f.Predicted, f.Delta, f.Trend)
	if len(res.Imputed) > 0 {
		fmt.Printf("Imputed: %s\n", strings.Join(res.Imputed, ", "))
	}
	fmt.Printf("Model: %s (%s, trained %s)\n", res.Model, res.Variant, res.TrainedAt.Local().Format("2006-01-02 15:04"))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	addFeatureFlags(predictCmd.Flags())
	predictCmd.Flags().Int("intent", 0, "Answer to \"do you intend to quit\" (1-5), stored with --save")
	predictCmd.Flags().Bool("save", false, "Store the student and prediction in the database")
	predictCmd.Flags().Bool("advise", false, "Ask the configured LLM for an advisor note")

	predictBatchCmd.Flags().StringP("output", "o", inference.DefaultBatchOutput, "Output CSV path")
	predictCmd.AddCommand(predictBatchCmd)

	addFeatureFlags(forecastCmd.Flags())
}
