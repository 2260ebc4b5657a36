package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/inference"
	"github.com/abhisek/atrisk/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored predictions and the current model's evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		total, untrained, err := s.StudentRepo().Counts(ctx)
		if err != nil {
			return fmt.Errorf("count students: %w", err)
		}
		ps, err := s.PredictionRepo().Stats(ctx)
		if err != nil {
			return fmt.Errorf("prediction stats: %w", err)
		}

		fmt.Println("Students")
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("%-24s %d\n", "Recorded", total)
		fmt.Printf("%-24s %d\n", "Not yet trained on", untrained)

		fmt.Println()
		fmt.Println("Predictions")
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("%-24s %d\n", "Total", ps.Total)
		fmt.Printf("%-24s %d\n", "At risk", ps.Risk)
		fmt.Printf("%-24s %.1f%%\n", "Average confidence", ps.AvgConfidence)
		for _, t := range []inference.Tier{inference.TierHigh, inference.TierMedium, inference.TierLow} {
			fmt.Printf("  %-22s %d\n", t, ps.ByLevel[string(t)])
		}

		return printModelReports(modelsDir())
	},
}

func printModelReports(dir artifact.Dir) error {
	rows, err := dir.ReadComparison()
	if errors.Is(err, artifact.ErrModelNotTrained) {
		fmt.Println("\nNo model trained yet.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Model comparison")
	fmt.Println(strings.Repeat("─", 72))
	fmt.Printf("%-22s  %8s  %8s  %8s  %8s  %8s\n", "Model", "Accuracy", "Recall", "F1", "ROC AUC", "CV std")
	fmt.Println(strings.Repeat("─", 72))
	for _, r := range rows {
		name := r.Model
		if r.Selected {
			name += " *"
		}
		fmt.Printf("%-22s  %8.3f  %8.3f  %8.3f  %8.3f  %8.3f\n",
			name, r.Metrics.Accuracy, r.Metrics.Recall, r.Metrics.F1, r.Metrics.ROCAUC, r.Metrics.CVStd)
	}

	imp, err := dir.ReadImportance()
	if err != nil {
		if errors.Is(err, artifact.ErrModelNotTrained) {
			return nil
		}
		return err
	}
	fmt.Println()
	fmt.Println("Feature importance")
	fmt.Println(strings.Repeat("─", 72))
	for _, r := range imp {
		fmt.Printf("%-22s  %.4f  %s\n", r.Feature, r.Score, strings.Repeat("█", int(r.Score*100)))
	}
	return nil
}

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Inspect stored students",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored students, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		onlyUntrained, _ := cmd.Flags().GetBool("untrained")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		var students []store.Student
		if onlyUntrained {
			students, err = s.StudentRepo().Untrained(ctx)
		} else {
			students, err = s.StudentRepo().List(ctx, store.QueryOpts{Limit: limit})
		}
		if err != nil {
			return fmt.Errorf("query students: %w", err)
		}
		if len(students) == 0 {
			fmt.Println("No students found.")
			return nil
		}

		fmt.Printf("%-5s  %-16s  %6s  %6s  %6s  %5s  %6s  %7s\n",
			"ID", "Created", "Attend", "Stress", "Work", "GPA", "Intent", "Trained")
		fmt.Println(strings.Repeat("─", 72))
		for _, st := range students {
			v := st.Record.Values
			intent := "-"
			if st.HasRealAnswer {
				intent = fmt.Sprint(st.Record.Label)
			}
			trained := ""
			if st.IsTrained {
				trained = "✓"
			}
			fmt.Printf("%-5d  %-16s  %6.0f  %6.0f  %6.0f  %5.1f  %6s  %7s\n",
				st.ID, st.CreatedAt.Local().Format("2006-01-02 15:04"),
				v[features.IdxAttendance], v[features.IdxStress], v[features.IdxWork], v[features.IdxGPA],
				intent, trained)
		}
		return nil
	},
}

func init() {
	studentsListCmd.Flags().IntP("limit", "n", 20, "Number of students to show")
	studentsListCmd.Flags().Bool("untrained", false, "Only students not yet used for training")
	studentsCmd.AddCommand(studentsListCmd)
}
