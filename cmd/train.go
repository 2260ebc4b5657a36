package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train [dataset.csv]",
	Short: "Train and compare models, saving the best one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.DataPath
		if len(args) == 1 {
			path = args[0]
		}
		ds, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := pipeline(cmd).Run(cmd.Context(), ds, modelsDir())
		if err != nil {
			return err
		}
		printTraining(res)
		return nil
	},
}

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Retrain on the dataset plus students recorded since the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := pipeline(cmd).Retrain(cmd.Context(), cfg.DataPath, modelsDir(), s.StudentRepo(), nil)
		if err != nil {
			return err
		}
		printTraining(res.Result)
		fmt.Printf("Merged %d stored students (%d duplicates dropped); dataset now has %d rows\n",
			res.FromStore, res.Duplicates, res.Total)
		return nil
	},
}

func pipeline(cmd *cobra.Command) *training.Pipeline {
	tc := training.DefaultConfig()
	tc.Seed = cfg.Seed
	if n, _ := cmd.Flags().GetInt("trees"); n > 0 {
		tc.ForestTrees = n
	}
	if k, _ := cmd.Flags().GetInt("folds"); k > 0 {
		tc.CVFolds = k
	}
	return training.New(tc, logger)
}

func printTraining(res *training.Result) {
	fmt.Printf("Trained on %d rows (%d train, %d test, %d after balancing)\n\n",
		res.Rows, res.TrainRows, res.TestRows, res.BalancedRows)

	fmt.Printf("  %-22s  %8s  %8s  %8s  %8s  %8s  %13s\n",
		"Model", "Accuracy", "Recall", "F1", "ROC AUC", "CV mean", "")
	fmt.Println(strings.Repeat("─", 90))
	for i, m := range res.Models {
		mark := ""
		if i == res.Selected {
			mark = "← selected"
		}
		fmt.Printf("  %-22s  %8.3f  %8.3f  %8.3f  %8.3f  %8.3f  %s\n",
			m.Name, m.Metrics.Accuracy, m.Metrics.Recall, m.Metrics.F1,
			m.Metrics.ROCAUC, m.Metrics.CVMean, mark)
	}

	if len(res.Importance) > 0 {
		fmt.Println()
		fmt.Println("Top features")
		for _, imp := range res.Importance[:min(5, len(res.Importance))] {
			fmt.Printf("  %-22s  %.3f\n", imp.Feature, imp.Score)
		}
	}
	fmt.Printf("\nSaved to %s (run %s)\n", cfg.ModelsDir, res.RunID)
}

func init() {
	for _, c := range []*cobra.Command{trainCmd, retrainCmd} {
		c.Flags().Int("trees", 0, "Number of trees in the random forest (default 100)")
		c.Flags().Int("folds", 0, "Cross-validation folds (default 10)")
	}
}
