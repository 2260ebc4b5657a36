package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/augment"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <survey.csv>",
	Short: "Convert a raw survey export into the training dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, rep, err := normalizeSurvey(cmd, args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = cfg.DataPath
		}
		if err := dataset.WriteFile(out, ds); err != nil {
			return err
		}
		printReport(rep)
		fmt.Printf("Wrote %d rows to %s\n", ds.Len(), out)
		return nil
	},
}

var appendCmd = &cobra.Command{
	Use:   "append <survey.csv>",
	Short: "Normalize a survey export and append it to the dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, rep, err := normalizeSurvey(cmd, args[0])
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetString("target")
		if target == "" {
			target = cfg.DataPath
		}
		combined, err := dataset.AppendFile(target, ds.Records)
		if err != nil {
			return err
		}
		printReport(rep)
		fmt.Printf("Appended %d rows to %s (%d total)\n", ds.Len(), target, combined.Len())
		return nil
	},
}

var augmentCmd = &cobra.Command{
	Use:   "augment",
	Short: "Append synthetic students to the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		nRisk, _ := cmd.Flags().GetInt("risk")
		nNoRisk, _ := cmd.Flags().GetInt("no-risk")
		nJitter, _ := cmd.Flags().GetInt("jitter")
		tables, _ := cmd.Flags().GetStringSlice("archetypes")
		if nRisk < 0 || nNoRisk < 0 || nJitter < 0 {
			return fmt.Errorf("counts must not be negative")
		}

		aug, err := augment.New()
		if err != nil {
			return err
		}
		for _, path := range tables {
			t, err := augment.LoadTable(path)
			if err != nil {
				return err
			}
			aug.SetTable(t)
		}

		seed := cfg.Seed
		var recs []features.Record
		noRisk, err := aug.Generate(nNoRisk, features.NoRisk, seed)
		if err != nil {
			return err
		}
		risk, err := aug.Generate(nRisk, features.AtRisk, seed+1)
		if err != nil {
			return err
		}
		recs = append(append(recs, noRisk...), risk...)

		if nJitter > 0 {
			base, err := dataset.ReadFile(cfg.DataPath)
			if err != nil {
				return fmt.Errorf("jitter needs real records: %w", err)
			}
			jittered, err := augment.Jitter(base.Records, nJitter, features.AtRisk, seed+2)
			if err != nil {
				return err
			}
			recs = append(recs, jittered...)
		}

		combined, err := dataset.AppendFile(cfg.DataPath, recs)
		if err != nil {
			return err
		}
		noRiskTotal, riskTotal := combined.ClassCounts()
		logger.Info().
			Int("no_risk", len(noRisk)).
			Int("risk", len(risk)).
			Int("jitter", nJitter).
			Uint64("seed", seed).
			Msg("augmented dataset")
		fmt.Printf("Added %d synthetic rows to %s (%d total: %d no risk, %d at risk)\n",
			len(recs), cfg.DataPath, combined.Len(), noRiskTotal, riskTotal)
		return nil
	},
}

func normalizeSurvey(cmd *cobra.Command, path string) (*dataset.Dataset, normalize.Report, error) {
	m := normalize.DefaultMapping()
	if p, _ := cmd.Flags().GetString("mapping"); p != "" {
		var err error
		if m, err = normalize.LoadMapping(p); err != nil {
			return nil, normalize.Report{}, err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, normalize.Report{}, fmt.Errorf("open survey: %w", err)
	}
	defer f.Close()
	return normalize.Normalize(f, m)
}

func printReport(rep normalize.Report) {
	fmt.Printf("Mapping %s: read %d rows, kept %d, dropped %d without a label\n",
		rep.MappingVersion, rep.RowsRead, rep.RowsKept, rep.RowsDropped)
	if rep.Imputed > 0 {
		fmt.Printf("Imputed %d missing values with column means\n", rep.Imputed)
	}
	if rep.LabelsClamped > 0 {
		fmt.Printf("Clamped %d labels into 1-5\n", rep.LabelsClamped)
	}
	if len(rep.EmptyColumns) > 0 {
		fmt.Printf("No answers for %s; left blank\n", strings.Join(rep.EmptyColumns, ", "))
	}
	names := make([]string, 0, len(rep.ParseFailures))
	for name := range rep.ParseFailures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-22s %d unparsable\n", name, rep.ParseFailures[name])
	}
}

func init() {
	for _, c := range []*cobra.Command{normalizeCmd, appendCmd} {
		c.Flags().String("mapping", "", "Column mapping JSON file (default: built-in mapping)")
	}
	normalizeCmd.Flags().StringP("output", "o", "", "Output dataset path (default: configured data path)")
	appendCmd.Flags().String("target", "", "Dataset to append to (default: configured data path)")

	augmentCmd.Flags().Int("risk", 0, "Number of at-risk students to generate")
	augmentCmd.Flags().Int("no-risk", 0, "Number of no-risk students to generate")
	augmentCmd.Flags().Int("jitter", 0, "Number of at-risk students to derive from real at-risk rows")
	augmentCmd.Flags().StringSlice("archetypes", nil, "Archetype table JSON files replacing the built-in tables")
}
