package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/config"
	"github.com/abhisek/atrisk/internal/logging"
	"github.com/abhisek/atrisk/internal/store"
)

var (
	cfg    *config.Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "atrisk",
	Short: "Student dropout-risk prediction",
	Long:  "atrisk trains dropout-risk models on student survey data and scores new students from the terminal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		logger, err = logging.Init(cfg.LogLevel, nil)
		return err
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides ATRISK_DB env var)")
	pf.String("data", "", "Path to the training dataset CSV")
	pf.String("models", "", "Directory holding trained models")
	pf.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR or DISABLED")
	pf.Uint64("seed", 0, "Random seed for training and augmentation")

	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(augmentCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(retrainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag or the db config
// key (highest priority), then ATRISK_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore opens the database at the resolved path.
func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func modelsDir() artifact.Dir {
	return artifact.NewDir(cfg.ModelsDir)
}
