package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/advisor"
	"github.com/abhisek/atrisk/internal/app"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/llm"
	"github.com/abhisek/atrisk/internal/logging"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/store"
	"github.com/abhisek/atrisk/internal/training"
)

// runApp opens the store, builds dependencies, and launches the TUI. Logs
// go to a file beside the database so they do not draw over the screen.
func runApp(cmd *cobra.Command) error {
	dbPath, err := resolveDBPath()
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(dbPath), "atrisk.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	if logger, err = logging.Init(cfg.LogLevel, logFile); err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	intent, _ := cmd.Flags().GetBool("ask-intent")
	deps := screens.Deps{
		Assessor:    assessment.New(modelsDir(), st.StudentRepo(), st.PredictionRepo(), logger),
		Students:    st.StudentRepo(),
		Predictions: st.PredictionRepo(),
		AskIntent:   intent,
		Retrain: func(ctx context.Context) (*training.RetrainResult, error) {
			return pipeline(cmd).Retrain(ctx, cfg.DataPath, modelsDir(), st.StudentRepo(), nil)
		},
	}

	if svc, err := newAdvisor(cmd.Context(), st.EventRepo(), logger); err != nil {
		logger.Warn().Err(err).Msg("advisor notes unavailable")
	} else {
		deps.Advisor = svc
	}

	return app.Run(deps, version)
}

// newAdvisor builds the advisor note service from the LLM settings in the
// environment.
func newAdvisor(ctx context.Context, events store.EventRepo, logger zerolog.Logger) (*advisor.Service, error) {
	llmCfg, ok := llm.Resolve()
	if !ok {
		return nil, fmt.Errorf("no LLM provider configured (set %sLLM_PROVIDER and its API key)", llm.EnvPrefix)
	}
	provider, err := llm.NewProvider(ctx, llmCfg, events, logger)
	if err != nil {
		return nil, err
	}
	return advisor.NewService(provider, advisor.DefaultConfig()), nil
}

func init() {
	rootCmd.Flags().Bool("ask-intent", true, "Ask the optional intent-to-quit question so entries can be used for retraining")
}
