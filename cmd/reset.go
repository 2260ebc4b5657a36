package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the database of stored students and predictions",
	Long: `Delete the database of stored students, predictions and LLM events.

The training dataset and trained models are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath()
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Printf("This deletes %s. Re-run with --yes to confirm.\n", dbPath)
			return nil
		}
		removed := 0
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			err := os.Remove(p)
			switch {
			case err == nil:
				removed++
			case !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}
		if removed == 0 {
			fmt.Println("Nothing to reset.")
			return nil
		}
		logger.Info().Str("db", dbPath).Msg("database reset")
		fmt.Printf("Deleted %s\n", dbPath)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
