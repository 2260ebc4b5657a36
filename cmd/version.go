package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/atrisk/internal/artifact"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func init() {
	if version != "(devel)" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("atrisk", version)
		fmt.Println("model format", artifact.FormatVersion)
	},
}
