package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goship",
		Short: "Goship: clone, build, and deploy pipeline",
		Long:  "Goship accepts repository submissions over HTTP, builds them on queue workers, and serves the published output from object storage.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServerCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newSyncCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "goship %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	godotenv.Load()
	os.Exit(execute(newRootCmd()))
}
