package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"callsight/internal/logger"
)

func main() {
	_ = godotenv.Load() // loads .env

	root := &cobra.Command{
		Use:           "callsight",
		Short:         "Call-center transcript sync, AI analysis, and agent reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSyncCmd(),
		newImportCmd(),
		newAnalyzeCmd(),
		newReportCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		logger.New().WithError(err).Error("command failed")
		os.Exit(1)
	}
}
