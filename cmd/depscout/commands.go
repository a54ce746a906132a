// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"

	"github.com/AleutianAI/depscout/pkg/logging"
	"github.com/spf13/cobra"
)

var logger = logging.Default()

// --- Global Command Variables ---
var (
	serverURL           string
	verbose             bool
	pythonVersion       string
	suggestAlternatives bool
	excludeDeprecated   bool
	waitForResult       bool
	waitTimeoutSecs     int
	pollIntervalSecs    int
	outputPath          string

	rootCmd = &cobra.Command{
		Use:   "depscout",
		Short: "A cli to analyze Python dependency lists against the DepScout resolver",
		Long: `DepScout submits requirement lists to the resolver service,
				polls for the finished analysis, and prints the resolved
				manifest with deprecation warnings and conflicts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelWarn
			if verbose {
				level = logging.LevelDebug
			}
			logger = logging.New(logging.Config{
				Level:   level,
				LogDir:  os.Getenv("DEPSCOUT_LOG_DIR"),
				Service: "cli",
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
	}

	// --- Resolutions ---
	submitCmd = &cobra.Command{
		Use:   "submit [requirement...]",
		Short: "Submit requirements (e.g. \"pandas>=1.3.0\") for analysis",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSubmit, // Defined in cmd_resolutions.go
	}

	statusCmd = &cobra.Command{
		Use:   "status [job_id]",
		Short: "Show the current state of a submitted analysis job",
		Args:  cobra.ExactArgs(1),
		Run:   runStatus, // Defined in cmd_resolutions.go
	}

	manifestCmd = &cobra.Command{
		Use:   "manifest [job_id]",
		Short: "Print the resolved requirements manifest of a completed job",
		Args:  cobra.ExactArgs(1),
		Run:   runManifest, // Defined in cmd_resolutions.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		getEnvString("DEPSCOUT_SERVER_URL", "http://localhost:12310"),
		"Base URL of the resolver service")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	submitCmd.Flags().StringVar(&pythonVersion, "python-version", "",
		"Target Python version (default: server default)")
	submitCmd.Flags().BoolVar(&suggestAlternatives, "suggest-alternatives", false,
		"Ask the AI advisor for replacement suggestions on deprecated packages")
	submitCmd.Flags().BoolVar(&excludeDeprecated, "exclude-deprecated", false,
		"Leave deprecated packages out of the resolved manifest")
	submitCmd.Flags().BoolVar(&waitForResult, "wait", false,
		"Poll until the job finishes and print the report")
	submitCmd.Flags().IntVar(&waitTimeoutSecs, "timeout", 300,
		"Seconds to poll before giving up (with --wait)")
	submitCmd.Flags().IntVar(&pollIntervalSecs, "interval", 2,
		"Seconds between polls (with --wait)")

	manifestCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the manifest to a file instead of stdout")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(manifestCmd)
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
