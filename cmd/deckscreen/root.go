package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/deckscreen/internal/config"
)

var (
	envFile    string
	policyFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "deckscreen",
	Short: "Pre-screen presentation decks before submission",
	Long: `deckscreen checks a deck against the submission policy: format, file size and
slide count rules, then a per-slide vision review of title slide, bullet points,
images and presentation best practices.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// stdout carries the report.
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if policyFile != "" {
			if err := os.Setenv("POLICY_FILE", policyFile); err != nil {
				return fmt.Errorf("set POLICY_FILE: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load if present")
	rootCmd.PersistentFlags().StringVarP(&policyFile, "policy", "p", "", "YAML policy file (overrides POLICY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
