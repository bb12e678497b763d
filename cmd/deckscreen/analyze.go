package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/deckscreen/internal/deck"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/services"
)

var (
	analyzeFormat    string
	analyzeImagesDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path|url>",
	Short: "Screen a deck and print the JSON report",
	Long: `Screen a local deck file or a Google Slides, Figma or Canva URL and print the
report as JSON. Slide images are kept under --images-dir unless SLIDE_IMAGES_BUCKET
or SLIDE_IMAGES_DIR is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "declared deck format (advisory)")
	analyzeCmd.Flags().StringVar(&analyzeImagesDir, "images-dir", "slide_images", "directory for rendered slide images")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if os.Getenv("SLIDE_IMAGES_BUCKET") == "" && os.Getenv("SLIDE_IMAGES_DIR") == "" {
		if err := os.Setenv("SLIDE_IMAGES_DIR", analyzeImagesDir); err != nil {
			return fmt.Errorf("set SLIDE_IMAGES_DIR: %w", err)
		}
	}

	source := args[0]
	if !deck.IsURL(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}
		source = abs
	}

	analyzer, err := services.NewAnalyzer(ctx)
	if err != nil {
		return err
	}
	resp, err := analyzer.Process(ctx, models.Submission{
		Source:         source,
		DeclaredFormat: analyzeFormat,
		ProcessingID:   uuid.NewString(),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
