package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/deckscreen/internal/deck"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path|url>",
	Short: "Print the deck format a source resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), deck.Resolve(args[0]))
		return err
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
