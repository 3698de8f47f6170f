package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	normalizeStart  string
	normalizeEnd    string
	normalizeOutput string
	normalizeJSON   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Convert a report to plain text",
	Long: `Converts a PDF, HTML, MHTML or text report to the normalized plain text
the statement locator scans. Page bounds are 1-based and inclusive.`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeStart, "start-page", "", "first page to keep")
	normalizeCmd.Flags().StringVar(&normalizeEnd, "end-page", "", "last page to keep")
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "write the text to a file instead of stdout")
	normalizeCmd.Flags().BoolVar(&normalizeJSON, "json", false, "output the document as JSON")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	doc, err := newLoader().Load(cmd.Context(), args[0], normalizeStart, normalizeEnd)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	if normalizeJSON {
		return printJSON(cmd, doc)
	}
	if normalizeOutput != "" {
		if err := os.WriteFile(normalizeOutput, []byte(doc.Text), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", normalizeOutput, err)
		}
		cmd.Printf("Wrote %d characters to %s\n", len([]rune(doc.Text)), normalizeOutput)
		return nil
	}
	cmd.Println(doc.Text)
	return nil
}
