package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intrinseco/pkg/core/chunker"
)

var (
	chunksMinHits int
	chunksStart   string
	chunksEnd     string
	chunksPreview int
	chunksJSON    bool
)

var chunksCmd = &cobra.Command{
	Use:   "chunks [file]",
	Short: "Locate the financial statements in a report",
	Long: `Scans the normalized report for the balance sheet, income statement and
cash-flow statement. English indicators are tried first; when any statement
has fewer than --min-hits matches the whole report is rescanned in Spanish.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().IntVar(&chunksMinHits, "min-hits", -1, "fallback threshold (default from configuration)")
	chunksCmd.Flags().StringVar(&chunksStart, "start-page", "", "first page to keep")
	chunksCmd.Flags().StringVar(&chunksEnd, "end-page", "", "last page to keep")
	chunksCmd.Flags().IntVar(&chunksPreview, "preview", 300, "characters of each chunk to print, 0 for all")
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "output the chunks as JSON")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	doc, err := newLoader().Load(cmd.Context(), args[0], chunksStart, chunksEnd)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	d, err := newDispatcher()
	if err != nil {
		return err
	}
	defer d.Close()

	minHits := chunksMinHits
	if minHits < 0 {
		minHits = cfg.MinHits
	}
	out, err := d.GetChunks(cmd.Context(), doc.Text, minHits)
	if err != nil {
		return err
	}

	if chunksJSON {
		return printJSON(cmd, out)
	}

	cmd.Printf("Language: %s\n", out.Language)
	for _, cat := range chunker.Categories {
		res := out.Result(cat)
		cmd.Println()
		cmd.Printf("[%s] %d hits: %s\n", cat, res.Hits, strings.Join(res.Indicators, ", "))
		cmd.Println(preview(res.Chunk, chunksPreview))
	}
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
