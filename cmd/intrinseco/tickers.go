package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intrinseco/pkg/api/chunks"
	"intrinseco/pkg/core/store"
)

var (
	tickersPage     int
	tickersPageSize int
	tickersPrice    float64
	tickersJSON     bool
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Manage stored finances",
	Long:  `Lists, shows and deletes the figures stored per ticker and period.`,
}

var tickersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tickers",
	Args:  cobra.NoArgs,
	RunE:  runTickersList,
}

var tickersShowCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Show the derived figures of a ticker",
	Long: `Shows every stored period of a ticker with its derived ratios and the
change against the same period one year earlier. With --price the market
multiples and value score are computed too.`,
	Args: cobra.ExactArgs(1),
	RunE: runTickersShow,
}

var tickersDeleteCmd = &cobra.Command{
	Use:   "delete [ticker] [period]",
	Short: "Delete a ticker or one of its periods",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTickersDelete,
}

func init() {
	tickersListCmd.Flags().IntVar(&tickersPage, "page", 0, "page number, starting at 0")
	tickersListCmd.Flags().IntVar(&tickersPageSize, "page-size", store.DefaultPageSize, "tickers per page")
	tickersListCmd.Flags().BoolVar(&tickersJSON, "json", false, "output as JSON")
	tickersShowCmd.Flags().Float64Var(&tickersPrice, "price", 0, "share price for the market multiples")
	tickersShowCmd.Flags().BoolVar(&tickersJSON, "json", false, "output as JSON")

	tickersCmd.AddCommand(tickersListCmd, tickersShowCmd, tickersDeleteCmd)
	rootCmd.AddCommand(tickersCmd)
}

func runTickersList(cmd *cobra.Command, args []string) error {
	repo, err := openRepository(cmd.Context())
	if err != nil {
		return err
	}
	count, err := repo.CountTickers(cmd.Context())
	if err != nil {
		return err
	}
	list, err := repo.ListTickers(cmd.Context(), tickersPage, tickersPageSize)
	if err != nil {
		return err
	}

	if tickersJSON {
		return printJSON(cmd, chunks.TickersResponse{Count: count, Page: max(tickersPage, 0), Tickers: list})
	}
	if len(list) == 0 {
		cmd.Println("No tickers stored.")
		return nil
	}
	cmd.Printf("%d tickers\n", count)
	for _, t := range list {
		cmd.Printf("  %-8s %s\n", t.Ticker, strings.Join(t.Periods, ", "))
	}
	return nil
}

func runTickersShow(cmd *cobra.Command, args []string) error {
	if tickersPrice < 0 {
		return fmt.Errorf("price must be positive, got %v", tickersPrice)
	}
	repo, err := openRepository(cmd.Context())
	if err != nil {
		return err
	}
	stored, err := repo.GetTicker(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	resp := chunks.NewTickerResponse(args[0], stored, tickersPrice)
	if tickersJSON {
		return printJSON(cmd, resp)
	}

	cmd.Println(resp.Ticker)
	for _, period := range resp.Periods {
		d := resp.Data[period]
		cmd.Println()
		cmd.Printf("[%s]\n", period)
		printFigure(cmd, "total assets", d.TotalAssets)
		printFigure(cmd, "total liabilities", d.TotalLiabilities)
		printFigure(cmd, "equity", d.Equity)
		printFigure(cmd, "revenue", d.Revenue)
		printFigure(cmd, "net income", d.NetIncome)
		printFigure(cmd, "liquidity", d.Liquidity)
		printFigure(cmd, "leverage", d.Leverage)
		printFigure(cmd, "roe", d.ROE)
		if changes, ok := resp.Changes[period]; ok {
			printFigure(cmd, "revenue change %", changes["revenue_change"])
			printFigure(cmd, "net income change %", changes["net_income_change"])
		}
		if r, ok := resp.Ratios[period]; ok {
			printFigure(cmd, "per", r.PER)
			printFigure(cmd, "p/bv", r.PBV)
			printFigure(cmd, "ev/cfo", r.EVCFO)
			printFigure(cmd, "score", r.Score)
		}
	}
	return nil
}

func printFigure(cmd *cobra.Command, label string, v *float64) {
	if v == nil {
		cmd.Printf("  %-22s -\n", label)
		return
	}
	cmd.Printf("  %-22s %v\n", label, *v)
}

func runTickersDelete(cmd *cobra.Command, args []string) error {
	repo, err := openRepository(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) == 2 {
		if err := repo.DeletePeriod(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s %s\n", strings.ToUpper(args[0]), args[1])
		return nil
	}
	if err := repo.DeleteTicker(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted %s\n", strings.ToUpper(args[0]))
	return nil
}
