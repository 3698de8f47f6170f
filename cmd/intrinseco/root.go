package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intrinseco/pkg/core/agent"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/config"
	"intrinseco/pkg/core/extract"
	"intrinseco/pkg/core/ingest"
	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/normalize"
	"intrinseco/pkg/core/prompt"
	"intrinseco/pkg/core/store"
	"intrinseco/pkg/core/utils"
)

var (
	configPath string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "intrinseco",
	Short: "Extract financial statements from annual reports",
	Long: `Normalizes annual reports (PDF, HTML, MHTML or text), locates the
balance sheet, income statement and cash-flow statement, extracts their
figures with an LLM and keeps the derived ratios per ticker and period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return fmt.Errorf("failed to initialise logging: %w", err)
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func newLoader() *ingest.Loader {
	return ingest.NewLoader(normalize.New())
}

// newDispatcher starts a dispatcher from the loaded configuration. The caller
// closes it.
func newDispatcher() (*chunker.Dispatcher, error) {
	indicators, err := cfg.BuildIndicators()
	if err != nil {
		return nil, err
	}
	return chunker.NewDispatcher(cfg.ScanParameters(), indicators, chunker.WithWorkers(cfg.Scan.Workers))
}

func newManager() *agent.Manager {
	return agent.NewManager(cfg.Config)
}

func newExtractor(mgr *agent.Manager) (*extract.Extractor, error) {
	registry := prompt.NewRegistry()
	if cfg.PromptsDir != "" {
		if err := registry.LoadFromDirectory(cfg.PromptsDir); err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
	}
	return extract.New(mgr, registry, extract.WithDumpWriter(utils.NewDumpWriter(cfg.DumpDir))), nil
}

// openRepository connects to Postgres when a database URL is configured and
// falls back to the file store under the cache directory.
func openRepository(ctx context.Context) (store.Repository, error) {
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logging.Named("cli").Debug("using postgres repository")
	}
	dir := filepath.Join(cfg.CacheDir, "finances")
	repo, err := store.NewRepository(ctx, store.GetPool(), dir)
	if err != nil {
		return nil, err
	}
	if store.GetPool() == nil {
		logging.Named("cli").Debug("using file repository", zap.String("dir", dir))
	}
	return repo, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
