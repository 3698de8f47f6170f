// Command intrinseco extracts financial statements from annual reports and
// keeps the derived figures per ticker and period.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"intrinseco/pkg/core/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
