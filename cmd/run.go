package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/quoter/internal/app"
	"github.com/mselser95/quoter/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the quoting engine",
	Long: `Starts the quoting engine, which will:
1. Authenticate against the exchange and open the order-book/fill stream
2. Derive theo prices for every registered match from external odds
3. Continuously reconcile resting orders on all four tradable legs
4. Rebalance quoting toward breakeven once an inventory cap is reached

Use --dry-run to log placements and cancellations instead of sending
them to the exchange.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "log order placements/cancellations instead of sending them to the exchange")
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	application, err := app.New(cfg, logger, app.Options{DryRun: dryRun})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
