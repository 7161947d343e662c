package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "quoter",
	Short: "Binary-event exchange quoting engine",
	Long: `quoter continuously posts resting buy orders on both outcome
legs of two-sided event markets, derives theo from external sportsbook
odds, and rebalances inventory via breakeven-priced quotes on the
opposite side whenever one leg's position cap is reached.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
