package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orders-service",
	Short: "Distributor orders service",
	Long: `Distributor orders service managing the sales order lifecycle.

Functions:
- Capture draft orders from the API and the ordering portal webhook
- Confirm orders with folio assignment and delivery date scheduling
- Close the day: deduct warehouse inventory and archive closed orders
- Queue printable order notes and delivery summaries`,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}
