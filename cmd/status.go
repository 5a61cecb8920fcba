package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rotwatch.dev/pkg/rotwatch/internal/adapter"
)

// statusCmd represents the status command.
var statusCmd = newStatusCmd()

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [path]",
		Short: "Show ledger location and record count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := scanRoot(args)
			dbPath := ledgerPath(root)

			ledger, err := adapter.OpenLedger(dbPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}

			defer func() {
				if closeErr := ledger.Close(); closeErr != nil {
					slog.Error("failed to close ledger", "error", closeErr)
				}
			}()

			count, err := ledger.Count(context.Background())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
			table.Append([]string{"ledger", dbPath})
			table.Append([]string{"records", strconv.Itoa(count)})
			table.Append([]string{"hash algorithm", viper.GetString(hashAlgorithmKey)})
			table.Render()

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
