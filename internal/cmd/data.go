package cmd

import (
	"fmt"

	"github.com/rewired-gh/sense/internal/attachment"
	"github.com/rewired-gh/sense/internal/transfer"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var outPath string

	c := &cobra.Command{
		Use:   "export",
		Short: "Export all data to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := a.tracker.Export()
			if outPath == "" {
				outPath = transfer.Filename(data.ExportedAt)
			}
			if err := transfer.WriteFile(outPath, data); err != nil {
				return err
			}
			size, err := transfer.Size(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d forecasts to %s (%s)\n",
				len(data.Forecasts), outPath, transfer.FormatSize(int64(size)))
			return nil
		},
	}
	c.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: sense-export-YYYY-MM-DD.json)")
	return c
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace data with the contents of an export file",
		Long: `Replace data with the contents of an export file. Each part present in the
file (forecasts, profile, weights) replaces the current one; nothing is merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := transfer.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.Import(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d forecasts from %s\n", len(data.Forecasts), args[0])
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "clear",
		Short: "Delete all forecasts, the profile and custom weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear all data without --yes")
			}
			if err := a.tracker.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "Confirm deleting everything")
	return c
}

func newUsageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show how much storage the data uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			used, err := a.tracker.StorageUsage()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Storage: %s of %s (%.1f%%)\n",
				transfer.FormatSize(used),
				transfer.FormatSize(attachment.QuotaBytes),
				float64(used)/float64(attachment.QuotaBytes)*100)
			return nil
		},
	}
}
