package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cctvstore/backend/internal/quotation"
)

func newBOMCommand(opts *options) *cobra.Command {
	var (
		configPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "bom",
		Short: "List the bill of materials for a kit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := readConfiguration(configPath)
			if err != nil {
				return err
			}
			table, err := opts.loadTable(cmd.Context())
			if err != nil {
				return err
			}
			q, err := quotation.NewEvaluator(quotation.Lenient).Quote(cfg, table)
			if err != nil {
				return err
			}
			lines := quotation.AttachKitPrice(quotation.GenerateBOM(cfg), q.Total)

			switch strings.ToLower(format) {
			case "json":
				return writeJSON(cmd, lines)
			case "text", "":
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "MODEL\tQTY\tDESCRIPTION\tPRICE")
				for _, line := range lines {
					price := ""
					if line.TotalPrice != 0 {
						price = fmt.Sprintf("%d", line.TotalPrice)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", line.Model, line.Qty, line.Description, price)
				}
				return w.Flush()
			default:
				return fmt.Errorf("unknown format %q (text, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "kit configuration JSON file")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}
