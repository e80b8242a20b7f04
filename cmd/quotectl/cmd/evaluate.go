package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/quotation"
)

type quoteOutput struct {
	Total        int64              `json:"total"`
	TotalCameras int                `json:"total_cameras"`
	Terms        []domain.QuoteTerm `json:"terms"`
	Missing      []string           `json:"missing,omitempty"`
}

func newEvaluateCommand(opts *options) *cobra.Command {
	var (
		configPath string
		strict     bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Price a kit configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, cfg, err := readConfiguration(configPath)
			if err != nil {
				return err
			}
			table, err := opts.loadTable(cmd.Context())
			if err != nil {
				return err
			}

			mode := quotation.Lenient
			if strict || req.Strict {
				mode = quotation.Strict
			}
			q, err := quotation.NewEvaluator(mode).Quote(cfg, table)
			if err != nil {
				return err
			}

			out := quoteOutput{Total: q.Total, TotalCameras: q.TotalCameras, Missing: q.Missing}
			for _, term := range q.Terms {
				out.Terms = append(out.Terms, domain.QuoteTerm{Name: term.Name, Amount: term.Amount.String()})
			}

			switch strings.ToLower(format) {
			case "json":
				return writeJSON(cmd, out)
			case "text", "":
				return printQuote(cmd, out)
			default:
				return fmt.Errorf("unknown format %q (text, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "kit configuration JSON file")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the table does not price an option")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}

func printQuote(cmd *cobra.Command, out quoteOutput) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, term := range out.Terms {
		fmt.Fprintf(w, "%s\t%s\t\n", term.Name, term.Amount)
	}
	fmt.Fprintf(w, "TOTAL\t%d\t\n", out.Total)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cameras: %d\n", out.TotalCameras)
	if len(out.Missing) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "unpriced: %s\n", strings.Join(out.Missing, ", "))
	}
	return nil
}
