// Package cmd provides the quotectl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/logging"
	"cctvstore/backend/internal/quotation"
)

const tableFetchTimeout = 10 * time.Second

// globals shared by the subcommands
type options struct {
	verbose  bool
	table    string
	tableURL string
	logger   *zap.Logger
}

// NewRootCommand builds the command tree. Each call returns a fresh tree.
func NewRootCommand() *cobra.Command {
	opts := &options{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Price CCTV kits offline",
		Long: `quotectl evaluates CCTV kit configurations against a price table.

Examples:
  quotectl evaluate --config kit.json
  quotectl evaluate --config kit.json --table prices.yaml --strict
  quotectl bom --config kit.json --format json
  quotectl defaults > prices.json`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			opts.logger = logging.New(logging.Config{Level: level, Encoding: "console"})
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.table, "table", "", "price table file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&opts.tableURL, "table-url", "", "fetch the price table from this URL")

	root.AddCommand(newEvaluateCommand(opts))
	root.AddCommand(newBOMCommand(opts))
	root.AddCommand(newDefaultsCommand())
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) loadTable(ctx context.Context) (*quotation.PriceTable, error) {
	if o.table != "" && o.tableURL != "" {
		return nil, fmt.Errorf("--table and --table-url are mutually exclusive")
	}

	var (
		doc domain.PriceTableDocument
		err error
	)
	switch {
	case o.tableURL != "":
		doc, err = quotation.NewHTTPSource(o.tableURL, tableFetchTimeout).Fetch(ctx)
	case o.table != "":
		switch strings.ToLower(filepath.Ext(o.table)) {
		case ".yaml", ".yml":
			var raw []byte
			raw, err = os.ReadFile(o.table)
			if err == nil {
				doc, err = quotation.ParseYAMLDocument(raw)
			}
		default:
			doc, err = quotation.FileSource{Path: o.table}.Fetch(ctx)
		}
	default:
		o.logger.Debug("using built-in price table")
		return quotation.DefaultTable(), nil
	}
	if err != nil {
		return nil, err
	}
	o.logger.Debug("price table loaded",
		zap.String("file", o.table),
		zap.String("url", o.tableURL),
		zap.Int("brands", len(doc.Brands)),
		zap.Int("channels", len(doc.Channels)),
	)
	return quotation.NewPriceTable(doc), nil
}

func readConfiguration(path string) (domain.QuotationRequest, quotation.Configuration, error) {
	if path == "" {
		return domain.QuotationRequest{}, quotation.Configuration{}, fmt.Errorf("--config is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.QuotationRequest{}, quotation.Configuration{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var req domain.QuotationRequest
	decoder := json.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return domain.QuotationRequest{}, quotation.Configuration{}, fmt.Errorf("decode config: %w", err)
	}
	cfg, err := quotation.FromRequest(req)
	if err != nil {
		return domain.QuotationRequest{}, quotation.Configuration{}, err
	}
	return req, cfg, nil
}

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
