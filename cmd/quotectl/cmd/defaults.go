package cmd

import (
	"github.com/spf13/cobra"

	"cctvstore/backend/internal/quotation"
)

func newDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in price table as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd, quotation.DefaultDocument())
		},
	}
}
