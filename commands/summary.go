package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Println(app.Store.Current().Summary().String())
			return nil
		},
	}
}
