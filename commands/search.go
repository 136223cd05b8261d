package commands

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/glia-labs/convoscope/corpus"
)

func newSearchCommand(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Substring search over the conversation corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}

			records := app.Store.Current().Search(query, limit)
			if len(records) == 0 {
				fmt.Printf("no matches for %q\n", query)
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %-26s conversation=%s\n", rec.Timestamp.Format("2006-01-02 15:04"), rec.Content.Type, rec.ConversationID)
				fmt.Printf("    %s\n", snippet(rec))
			}
			fmt.Printf("\n%d matches\n", len(records))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results to print")

	return cmd
}

// snippet returns a single display line for a record.
func snippet(rec corpus.Record) string {
	text := rec.Content.Text
	if text == "" {
		text = rec.Content.Subject
	}
	if text == "" {
		text = rec.Content.Status
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 120 {
		cut := 120
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
