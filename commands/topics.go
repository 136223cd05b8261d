package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glia-labs/convoscope/pipeline"
)

func newTopicsCommand(flags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Classify every conversation in the corpus into a topic category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			sanitizer, err := newSanitizer(app.Config)
			if err != nil {
				return err
			}
			client, err := newLLMClient(app.Config, app.Logger)
			if err != nil {
				return err
			}

			extractor := pipeline.NewTopicExtractor(client, sanitizer, app.Logger)
			topics, err := extractor.ExtractAll(cmd.Context(), app.Store.Current())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(topics)
			}

			counts := make(map[string]int)
			for _, topic := range topics {
				counts[topic]++
			}
			for _, topic := range pipeline.ConversationTopics {
				if counts[topic] > 0 {
					fmt.Printf("%4d  %s\n", counts[topic], topic)
				}
			}
			fmt.Printf("\n%d conversations classified\n", len(topics))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the conversation-to-topic mapping as JSON")

	return cmd
}
