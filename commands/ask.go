package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/glia-labs/convoscope/pipeline"
)

func newAskCommand(flags *rootFlags) *cobra.Command {
	var (
		showTrace  bool
		jsonOutput bool
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer an analytical question over the conversation corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			pipe, err := app.newPipeline()
			if err != nil {
				return err
			}

			outcome, err := pipe.Run(cmd.Context(), question)
			if err != nil {
				// A failed run still carries the trace of the stages
				// that completed before the failure.
				if trace := pipeline.TraceOf(err); trace != nil && showTrace {
					printTrace(trace)
				}
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}

			printAnswer(outcome, plain)
			if showTrace {
				printTrace(outcome.Trace)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTrace, "trace", false, "Print the per-stage process trace")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full outcome as JSON")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable markdown rendering")

	return cmd
}

func printAnswer(outcome *pipeline.Outcome, plain bool) {
	fmt.Println(renderMarkdown(outcome.Answer.Text, plain))

	fmt.Printf("— %s, %d items analyzed", outcome.Answer.Model, outcome.Retrieved)
	if outcome.Answer.TokensUsed > 0 {
		fmt.Printf(", %d tokens", outcome.Answer.TokensUsed)
	}
	if outcome.FallbackPlan {
		fmt.Printf(" (keyword fallback plan)")
	}
	fmt.Println()
}

// renderMarkdown renders the answer for the terminal, falling back to the
// raw text when no renderer is available (e.g. output is not a TTY style
// glamour understands).
func renderMarkdown(text string, plain bool) string {
	if plain {
		return text
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

func printTrace(trace *pipeline.Trace) {
	fmt.Fprintf(os.Stderr, "\nrun %s: %s\n", trace.RunID, trace.State)
	for _, stage := range trace.Stages {
		fmt.Fprintf(os.Stderr, "  %-10s %-9s %s\n", stage.Stage, stage.Status, formatDetails(stage.Details))
		if stage.Warning != "" {
			fmt.Fprintf(os.Stderr, "  %-10s warning: %s\n", "", stage.Warning)
		}
	}
	if trace.FailReason != "" {
		fmt.Fprintf(os.Stderr, "  failed at %s: %s\n", trace.FailedStage, trace.FailReason)
	}
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, " ")
}
