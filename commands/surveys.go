package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/glia-labs/convoscope/config"
	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/sanitize"
	"github.com/glia-labs/convoscope/survey"
)

func newSurveysCommand(flags *rootFlags) *cobra.Command {
	var (
		jsonOutput bool
		question   string
	)

	cmd := &cobra.Command{
		Use:   "surveys <export.csv>",
		Short: "Parse a Survicate CSV export; print sanitized responses or analyze them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(flags.logLevel)

			cfg, err := loadConfig(flags, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			parser := &survey.Parser{Logger: logger}
			responses, err := parser.ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("parse survey export: %w", err)
			}

			if question != "" {
				return askSurveys(cmd, cfg, logger, responses, question)
			}

			sanitizer, err := newSanitizer(cfg)
			if err != nil {
				return err
			}

			sanitized := make([]survey.Response, 0, len(responses))
			for _, resp := range responses {
				clean, err := sanitizer.Survey(resp)
				if err != nil {
					logger.Warn("dropping survey response", "response_id", resp.ResponseID, "error", err)
					continue
				}
				sanitized = append(sanitized, clean)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sanitized)
			}

			for _, resp := range sanitized {
				fmt.Printf("%s  respondent=%s\n", resp.SubmittedAt.Format("2006-01-02 15:04"), resp.UserID)
				for _, text := range resp.FreeText() {
					fmt.Printf("    %s\n", text)
				}
			}
			fmt.Printf("\n%d responses (%d dropped)\n", len(sanitized), len(responses)-len(sanitized))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sanitized responses as JSON")
	cmd.Flags().StringVar(&question, "ask", "", "Analyze the responses with an analytical question")

	return cmd
}

// askSurveys runs the analysis pipeline over a corpus built from the parsed
// export. Raw responses go in; the pipeline's sanitize stage scrubs them
// before any text reaches the synthesis call.
func askSurveys(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, responses []survey.Response, question string) error {
	records := survey.Records(responses)
	if len(records) == 0 {
		return fmt.Errorf("no survey responses with free text to analyze")
	}

	store := corpus.NewStore(logger)
	store.Swap(corpus.BuildSnapshot(records))

	pipe, err := newPipelineFor(cfg, store, logger)
	if err != nil {
		return err
	}

	outcome, err := pipe.Run(cmd.Context(), question)
	if err != nil {
		return err
	}
	printAnswer(outcome, false)
	return nil
}

func newSanitizer(cfg *config.Config) (*sanitize.Sanitizer, error) {
	sanitizeCfg, err := cfg.SanitizeConfig()
	if err != nil {
		return nil, fmt.Errorf("sanitizer config: %w", err)
	}
	sanitizer, err := sanitize.New(sanitizeCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("create sanitizer: %w", err)
	}
	return sanitizer, nil
}
