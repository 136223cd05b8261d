package commands

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/server"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			pipe, err := app.newPipeline()
			if err != nil {
				return err
			}

			if app.Config.Corpus.Watch && app.fileLoader != nil {
				watcher := corpus.NewWatcher(app.fileLoader, app.Store, app.Logger)
				go func() {
					if err := watcher.Run(ctx); err != nil {
						app.Logger.Error("corpus watcher stopped", "error", err)
					}
				}()
			}

			if addr == "" {
				addr = app.Config.Server.Addr
			}

			srv := server.New(pipe, app.Store, prometheus.NewRegistry(), app.Logger)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}
