package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/internal/viewer"
)

var (
	httpPort    uint
	metricsPort uint

	serveFlags *engineFlags

	serveCmd = &cobra.Command{
		Use:   "serve [profile]",
		Short: "Serve frames, minimap and hover details of a profile over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := makeApp(cmd, func(conf *viewer.Config) {
				serveFlags.apply(cmd, conf)
				if cmd.Flags().Changed("port") {
					conf.Server.HTTPPort = httpPort
				}
				if cmd.Flags().Changed("metrics-port") {
					conf.Server.MetricsPort = metricsPort
				}
			})
			if err != nil {
				return err
			}
			defer app.Shutdown()

			ctx, stop := signal.NotifyContext(app.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			in, err := openInput(inputPath(args))
			if err != nil {
				return err
			}
			tbl, err := viewer.LoadTable(ctx, app.Logger(), in, app.Config().Input)
			_ = in.Close()
			if err != nil {
				return err
			}

			srv := viewer.NewServer(app.Renderer(), tbl)
			defer srv.Close()

			app.Logger().Info(ctx, "Serving flamegraph",
				zap.Uint("port", app.Config().Server.HTTPPort),
				zap.Uint("metrics_port", app.Config().Server.MetricsPort),
				zap.Int("rows", tbl.NumRows()),
			)
			return srv.Run(ctx)
		},
	}
)

func init() {
	serveFlags = addEngineFlags(serveCmd)
	serveCmd.Flags().UintVarP(&httpPort, "port", "p", 0, "Port to serve the viewer API on")
	serveCmd.Flags().UintVar(&metricsPort, "metrics-port", 0, "Port to export metrics on")
	rootCmd.AddCommand(serveCmd)
}
