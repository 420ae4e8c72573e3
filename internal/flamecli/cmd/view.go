package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/tui"
	"github.com/yandex/perforator-flame/internal/viewer"
)

var (
	viewFlags *engineFlags

	viewCmd = &cobra.Command{
		Use:   "view [profile]",
		Short: "Explore a profile in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the viewer.
			if logFile == "" {
				logFile = os.DevNull
			}

			app, err := makeApp(cmd, func(conf *viewer.Config) {
				viewFlags.apply(cmd, conf)
				conf.Engine = tui.EngineConfig(conf.Engine)
			})
			if err != nil {
				return err
			}
			defer app.Shutdown()

			in, err := openInput(inputPath(args))
			if err != nil {
				return err
			}
			tbl, err := viewer.LoadTable(app.Context(), app.Logger(), in, app.Config().Input)
			_ = in.Close()
			if err != nil {
				return err
			}
			defer tbl.Release()

			host := app.Renderer().NewHost(tbl)
			defer host.Close()

			return tui.Run(app.Context(), host, app.Logger())
		},
	}
)

func init() {
	viewFlags = addEngineFlags(viewCmd)
	rootCmd.AddCommand(viewCmd)
}
