package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/viewer"
)

var (
	renderOutput  string
	renderMinimap string
	renderMetrics string
	renderWidth   float64
	renderHeight  float64

	renderFlags *engineFlags

	renderCmd = &cobra.Command{
		Use:   "render [profile]",
		Short: "Render one frame into a draw list and a minimap image",
		Long: `Render builds the profile table from a collapsed or pprof profile,
optionally zstd compressed, and writes the visible rows of one frame as a
JSON draw list together with the minimap PNG. Use "-" to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := makeApp(cmd, func(conf *viewer.Config) {
				renderFlags.apply(cmd, conf)
				flags := cmd.Flags()
				if flags.Changed("output") {
					conf.Output.DrawList = renderOutput
				}
				if flags.Changed("minimap") {
					conf.Output.Minimap = renderMinimap
				}
				if flags.Changed("metrics") {
					conf.Output.Metrics = renderMetrics
				}
				if flags.Changed("width") {
					conf.Viewport.Width = renderWidth
				}
				if flags.Changed("height") {
					conf.Viewport.Height = renderHeight
				}
			})
			if err != nil {
				return err
			}
			defer app.Shutdown()

			in, err := openInput(inputPath(args))
			if err != nil {
				return err
			}
			defer in.Close()

			summary, err := app.Renderer().Render(app.Context(), in)
			if err != nil {
				return err
			}
			return printSummary(cmd.ErrOrStderr(), summary)
		},
	}
)

func printSummary(w io.Writer, s *viewer.Summary) error {
	_, err := fmt.Fprintf(w,
		"%s rows, max depth %d, total %s, %s nodes drawn\nselected %q: %s (%.2f%% of total)\n",
		humanize.Comma(int64(s.Rows)),
		s.MaxDepth,
		humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Nodes)),
		s.Selected.Function,
		humanize.Comma(int64(s.Selected.Cumulative)),
		s.Selected.OfTotal*100,
	)
	return err
}

func init() {
	renderFlags = addEngineFlags(renderCmd)

	flags := renderCmd.Flags()
	flags.StringVarP(&renderOutput, "output", "o", "", "Path to the draw list")
	flags.StringVar(&renderMinimap, "minimap", "", "Path to the minimap image")
	flags.StringVar(&renderMetrics, "metrics", "", "Dump metrics in the text exposition format to the file")
	flags.Float64Var(&renderWidth, "width", 0, "Viewport width in pixels")
	flags.Float64Var(&renderHeight, "height", 0, "Viewport height in pixels")

	_ = renderCmd.MarkFlagFilename("output", "json")
	_ = renderCmd.MarkFlagFilename("minimap", "png")

	rootCmd.AddCommand(renderCmd)
}
