package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/cliflag"
	"github.com/yandex/perforator-flame/internal/viewer"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
)

// engineFlags are shared by every command that hosts an engine. Only flags
// set on the command line override the config file.
type engineFlags struct {
	mode        *cliflag.OneOf[geometry.Mode]
	colorBy     *cliflag.OneOf[palette.ColorBy]
	inputFormat *cliflag.OneOf[viewer.InputFormat]
	dark        bool
	inverted    bool
	depthLimit  int
	minWeight   float64
	maxSize     *cliflag.Bytes
	selection   []string
}

func parseInputFormat(s string) (viewer.InputFormat, error) {
	return viewer.InputFormat(s), nil
}

func addEngineFlags(cmd *cobra.Command) *engineFlags {
	f := &engineFlags{
		mode:        cliflag.NewOneOf("icicle", geometry.ParseMode, "icicle", "flamechart"),
		colorBy:     cliflag.NewOneOf("binary", palette.ParseColorBy, "binary", "filename", "function"),
		inputFormat: cliflag.NewOneOf("auto", parseInputFormat, "auto", "collapsed", "pprof"),
		maxSize:     cliflag.NewBytes(1 << 30),
	}

	flags := cmd.Flags()
	flags.Var(f.mode, "mode", "Layout, one of "+f.mode.Variants())
	flags.Var(f.colorBy, "color-by", "Row coloring, one of "+f.colorBy.Variants())
	flags.Var(f.inputFormat, "format", "Input format, one of "+f.inputFormat.Variants())
	flags.BoolVar(&f.dark, "dark", false, "Use the dark palette")
	flags.BoolVar(&f.inverted, "inverted", false, "Draw the root at the bottom")
	flags.IntVar(&f.depthLimit, "depth-limit", 0, "Hide rows deeper than the limit relative to the selection, 0 for no limit")
	flags.Float64Var(&f.minWeight, "min-weight", 0, "Drop rows lighter than the share of the total while building the table")
	flags.Var(f.maxSize, "max-size", "Maximum decompressed input size")
	flags.StringSliceVar(&f.selection, "select", nil, "Select the row at the path of function names, root first")

	_ = cmd.RegisterFlagCompletionFunc("mode", f.mode.Complete)
	_ = cmd.RegisterFlagCompletionFunc("color-by", f.colorBy.Complete)
	_ = cmd.RegisterFlagCompletionFunc("format", f.inputFormat.Complete)
	return f
}

func (f *engineFlags) apply(cmd *cobra.Command, conf *viewer.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		conf.Engine.Mode = f.mode.Value()
	}
	if flags.Changed("color-by") {
		conf.Engine.ColorBy = f.colorBy.Value()
	}
	if flags.Changed("format") {
		conf.Input.Format = f.inputFormat.Value()
	}
	if flags.Changed("dark") {
		conf.Engine.Dark = f.dark
	}
	if flags.Changed("inverted") {
		conf.Engine.Inverted = f.inverted
	}
	if flags.Changed("depth-limit") {
		conf.Engine.DepthLimit = f.depthLimit
	}
	if flags.Changed("min-weight") {
		conf.Input.MinWeight = f.minWeight
	}
	if flags.Changed("max-size") {
		conf.Input.MaxSize = f.maxSize.String()
	}
	if flags.Changed("select") {
		conf.Selection = f.selection
	}
}
