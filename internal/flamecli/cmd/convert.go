package cmd

import (
	"fmt"
	"os"

	"github.com/google/pprof/profile"
	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/cliflag"
	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/convert"
)

var (
	convertOutput string
	convertTo     = cliflag.NewOneOf("pprof", parseString, "pprof", "collapsed")

	convertCmd = &cobra.Command{
		Use:   "convert [profile]",
		Short: "Convert between collapsed stacks and pprof",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(inputPath(args))
			if err != nil {
				return err
			}
			defer in.Close()

			out := os.Stdout
			if convertOutput != "" && convertOutput != "-" {
				out, err = os.Create(convertOutput)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer out.Close()
			}

			switch convertTo.Value() {
			case "pprof":
				stacks, err := collapsed.Decode(in)
				if err != nil {
					return fmt.Errorf("failed to parse collapsed stacks: %w", err)
				}
				prof, err := convert.CollapsedToPProf(stacks)
				if err != nil {
					return err
				}
				return prof.Write(out)
			default:
				prof, err := profile.Parse(in)
				if err != nil {
					return fmt.Errorf("failed to parse pprof profile: %w", err)
				}
				stacks, err := convert.PProfToCollapsed(prof)
				if err != nil {
					return err
				}
				return collapsed.Encode(stacks, out)
			}
		},
	}
)

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Path to the converted profile, stdout by default")
	convertCmd.Flags().Var(convertTo, "to", "Target format, one of "+convertTo.Variants())
	_ = convertCmd.RegisterFlagCompletionFunc("to", convertTo.Complete)
	rootCmd.AddCommand(convertCmd)
}
