package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yandex/perforator-flame/internal/cliflag"
	"github.com/yandex/perforator-flame/internal/flamecli"
	"github.com/yandex/perforator-flame/internal/viewer"
)

var (
	configPath string
	logFile    string
	traceFile  string

	logLevel = cliflag.NewOneOf("info", parseString, "debug", "info", "warn", "error")

	rootCmd = &cobra.Command{
		Use:           "flamegraph",
		Short:         "Render and explore flamegraphs of collapsed and pprof profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func parseString(s string) (string, error) {
	return s, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the viewer config")
	rootCmd.PersistentFlags().Var(logLevel, "log-level", "Log level, one of "+logLevel.Variants())
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to the file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace-file", "", "Write finished spans to the file")

	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", logLevel.Complete)
}

func makeApp(cmd *cobra.Command, override func(*viewer.Config)) (*flamecli.App, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := flamecli.New(ctx, &flamecli.Config{
		LogLevel:   logLevel.Value(),
		LogFile:    logFile,
		ConfigPath: configPath,
		TraceFile:  traceFile,
		Override:   override,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CLI: %w", err)
	}
	return app, nil
}

// openInput opens path for reading; empty path and "-" mean stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	return f, nil
}

func inputPath(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
