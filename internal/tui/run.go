package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/yandex/perforator-flame/internal/viewer"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

// Run shows host until the user quits or ctx is cancelled.
func Run(ctx context.Context, host *viewer.Host, logger xlog.Logger) error {
	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
	// The profile may have been piped in; keys then come from the terminal.
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		opts = append(opts, tea.WithInputTTY())
	}

	p := tea.NewProgram(New(host, logger), opts...)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal viewer failed: %w", err)
	}
	return nil
}
