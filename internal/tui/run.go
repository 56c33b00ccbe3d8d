package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-forecast/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrReviewAborted is returned when the user quits the review without saving.
var ErrReviewAborted = errors.New("review aborted")

// Review shows the detected series and returns them with Enabled toggled by
// the user. It returns ErrReviewAborted when the user quits.
func Review(ctx context.Context, series []model.RecurringSeries, opts ...Option) ([]model.RecurringSeries, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		programOpts = append(programOpts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(cfg.Output))
	}
	if !cfg.Inline {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(newModel(series, cfg), programOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("TUI returned unexpected model %T", final)
	}
	if m.State() != StateConfirmed {
		return nil, ErrReviewAborted
	}
	return m.Series(), nil
}
