package tui

import (
	"io"

	"github.com/Veraticus/spice-forecast/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme  themes.Theme
	Input  io.Reader // Defaults to the terminal
	Output io.Writer // Defaults to the terminal
	Title  string
	Width  int
	Height int
	// Skips the alternate screen, used by tests and dumb terminals.
	Inline bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Title:  "Review detected recurring transactions",
		Width:  80,
		Height: 24,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithIO replaces the terminal with the given reader and writer.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Config) {
		c.Input = in
		c.Output = out
		c.Inline = true
	}
}

// WithTitle sets the heading of the review screen.
func WithTitle(title string) Option {
	return func(c *Config) {
		c.Title = title
	}
}
