package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aretw0/chronote"
	"github.com/aretw0/chronote/internal/tui"
	"github.com/aretw0/chronote/pkg/adapters/configwatch"
)

var (
	tuiFlags storeFlags
	tuiWatch bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive chronote in the terminal",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, path, err := tuiFlags.resolveConfig(cmd)
		if err != nil {
			fatal("Invalid configuration", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Logging to stderr would tear the alt screen.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		app, err := chronote.New(chronote.WithConfig(f), chronote.WithLogger(logger))
		if err != nil {
			fatal("Failed to initialize chronote", err)
		}
		app.Start(ctx)
		app.StartClock(ctx, time.Second)

		if tuiWatch && path != "" {
			lifecycle.Go(ctx, func(ctx context.Context) error {
				return configwatch.Supervise(ctx, path, app.Apply, configwatch.WithLogger(logger))
			})
		}

		m := tui.NewModel(app.Host, app.Events, app.Subscribe(ctx))
		defer m.Close()

		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			fatal("TUI failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiFlags.register(tuiCmd)
	tuiCmd.Flags().BoolVarP(&tuiWatch, "watch", "w", false, "Reload the config file when it changes")
}
