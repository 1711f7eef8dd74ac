package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronote"
	adapter "github.com/aretw0/chronote/pkg/adapters/lifecycle"
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/events"
)

var (
	runFlags    storeFlags
	runNotes    int
	runInterval time.Duration
	runOut      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Add notes with one strategy and print every event",
	Long: `Adds --notes notes, --interval apart, and prints the trace, status changes
and measurements they produce. With --interval 0 all notes are added in the
same task, so timer based strategies supersede all but the last save.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, _, err := runFlags.resolveConfig(cmd)
		if err != nil {
			fatal("Invalid configuration", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := chronote.New(chronote.WithConfig(f), chronote.WithLogger(slog.Default()))
		if err != nil {
			fatal("Failed to initialize chronote", err)
		}
		if app.Kind() == "" {
			fatal("No save strategy", fmt.Errorf("%w: %q", core.ErrUnknownStrategy, string(f.Store)))
		}
		app.Start(ctx)

		var recorder *events.Recorder
		if runOut != "" {
			recorder = events.NewRecorder(app.Events)
		}

		subCtx, closeStream := context.WithCancel(ctx)
		src := adapter.NewSource(app.Subscribe(subCtx))
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start event stream", err)
		}
		printed := make(chan struct{})
		go func() {
			defer close(printed)
			for e := range src.Events() {
				fmt.Println(e.String())
			}
		}()

		promises := make([]*eventloop.Promise, 0, runNotes)
		for i := 0; i < runNotes; i++ {
			if i > 0 && runInterval > 0 {
				select {
				case <-time.After(runInterval):
				case <-ctx.Done():
				}
			}
			promises = append(promises, app.Submit(fmt.Sprintf("note %d", i+1)))
		}
		for i, p := range promises {
			if err := p.Wait(ctx); err != nil && !errors.Is(err, core.ErrSaveSuperseded) {
				slog.Error("save failed", "note", i+1, "error", err)
			}
		}
		if err := app.Loop.Idle(ctx); err != nil {
			slog.Warn("interrupted before background work finished", "error", err)
		}

		closeStream()
		<-printed

		if recorder != nil {
			if err := recorder.Save(runOut); err != nil {
				fatal("Failed to write trace", err)
			}
			fmt.Fprintf(os.Stderr, "trace written to %s\n", runOut)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
	runCmd.Flags().IntVarP(&runNotes, "notes", "n", 1, "Number of notes to add")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Delay between notes")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Record every event to a JSON-lines file")
}
