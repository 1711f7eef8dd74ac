package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aretw0/chronote"
	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
)

var (
	benchFlags storeFlags
	benchRuns  int
)

// benchResult compares what a strategy measured with how long its save
// really kept the loop busy.
type benchResult struct {
	kind     core.StrategyKind
	measured time.Duration
	actual   time.Duration
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run every strategy and compare measured latency with the real work",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, _, err := benchFlags.resolveConfig(cmd)
		if err != nil {
			fatal("Invalid configuration", err)
		}
		if benchRuns < 1 {
			benchRuns = 1
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rows := make([][]string, 0, len(core.Kinds()))
		for _, kind := range core.Kinds() {
			f.Store = kind
			res, err := benchStrategy(ctx, f, benchRuns)
			if err != nil {
				fatal("Benchmark interrupted", err)
			}
			covers := "yes"
			if res.measured < f.Work && kind != core.KindInstant {
				covers = "no"
			}
			rows = append(rows, []string{
				string(kind),
				formatMillis(res.measured),
				formatMillis(res.actual),
				covers,
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("STORE", "MEASURED", "ACTUAL", "COVERS WORK").
			Rows(rows...)
		fmt.Println(t)
		fmt.Printf("work %s, overhead %s, %d run(s) per store\n", f.Work, f.Overhead, benchRuns)
	},
}

// benchStrategy saves runs notes one after the other and averages the
// reported measurement and the time until the loop went idle.
func benchStrategy(ctx context.Context, f config.File, runs int) (benchResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := chronote.New(chronote.WithConfig(f), chronote.WithLogger(slog.Default()))
	if err != nil {
		return benchResult{}, err
	}
	app.Start(runCtx)

	measured := make(chan time.Duration, runs)
	sub := app.Events.Subscribe(core.EventPerfMeasurement, func(e core.Event) {
		measured <- e.Measurement.Duration
	})
	defer sub.Unsubscribe()

	res := benchResult{kind: f.Store}
	for i := 0; i < runs; i++ {
		start := time.Now()
		if err := app.Submit(fmt.Sprintf("bench %d", i)).Wait(runCtx); err != nil {
			return benchResult{}, err
		}
		if err := app.Loop.Idle(runCtx); err != nil {
			return benchResult{}, err
		}
		res.actual += time.Since(start)
		res.measured += <-measured
		slog.Debug("bench run", "store", string(f.Store), "run", i+1)
	}
	res.measured /= time.Duration(runs)
	res.actual /= time.Duration(runs)
	return res, nil
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.0f ms", float64(d)/float64(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchFlags.register(benchCmd)
	benchCmd.Flags().IntVarP(&benchRuns, "runs", "r", 3, "Saves per strategy")
}
