package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/events"
	"github.com/aretw0/chronote/pkg/view"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Print a trace recorded with run --out",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		trace, err := events.LoadTrace(args[0])
		if err != nil {
			fatal("Failed to load trace", err)
		}

		chart := view.NewPerfChart()
		for _, e := range trace {
			chart.Handle(e)
			switch e.Type {
			case core.EventTraceNew:
				fmt.Printf("--- trace %s\n", e.TraceID)
			case core.EventTraceLog:
				fmt.Println(e.Log)
			default:
				fmt.Println(e.String())
			}
		}

		for _, s := range chart.Series() {
			fmt.Printf("\n%s (last %d):", s.Name, len(s.Points))
			for _, p := range s.Points {
				fmt.Printf(" %.0fms", p.Y)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
