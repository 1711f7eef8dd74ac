package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
)

// storeFlags are the config values every command can override.
type storeFlags struct {
	store    string
	parts    int
	work     time.Duration
	overhead time.Duration
}

func (s *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.store, "store", "s", string(core.KindSync), "Save strategy")
	cmd.Flags().IntVar(&s.parts, "parts", 4, "Fractions for setTimeoutByParts")
	cmd.Flags().DurationVar(&s.work, "work", 0, "Simulated compression time (default from config)")
	cmd.Flags().DurationVar(&s.overhead, "overhead", 0, "Simulated prepare/finalize time (default from config)")
}

// apply overlays the flags the user set on f.
func (s *storeFlags) apply(cmd *cobra.Command, f config.File) (config.File, error) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		f.Store = core.StrategyKind(s.store)
	}
	if flags.Changed("parts") {
		f.Parts = s.parts
	}
	if flags.Changed("work") {
		f.Work = s.work
	}
	if flags.Changed("overhead") {
		f.Overhead = s.overhead
	}
	return f, f.Validate()
}

// resolveConfig loads the config file and overlays the flags.
func (s *storeFlags) resolveConfig(cmd *cobra.Command) (config.File, string, error) {
	f, path, err := loadConfig()
	if err != nil {
		return config.File{}, "", err
	}
	f, err = s.apply(cmd, f)
	return f, path, err
}
