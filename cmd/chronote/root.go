package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/chronote/internal/platform"
	"github.com/aretw0/chronote/pkg/config"
)

var (
	verbose    bool
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chronote",
	Short: "Compare how note-save strategies behave on a single-threaded event loop",
	Long: `Chronote saves a list of notes after every addition using one of several
scheduling strategies (sync, setTimeout, chunked setTimeout, awaited and
unawaited promises) and reports what each one measures and when it runs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: chronote.yaml in this or a parent directory)")
}

// loadConfig returns the config and the path it came from. Without --config
// and without a chronote.yaml nearby the defaults are used and path is empty.
func loadConfig() (config.File, string, error) {
	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.File{}, "", err
		}
		found, err := platform.FindConfig(wd)
		if err != nil {
			return config.Default(), "", nil
		}
		path = found
	}

	f, err := config.Load(path)
	if err != nil {
		return config.File{}, "", err
	}
	slog.Debug("config loaded", "path", path, "store", string(f.Store))
	return f, path, nil
}
