package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/chronote"
	"github.com/aretw0/chronote/pkg/adapters/configwatch"
	"github.com/aretw0/chronote/pkg/adapters/ws"
)

var (
	serveFlags storeFlags
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a chronote over HTTP with a websocket event stream",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, path, err := serveFlags.resolveConfig(cmd)
		if err != nil {
			fatal("Invalid configuration", err)
		}
		if cmd.Flags().Changed("addr") || f.Addr == "" {
			f.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := chronote.New(chronote.WithConfig(f), chronote.WithLogger(slog.Default()))
		if err != nil {
			fatal("Failed to initialize chronote", err)
		}

		srv := &http.Server{
			Addr:    f.Addr,
			Handler: ws.NewServer(app, app, ws.WithLogger(slog.Default())).Handler(),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			app.Start(ctx)
			app.StartClock(ctx, time.Second)
			<-app.Done()
			return nil
		})
		g.Go(func() error {
			slog.Info("listening", "addr", f.Addr, "store", string(app.Kind()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if serveWatch {
			if path == "" {
				slog.Warn("--watch needs a config file; not watching")
			} else {
				g.Go(func() error {
					return configwatch.Supervise(ctx, path, app.Apply, configwatch.WithLogger(slog.Default()))
				})
			}
		}

		if err := g.Wait(); err != nil {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload the config file when it changes")
}
