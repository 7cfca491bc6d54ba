package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/kanban/internal/api"
	"github.com/joescharf/kanban/internal/roadmap"
)

var (
	serveWatch   bool
	serveOffline bool
	serveItems   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve boards and the roadmap over HTTP",
	Long: `Start an HTTP server drawing boards on request:

  /milestones/{project}/{milestone}   milestone board
  /people/{name}                      person or team board
  /roadmap                            roadmap given with --roadmap
  /api/v1/...                         the same as JSON

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(viper.GetInt("port"), viper.GetString("roadmap"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("roadmap", "", "roadmap file to serve at /roadmap")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the roadmap when the file changes")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "serve the last fetched items instead of asking Launchpad")
	serveCmd.Flags().StringVar(&serveItems, "items", "", "serve work items from a YAML or JSON file")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("roadmap", serveCmd.Flags().Lookup("roadmap"))
}

func serveRun(port int, roadmapPath string) error {
	src, err := newSource(serveItems, serveOffline)
	if err != nil {
		return err
	}

	srv := api.NewServer(src, newRenderer(), viper.GetBool("board.include_needs_testing"))
	if src.Store != nil {
		srv.SetStore(src.Store)
	}

	ctx, stop := signal.NotifyContext(cmdContext(), shutdownSignals()...)
	defer stop()

	if roadmapPath != "" {
		p, err := roadmap.LoadFile(roadmapPath)
		if err != nil {
			return err
		}
		srv.SetRoadmap(p)

		if serveWatch {
			w, err := roadmap.NewWatcher(roadmapPath)
			if err != nil {
				return fmt.Errorf("watch roadmap: %w", err)
			}
			if err := w.Start(); err != nil {
				return fmt.Errorf("watch roadmap: %w", err)
			}
			defer w.Stop()
			go srv.WatchRoadmap(ctx, w)
			ui.VerboseLog("Watching %s", w.Path)
		}
	} else if serveWatch {
		ui.Warning("--watch has no effect without --roadmap")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	ui.Info("Serving boards at http://localhost:%d", port)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
