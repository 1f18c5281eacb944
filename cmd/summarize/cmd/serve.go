package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/summarize/internal/costbook"
	"github.com/jmylchreest/summarize/internal/daemon"
	"github.com/jmylchreest/summarize/internal/runner"
	"github.com/jmylchreest/summarize/internal/startup"
	"github.com/jmylchreest/summarize/internal/version"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the summarize daemon",
	Long: `serve starts a long-running HTTP daemon exposing /v1/summarize,
/v1/summarize/{id}/events (SSE), /v1/slides, and /v1/stats, the surface
editor and browser integrations poll instead of shelling out to the CLI
per request.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default: config daemon.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, appConfig, appLogger)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			appLogger.Warn("closing database", "error", cerr.Error())
		}
	}()

	if n, err := startup.CleanupSystemTempDirs(appLogger); err != nil {
		appLogger.Warn("cleaning system temp dirs", "error", err.Error())
	} else if n > 0 {
		appLogger.Info("cleaned orphaned temp dirs", "count", n)
	}
	if n, err := startup.RecoverStaleRuns(ctx, appLogger, a.deps.Runs); err != nil {
		appLogger.Warn("recovering stale runs", "error", err.Error())
	} else if n > 0 {
		appLogger.Info("recovered stale runs", "count", n)
	}

	serverCfg := daemon.DefaultServerConfig()
	if servePort != 0 {
		serverCfg.Port = servePort
	} else if appConfig.Daemon.Port != 0 {
		serverCfg.Port = appConfig.Daemon.Port
	}

	server := daemon.NewServer(serverCfg, appLogger, version.Short())

	slidesDir := filepath.Join(a.cfg.MediaCachePath(), "slides")
	manager := runner.NewManager(a.runner, slidesDir, appLogger)
	costs := costbook.New()

	daemon.RegisterRoutes(server, manager, a.deps.Buses, costs, slidesDir, appLogger, timeNow())

	appLogger.Info("starting daemon", "host", serverCfg.Host, "port", serverCfg.Port)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("running daemon: %w", err)
	}
	return nil
}

// timeNow is a small indirection point so tests could stub the daemon's
// uptime epoch; the CLI always uses the real clock.
func timeNow() time.Time {
	return time.Now()
}
