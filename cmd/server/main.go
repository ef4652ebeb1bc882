package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Screenshare/internal/adapters/http"
	signaling "github.com/dkeye/Screenshare/internal/adapters/signal"
	"github.com/dkeye/Screenshare/internal/app"
	"github.com/dkeye/Screenshare/internal/app/orch"
	"github.com/dkeye/Screenshare/internal/config"
	"github.com/dkeye/Screenshare/internal/protocol"
)

var rootCmd = &cobra.Command{
	Use:   "screenshare",
	Short: "Signaling server for browser-to-browser screen sharing rooms",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		setLogLevel(cfg)
		return run(ctx, cfg)
	},
}

func init() {
	config.BindFlags(rootCmd.Flags())
}

func setLogLevel(cfg *config.Config) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Mode == "release" {
		// JSON lines in production.
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	manager := app.NewRoomManager(protocol.Announcer{}, app.RoomOptions{
		AutoCreate:      cfg.AutoCreateRooms,
		GracePeriod:     cfg.RoomGracePeriod,
		CodeLength:      cfg.CodeLength,
		CodeMaxAttempts: cfg.CodeMaxAttempts,
	})
	orch := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    manager,
		Policy:   app.SimplePolicy{},
	}
	ctl := signaling.NewSignalWSController(orch, signaling.OptionsFromConfig(cfg))

	r := router.SetupRouter(ctx, cfg, orch, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Screenshare server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweep(gctx, cfg, orch, ctl)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := ctl.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("sessions did not drain in time")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}

// sweep evicts rooms left empty past the grace period and forgets idle chat
// limiters.
func sweep(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signaling.SignalWSController) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := o.Sweep()
			pruned := ctl.PruneLimiters(cfg.SweepInterval)
			if len(evicted) > 0 || pruned > 0 {
				log.Info().Int("rooms", len(evicted)).Int("limiters", pruned).Msg("sweep")
			}
		}
	}
}

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("screenshare")
		os.Exit(1)
	}
}
