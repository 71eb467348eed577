package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/okian/valetudo/internal/adapters/http/api"
	service "github.com/okian/valetudo/internal/app"
	"github.com/okian/valetudo/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// NewServeCommand creates the serve command: the reporting API plus scheduled
// sync runs.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API and run scheduled syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), rootOpts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	log := logger.Get()

	svc, store, err := openService(opts.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler, err := startScheduler(ctx, opts, svc)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewServer(svc, opts.cfg.MaxLeaderboardLimit).Register(mux)

	srv := &http.Server{
		Addr:              opts.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", opts.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// startScheduler arms the cron-driven update runs. An empty schedule disables
// the scheduler, leaving runs to the run command.
func startScheduler(ctx context.Context, opts *RootOptions, svc *service.Service) (*cron.Cron, error) {
	schedule := opts.cfg.SyncSchedule
	if schedule == "" {
		return nil, nil
	}

	log := logger.Get()
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		res, err := svc.Run(ctx, service.RunOptions{Mode: service.ModeUpdate})
		if err != nil {
			log.Error(ctx, "scheduled run failed", logger.Error(err))
			return
		}
		log.Info(ctx, "scheduled run complete",
			logger.Int("new_contests", res.NewContests),
			logger.Int("duplicates", res.Duplicates),
			logger.Int64("checkpoint_contests", res.Checkpoint.Contests))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync_schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	log.Info(ctx, "sync scheduler armed", logger.String("schedule", schedule))
	return scheduler, nil
}
