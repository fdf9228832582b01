package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/matchapi"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-client/transport/cli"
	"github.com/rocketscienceinc/tictactoe-client/transport/rest"
)

const shutdownTimeout = 5 * time.Second

// RunApp - runs the client until the user quits or a signal arrives.
func RunApp(logger *slog.Logger, conf *config.Config, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	collectors := metrics.New()

	matchRepo, deviceRepo, closeRepo, err := newRepositories(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeRepo(); closeErr != nil {
			log.Error("could not close redis storage", "error", closeErr)
		}
	}()

	client := matchapi.NewClient(conf.MatchService.BaseURL,
		matchapi.WithTimeout(conf.MatchService.Timeout),
		matchapi.WithRetry(conf.MatchService.RetryMax),
		matchapi.WithObserver(collectors),
	)

	session := usecase.NewSession(logger, client, matchRepo, deviceRepo, collectors, usecase.SessionConfig{
		SearchInterval:    conf.Matchmaking.Interval,
		MaxSearchDuration: conf.Matchmaking.MaxDuration,
		SyncInterval:      conf.Sync.Interval,
	})
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		session.Close(closeCtx)
	}()

	// run ops HTTP server
	httpErrCh := make(chan error, 1)
	if conf.HTTPPort != "" {
		server := rest.New(logger, session, collectors.Handler())
		go func() {
			if httpErr := server.Start(conf.HTTPPort); httpErr != nil {
				log.Error("HTTP server error", "error", httpErr)
				httpErrCh <- httpErr
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("could not shutdown HTTP server", "error", shutdownErr)
			}
		}()
	}

	// run command line
	front, err := cli.New(logger, session, out, conf.BoardSize, conf.Alias)
	if err != nil {
		return fmt.Errorf("could not create command line: %w", err)
	}

	cliErrCh := make(chan error, 1)
	go func() {
		cliErrCh <- front.Run(ctx, in)
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-cliErrCh:
		if err != nil {
			return fmt.Errorf("command line error: %w", err)
		}
		log.Info("Command line closed, shutting down")
		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newRepositories - redis when a host is configured, memory otherwise.
func newRepositories(
	ctx context.Context,
	conf *config.Config,
) (repository.MatchRepository, repository.DeviceRepository, func() error, error) {
	if conf.Redis.Host == "" {
		noop := func() error { return nil }
		return repository.NewMemoryMatchRepository(), repository.NewMemoryDeviceRepository(), noop, nil
	}

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.Host, conf.Redis.Port)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	matchRepo := repository.NewMatchRepository(redisStorage.Connection, conf.Redis.TTL)
	deviceRepo := repository.NewDeviceRepository(redisStorage.Connection)

	return matchRepo, deviceRepo, redisStorage.Close, nil
}
