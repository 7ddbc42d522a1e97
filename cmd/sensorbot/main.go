package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/sensorbot/internal/bot"
	"codeberg.org/mutker/sensorbot/internal/chart"
	"codeberg.org/mutker/sensorbot/internal/config"
	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/logger"
	"codeberg.org/mutker/sensorbot/internal/poller"
	"codeberg.org/mutker/sensorbot/internal/sensor"
	"codeberg.org/mutker/sensorbot/internal/store"
	"codeberg.org/mutker/sensorbot/internal/telegram"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
)

const (
	greetingText      = "Hello there, I'm back!"
	livenessCadence   = time.Second
	handshakeMinDelay = time.Second
	handshakeMaxDelay = 30 * time.Second
)

type app struct {
	cfg      *config.Config
	records  *store.Store
	poller   *poller.Poller
	gateway  *telegram.Gateway
	shutdown sync.Once
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Msg("Starting")

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	records, err := store.New(store.Config{
		Directory:     cfg.Record.Directory,
		RetentionDays: cfg.Record.Days,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to open record store")
		return 1
	}
	defer records.Close()

	kind, err := sensor.ParseKind(cfg.Sensor.Type)
	if err != nil {
		logger.Error().Err(err).Msg("invalid sensor type")
		return 1
	}

	dev, err := sensor.New(sensor.Config{Kind: kind, Pin: cfg.Sensor.Pin})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize sensor")
		return 1
	}

	sensorPoller := poller.New(dev, records, cfg.Sensor.ReadIntervalDuration())
	defer sensorPoller.Release()

	renderer, err := chart.New(chart.Config{
		Path:   cfg.Plot.Path,
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		DPI:    cfg.Plot.DPI,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize chart renderer")
		return 1
	}

	gateway, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize gateway")
		return 1
	}

	dispatcher := bot.New(gateway, records, sensorPoller, renderer, cfg.Telegram.OwnerIDs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &app{
		cfg:     cfg,
		records: records,
		poller:  sensorPoller,
		gateway: gateway,
	}

	// the network may still be coming up after boot; keep probing
	logger.Info().Msg("Waiting for network and Telegram API to become accessible...")
	if err := waitForGateway(ctx, gateway, cfg.General.StartupTimeoutDuration()); err != nil {
		logger.Error().Err(err).Msg("could not access Telegram API, shutting down")
		return 1
	}

	a.notifyOwners(ctx, greetingText)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := sensorPoller.Run(groupCtx); err != nil {
			logger.Error().Err(err).Msg("sensor poller died")
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := gateway.Run(groupCtx, dispatcher); err != nil {
			logger.Error().Err(err).Msg("gateway receive loop died")
			return err
		}
		return nil
	})

	return a.supervise(ctx, cancel, groupCtx)
}

// supervise polls task liveness at a fixed cadence and waits for
// termination signals. Both paths funnel into the same one-shot
// notify-then-exit sequence.
func (a *app) supervise(ctx context.Context, cancel context.CancelFunc, groupCtx context.Context) int {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	ticker := time.NewTicker(livenessCadence)
	defer ticker.Stop()

	for {
		select {
		case sig := <-signals:
			return a.terminate(ctx, cancel, fmt.Sprintf("Caught signal %v, terminating now.", sig))
		case <-ticker.C:
			if groupCtx.Err() != nil {
				return a.terminate(ctx, cancel, "Task died, terminating now.")
			}
		}
	}
}

// terminate notifies every operator (best-effort), stops all tasks and
// releases resources. Guarded so repeated signals run it once.
func (a *app) terminate(ctx context.Context, cancel context.CancelFunc, reason string) int {
	a.shutdown.Do(func() {
		logger.Error().Msg(reason)
		a.notifyOwners(ctx, reason)
		cancel()
		a.poller.Release()
		if err := a.records.Close(); err != nil {
			logger.Warn().Err(err).Msg("could not close record store")
		}
		logger.Info().Msg("Exiting...")
	})

	return 1
}

func (a *app) notifyOwners(ctx context.Context, text string) {
	for _, ownerID := range a.cfg.Telegram.OwnerIDs {
		if err := a.gateway.SendText(ctx, ownerID, text); err != nil {
			// most likely a network problem or the user blocked the bot
			logger.Warn().Err(err).Int64("owner_id", ownerID).Msg("could not notify owner")
		}
	}
}

// waitForGateway probes the gateway until it responds, backing off
// between attempts. Authentication failures are fatal immediately; a
// zero timeout waits forever.
func waitForGateway(ctx context.Context, gateway *telegram.Gateway, timeout time.Duration) error {
	errFactory := errors.New()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	delay := &backoff.Backoff{
		Min:    handshakeMinDelay,
		Max:    handshakeMaxDelay,
		Jitter: true,
	}

	for {
		err := gateway.Probe(ctx)
		if err == nil {
			return nil
		}
		if errors.HasCode(err, bot.ErrGatewayAuth) {
			// wrong access token, retrying cannot help
			return err
		}

		logger.Debug().Err(err).Msg("Telegram API not reachable yet")

		if !deadline.IsZero() && time.Now().After(deadline) {
			return errFactory.Wrap(errors.ErrTimeout, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay.Duration()):
		}
	}
}
