package poller

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/logger"
	"codeberg.org/mutker/sensorbot/internal/sensor"
	"codeberg.org/mutker/sensorbot/internal/store"
)

const (
	// MinReadInterval is the fastest cadence DHT sensors support;
	// faster reads return cached values.
	MinReadInterval = 2 * time.Second

	retryDelay    = 200 * time.Millisecond
	complainEvery = 5 * time.Minute
)

// Appender is the record sink the poller writes into.
type Appender interface {
	Append(store.Sample) error
}

// Poller reads the sensor at a fixed cadence, appends each reading to
// the store and publishes the latest reading for concurrent readers.
//
// The next-read deadline advances by fixed increments rather than
// "now + interval", so retry delays never accumulate into drift and a
// stalled loop catches up with back-to-back reads.
type Poller struct {
	sensor   sensor.Sensor
	records  Appender
	interval time.Duration

	last        atomic.Pointer[store.Sample]
	releaseOnce sync.Once

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func New(s sensor.Sensor, records Appender, interval time.Duration) *Poller {
	if interval < MinReadInterval {
		logger.Info().Dur("configured", interval).Dur("clamped", MinReadInterval).
			Msg("read interval below sensor minimum, clamping")
		interval = MinReadInterval
	}

	return &Poller{
		sensor:   s,
		records:  records,
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Last returns the latest published reading, or nil before the first
// successful read. The returned sample is immutable; each publish
// swaps in a fresh snapshot.
func (p *Poller) Last() *store.Sample {
	return p.last.Load()
}

// Run polls the sensor until ctx is cancelled or the sensor fails
// fatally. A fatal failure releases the sensor and is returned to the
// caller; cancellation returns nil.
func (p *Poller) Run(ctx context.Context) error {
	defer p.Release()

	// gap marker: records resume here after a restart
	if err := p.records.Append(store.NewGapMarker(p.now())); err != nil {
		p.logAppendError(err)
	}

	firstRead := true
	nextRead := p.now()
	lastComplain := nextRead

	for ctx.Err() == nil {
		now := p.now()

		// complain if the cadence cannot be met, but not too often,
		// so a sustained stall yields one warning and one gap marker
		// per window instead of one per loop tick
		if now.After(nextRead.Add(p.interval)) && now.Sub(lastComplain) > complainEvery {
			logger.Warn().Time("deadline", nextRead).Msg("could not read from sensor within time")
			lastComplain = now
			if err := p.records.Append(store.NewGapMarker(now)); err != nil {
				p.logAppendError(err)
			}
		}

		temperature, humidity, err := p.sensor.Read()
		if err != nil {
			if sensor.IsTransient(err) {
				logger.Debug().Err(err).Msg("transient sensor read failure")
				p.sleep(ctx, retryDelay)
				continue
			}

			logger.Error().Err(err).Msg("unrecoverable sensor failure")
			return err
		}

		if math.IsNaN(temperature) || math.IsNaN(humidity) {
			logger.Debug().Msg("incomplete sensor data, trying again")
			p.sleep(ctx, retryDelay)
			continue
		}

		if firstRead {
			firstRead = false
			logger.Info().Msg("sensor working")
		}

		reading := store.Sample{Timestamp: now, Temperature: temperature, Humidity: humidity}
		p.last.Store(&reading)
		if err := p.records.Append(reading); err != nil {
			p.logAppendError(err)
		}

		nextRead = nextRead.Add(p.interval)
		if wait := nextRead.Sub(p.now()); wait > 0 {
			p.sleep(ctx, wait)
		}
	}

	return nil
}

// Release closes the sensor. Safe to call multiple times and from the
// shutdown path while Run is still unwinding.
func (p *Poller) Release() {
	p.releaseOnce.Do(func() {
		if err := p.sensor.Close(); err != nil {
			logger.Warn().Err(err).Msg("could not release sensor")
		}
	})
}

func (p *Poller) logAppendError(err error) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg("could not append record")
		return
	}
	logger.Error().Err(err).Msg("could not append record")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
