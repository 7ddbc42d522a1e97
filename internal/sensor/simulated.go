package sensor

import (
	"math/rand"
	"sync"

	"codeberg.org/mutker/sensorbot/internal/errors"
)

// Simulated is a sensor that random-walks around room conditions.
// Useful for development hosts without a wired sensor.
type Simulated struct {
	mu          sync.Mutex
	temperature float64
	humidity    float64
	closed      bool
}

func NewSimulated() *Simulated {
	return &Simulated{
		temperature: 21.0,
		humidity:    45.0,
	}
}

func (s *Simulated) Read() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0, errors.New().WithMessage(ErrFatal, "sensor is closed")
	}

	s.temperature = clampFloat(s.temperature+(rand.Float64()-0.5), -10, 50)
	s.humidity = clampFloat(s.humidity+(rand.Float64()-0.5)*2, 0, 100)

	return s.temperature, s.humidity, nil
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	return nil
}

func clampFloat(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
