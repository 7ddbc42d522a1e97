package sensor

import (
	"strings"

	"codeberg.org/mutker/sensorbot/internal/errors"
)

// Sensor is a temperature/humidity capability.
type Sensor interface {
	// Read performs one measurement. Recoverable failures are reported
	// as transient errors (see IsTransient); anything else is fatal to
	// the sensor. Temperature is in °C, humidity in %.
	Read() (temperature, humidity float64, err error)

	// Close releases the sensor. Idempotent.
	Close() error
}

// Kind identifies a supported sensor model.
type Kind string

const (
	KindDHT11     Kind = "DHT11"
	KindDHT22     Kind = "DHT22"
	KindSimulated Kind = "simulated"
)

// ParseKind maps a configured sensor type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(name) {
	case "DHT11":
		return KindDHT11, nil
	case "DHT22":
		return KindDHT22, nil
	case "SIMULATED":
		return KindSimulated, nil
	default:
		return "", errors.New().WithData(ErrInvalidType, name)
	}
}

type Config struct {
	Kind Kind
	// Pin is the GPIO pin the sensor's data line is wired to.
	Pin int
}

// New constructs the sensor for the configured kind.
func New(cfg Config) (Sensor, error) {
	switch cfg.Kind {
	case KindDHT11, KindDHT22:
		return newDHT(cfg.Kind, cfg.Pin)
	case KindSimulated:
		return NewSimulated(), nil
	default:
		return nil, errors.New().WithData(ErrInvalidType, string(cfg.Kind))
	}
}
