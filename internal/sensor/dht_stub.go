//go:build !linux || !cgo

package sensor

import "codeberg.org/mutker/sensorbot/internal/errors"

// GPIO access is only available on linux; other platforms get the
// simulated sensor.
func newDHT(kind Kind, _ int) (Sensor, error) {
	return nil, errors.New().WithData(ErrUnsupported, string(kind))
}
