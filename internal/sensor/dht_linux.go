//go:build linux && cgo

package sensor

import (
	"sync/atomic"

	"codeberg.org/mutker/sensorbot/internal/errors"
	dht "github.com/d2r2/go-dht"
)

// dhtSensor reads a DHT11/DHT22 on a GPIO pin through the d2r2/go-dht
// driver. The driver bit-bangs the wire protocol, so individual reads
// fail routinely; all driver errors are reported as transient.
type dhtSensor struct {
	kind   dht.SensorType
	pin    int
	closed atomic.Bool
}

func newDHT(kind Kind, pin int) (Sensor, error) {
	sensorType := dht.DHT22
	if kind == KindDHT11 {
		sensorType = dht.DHT11
	}

	return &dhtSensor{kind: sensorType, pin: pin}, nil
}

func (d *dhtSensor) Read() (float64, float64, error) {
	if d.closed.Load() {
		return 0, 0, errors.New().WithMessage(ErrFatal, "sensor is closed")
	}

	temperature, humidity, err := dht.ReadDHTxx(d.kind, d.pin, false)
	if err != nil {
		return 0, 0, Transient(err)
	}

	return float64(temperature), float64(humidity), nil
}

func (d *dhtSensor) Close() error {
	d.closed.Store(true)
	return nil
}
