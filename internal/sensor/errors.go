package sensor

import "codeberg.org/mutker/sensorbot/internal/errors"

const (
	// ErrReadFailed marks a transient read failure. DHT sensors fail
	// reads routinely; callers retry without surfacing these.
	ErrReadFailed = errors.ErrorCode("sensor_read_failed")
	// ErrFatal marks an unrecoverable sensor failure; the owning loop
	// releases the sensor and terminates.
	ErrFatal       = errors.ErrorCode("sensor_fatal")
	ErrInvalidType = errors.ErrorCode("sensor_invalid_type")
	ErrUnsupported = errors.ErrorCode("sensor_unsupported_platform")
)

// Transient wraps a recoverable read error.
func Transient(err error) error {
	return errors.New().Wrap(ErrReadFailed, err)
}

// IsTransient reports whether err is a recoverable read failure.
func IsTransient(err error) bool {
	return errors.HasCode(err, ErrReadFailed)
}
