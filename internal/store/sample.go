package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
)

// TimeLayout is the timestamp format of stored records, second precision.
const TimeLayout = "2006-01-02 15:04:05"

// Sample is a single sensor measurement. Temperature and humidity may
// be NaN, which marks a known gap in the data (process start, sensor
// stall) as opposed to the mere absence of a record.
//
// The stored textual form of NaN is "NaN", the fmt rendering of a NaN
// float under %.2f; ParseFloat accepts it back case-insensitively.
type Sample struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
}

// NewGapMarker returns a gap-marker sample for the given instant.
func NewGapMarker(ts time.Time) Sample {
	return Sample{
		Timestamp:   ts,
		Temperature: math.NaN(),
		Humidity:    math.NaN(),
	}
}

// IsGap reports whether the sample marks missing data.
func (s Sample) IsGap() bool {
	return math.IsNaN(s.Temperature) || math.IsNaN(s.Humidity)
}

// encode renders the sample as one record row:
// "YYYY-MM-DD HH:MM:SS <temp> <hum>", two decimal digits.
func (s Sample) encode() string {
	return fmt.Sprintf("%s %.2f %.2f", s.Timestamp.Format(TimeLayout), s.Temperature, s.Humidity)
}

// parseSample parses one record row. The row must split into exactly
// four whitespace-separated fields.
func parseSample(line string) (Sample, error) {
	errFactory := errors.New()

	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Sample{}, errFactory.WithMessage(ErrRecordParse, "malformed record row")
	}

	ts, err := time.ParseInLocation(TimeLayout, fields[0]+" "+fields[1], time.Local)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrRecordParse, err)
	}

	temp, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrRecordParse, err)
	}

	hum, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrRecordParse, err)
	}

	return Sample{Timestamp: ts, Temperature: temp, Humidity: hum}, nil
}
