// Package chart renders recorded samples as a dual-axis time-series
// plot: temperature on the left axis, humidity on the right, sharing
// the time axis and grid.
package chart

import (
	"os"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/store"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const ErrRenderFailed = errors.ErrorCode("chart_render_failed")

// loneReadingDotWidth marks single-reading segments, which have no
// line to draw.
const loneReadingDotWidth = 4.0

var (
	colorTemperature = drawing.Color{R: 0xd6, G: 0x2c, B: 0x28, A: 0xff}
	colorHumidity    = drawing.Color{R: 0x28, G: 0x52, B: 0xd6, A: 0xff}
)

type Config struct {
	// Path of the rendered PNG artifact.
	Path string
	// Width and Height in inches, scaled by DPI to pixels.
	Width  float64
	Height float64
	DPI    int
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Path == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "plot path must not be empty")
	}
	if c.Width <= 0 || c.Height <= 0 || c.DPI <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "plot dimensions must be positive")
	}

	return nil
}

// PNGRenderer renders sample series to a PNG file via go-chart.
type PNGRenderer struct {
	cfg Config
}

func New(cfg Config) (*PNGRenderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &PNGRenderer{cfg: cfg}, nil
}

// segment is a run of consecutive real readings between gap markers.
type segment struct {
	times        []time.Time
	temperatures []float64
	humidities   []float64
}

// splitSegments cuts the samples at every gap marker. Each returned
// segment is non-empty; the markers themselves are not drawn.
func splitSegments(samples []store.Sample) []segment {
	var segments []segment
	var current segment
	for _, s := range samples {
		if s.IsGap() {
			if len(current.times) > 0 {
				segments = append(segments, current)
				current = segment{}
			}
			continue
		}
		current.times = append(current.times, s.Timestamp)
		current.temperatures = append(current.temperatures, s.Temperature)
		current.humidities = append(current.humidities, s.Humidity)
	}
	if len(current.times) > 0 {
		segments = append(segments, current)
	}

	return segments
}

// buildSeries emits one temperature and one humidity series per
// segment, so the drawn line breaks at every gap instead of striding
// across it. A lone reading has no line to draw and gets a dot.
func buildSeries(segments []segment) []gochart.Series {
	series := make([]gochart.Series, 0, 2*len(segments))
	for _, seg := range segments {
		temperatureStyle := gochart.Style{StrokeColor: colorTemperature}
		humidityStyle := gochart.Style{StrokeColor: colorHumidity}
		if len(seg.times) == 1 {
			temperatureStyle.DotColor = colorTemperature
			temperatureStyle.DotWidth = loneReadingDotWidth
			humidityStyle.DotColor = colorHumidity
			humidityStyle.DotWidth = loneReadingDotWidth
		}

		series = append(series,
			gochart.TimeSeries{
				Name:    "Temperature",
				Style:   temperatureStyle,
				XValues: seg.times,
				YValues: seg.temperatures,
			},
			gochart.TimeSeries{
				Name:    "Humidity",
				YAxis:   gochart.YAxisSecondary,
				Style:   humidityStyle,
				XValues: seg.times,
				YValues: seg.humidities,
			})
	}

	return series
}

// Render plots the samples and writes the artifact to the configured
// path. Gap markers break the drawn line into separate strokes; at
// least one real reading is required.
func (r *PNGRenderer) Render(samples []store.Sample) (string, error) {
	errFactory := errors.New()

	segments := splitSegments(samples)
	if len(segments) == 0 {
		return "", errFactory.WithMessage(ErrRenderFailed, "not enough readings to plot")
	}

	graph := gochart.Chart{
		Width:  int(r.cfg.Width * float64(r.cfg.DPI)),
		Height: int(r.cfg.Height * float64(r.cfg.DPI)),
		DPI:    float64(r.cfg.DPI),
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02 15:04"),
		},
		YAxis: gochart.YAxis{
			Name:  "Temperature in °C",
			Style: gochart.Style{FontColor: colorTemperature},
			GridMajorStyle: gochart.Style{
				StrokeColor: gochart.ColorAlternateGray,
				StrokeWidth: 1.0,
			},
		},
		YAxisSecondary: gochart.YAxis{
			Name:  "Humidity in %",
			Style: gochart.Style{FontColor: colorHumidity},
		},
		Series: buildSeries(segments),
	}

	// a single reading yields a zero-width time range, which the chart
	// engine rejects; pad explicit ranges around the one point
	if len(segments) == 1 && len(segments[0].times) == 1 {
		only := segments[0]
		graph.XAxis.Range = &gochart.ContinuousRange{
			Min: gochart.TimeToFloat64(only.times[0].Add(-time.Minute)),
			Max: gochart.TimeToFloat64(only.times[0].Add(time.Minute)),
		}
		graph.YAxis.Range = &gochart.ContinuousRange{
			Min: only.temperatures[0] - 1,
			Max: only.temperatures[0] + 1,
		}
		graph.YAxisSecondary.Range = &gochart.ContinuousRange{
			Min: only.humidities[0] - 1,
			Max: only.humidities[0] + 1,
		}
	}

	file, err := os.Create(r.cfg.Path)
	if err != nil {
		return "", errFactory.Wrap(ErrRenderFailed, err)
	}
	defer file.Close()

	if err := graph.Render(gochart.PNG, file); err != nil {
		return "", errFactory.Wrap(ErrRenderFailed, err)
	}

	return r.cfg.Path, nil
}
