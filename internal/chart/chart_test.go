package chart

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensorbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gochart "github.com/wcharczuk/go-chart/v2"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	return Config{
		Path:   filepath.Join(t.TempDir(), "plot.png"),
		Width:  8,
		Height: 5,
		DPI:    72,
	}
}

func reading(base time.Time, minute int) store.Sample {
	return store.Sample{
		Timestamp:   base.Add(time.Duration(minute) * time.Minute),
		Temperature: 20 + float64(minute%5),
		Humidity:    50 - float64(minute%7),
	}
}

func TestRenderWritesArtifact(t *testing.T) {
	renderer, err := New(testConfig(t))
	require.NoError(t, err)

	base := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	var samples []store.Sample
	for i := 0; i < 30; i++ {
		samples = append(samples, reading(base, i))
	}
	samples = append(samples, store.NewGapMarker(base.Add(31*time.Minute)))

	path, err := renderer.Render(samples)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

// a gap marker must break the drawn line: readings on either side of
// it land in separate series instead of one continuous stroke across
// the gap
func TestGapBreaksDrawnLine(t *testing.T) {
	base := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	samples := []store.Sample{
		reading(base, 0),
		reading(base, 1),
		store.NewGapMarker(base.Add(2 * time.Minute)),
		store.NewGapMarker(base.Add(3 * time.Minute)),
		reading(base, 4),
		reading(base, 5),
		reading(base, 6),
	}

	segments := splitSegments(samples)
	require.Len(t, segments, 2)
	assert.Len(t, segments[0].times, 2)
	assert.Len(t, segments[1].times, 3)

	// one temperature and one humidity series per segment
	series := buildSeries(segments)
	require.Len(t, series, 4)
	for i, s := range series {
		ts, ok := s.(gochart.TimeSeries)
		require.True(t, ok, "series %d", i)
		if i%2 == 0 {
			assert.Equal(t, gochart.YAxisPrimary, ts.YAxis, "series %d", i)
		} else {
			assert.Equal(t, gochart.YAxisSecondary, ts.YAxis, "series %d", i)
		}
	}

	renderer, err := New(testConfig(t))
	require.NoError(t, err)
	path, err := renderer.Render(samples)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

// a lone reading between gaps has no line to draw and is marked with
// a dot instead
func TestLoneReadingDrawsDot(t *testing.T) {
	base := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	segments := splitSegments([]store.Sample{
		reading(base, 0),
		reading(base, 1),
		store.NewGapMarker(base.Add(2 * time.Minute)),
		reading(base, 3),
	})
	require.Len(t, segments, 2)

	series := buildSeries(segments)
	require.Len(t, series, 4)

	lineSeries := series[0].(gochart.TimeSeries)
	assert.Zero(t, lineSeries.Style.DotWidth)

	dotSeries := series[2].(gochart.TimeSeries)
	assert.Equal(t, loneReadingDotWidth, dotSeries.Style.DotWidth)
	assert.Equal(t, colorTemperature, dotSeries.Style.DotColor)
}

func TestRenderSingleReading(t *testing.T) {
	renderer, err := New(testConfig(t))
	require.NoError(t, err)

	samples := []store.Sample{
		store.NewGapMarker(time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)),
		{
			Timestamp:   time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC),
			Temperature: 20,
			Humidity:    50,
		},
	}

	path, err := renderer.Render(samples)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderNeedsReadings(t *testing.T) {
	renderer, err := New(testConfig(t))
	require.NoError(t, err)

	samples := []store.Sample{
		store.NewGapMarker(time.Now()),
		store.NewGapMarker(time.Now().Add(time.Minute)),
	}

	_, err = renderer.Render(samples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough readings")
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Path: "", Width: 8, Height: 5, DPI: 72})
	require.Error(t, err)

	_, err = New(Config{Path: "plot.png", Width: 0, Height: 5, DPI: 72})
	require.Error(t, err)
}
