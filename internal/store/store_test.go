package store_test

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensorbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, dir string, retention int) *store.Store {
	t.Helper()

	s, err := store.New(store.Config{Directory: dir, RetentionDays: retention})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func at(day, clock string) time.Time {
	ts, err := time.ParseInLocation(store.TimeLayout, day+" "+clock, time.Local)
	if err != nil {
		panic(err)
	}

	return ts
}

func TestAppendAndQueryAcrossRotations(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir, 7)

	var appended []store.Sample
	days := []string{"2024-03-01", "2024-03-02", "2024-03-03"}
	for d, day := range days {
		for h := 0; h < 4; h++ {
			sample := store.Sample{
				Timestamp:   at(day, fmt.Sprintf("%02d:00:00", 6+h)),
				Temperature: 20.0 + float64(d) + float64(h)*0.25,
				Humidity:    40.0 + float64(h),
			}
			require.NoError(t, s.Append(sample))
			appended = append(appended, sample)
		}
	}

	// two midnight boundaries crossed
	rotated, err := filepath.Glob(filepath.Join(dir, store.DefaultBaseName+".*"))
	require.NoError(t, err)
	assert.Len(t, rotated, 2)

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	require.Equal(t, len(appended), records.Len())

	for i, sample := range records.Samples {
		assert.True(t, sample.Timestamp.Equal(appended[i].Timestamp),
			"sample %d out of order: %v", i, sample.Timestamp)
		assert.InDelta(t, appended[i].Temperature, sample.Temperature, 1e-9)
		assert.InDelta(t, appended[i].Humidity, sample.Humidity, 1e-9)
	}
}

func TestQueryRange(t *testing.T) {
	s := newStore(t, t.TempDir(), 7)

	for _, clock := range []string{"10:00:00", "11:00:00", "12:00:00", "13:00:00"} {
		require.NoError(t, s.Append(store.Sample{
			Timestamp:   at("2024-03-01", clock),
			Temperature: 20,
			Humidity:    50,
		}))
	}

	start := at("2024-03-01", "11:00:00")
	end := at("2024-03-01", "12:00:00")

	// both bounds inclusive
	records, err := s.Query(&start, &end)
	require.NoError(t, err)
	require.Equal(t, 2, records.Len())
	assert.True(t, records.Samples[0].Timestamp.Equal(start))
	assert.True(t, records.Samples[1].Timestamp.Equal(end))

	open, err := s.Query(&start, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, open.Len())
}

func TestQuerySkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir, 7)

	shard := filepath.Join(dir, store.DefaultBaseName+".2024-01-01")
	content := "2024-01-01 10:00:00 20.00 50.00\n" +
		"2024-01-01 10:00:02 notanumber 50.00\n" +
		"2024-01-01 10:00:04 21.00 51.00\n"
	require.NoError(t, os.WriteFile(shard, []byte(content), 0o644))

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, records.Len())
	assert.InDelta(t, 20.0, records.Samples[0].Temperature, 1e-9)
	assert.InDelta(t, 21.0, records.Samples[1].Temperature, 1e-9)
}

func TestQueryToleratesPartialTrailingRow(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir, 7)

	require.NoError(t, s.Append(store.Sample{
		Timestamp:   at("2024-01-01", "10:00:00"),
		Temperature: 20,
		Humidity:    50,
	}))

	// a concurrent reader may see a partially written last line
	current := filepath.Join(dir, store.DefaultBaseName)
	f, err := os.OpenFile(current, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("2024-01-01 10:00:02 21.")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, records.Len())
}

func TestGapMarkersStoredButExcludedFromStats(t *testing.T) {
	s := newStore(t, t.TempDir(), 7)

	require.NoError(t, s.Append(store.NewGapMarker(at("2024-01-01", "09:59:58"))))
	require.NoError(t, s.Append(store.Sample{
		Timestamp: at("2024-01-01", "10:00:00"), Temperature: 20, Humidity: 50,
	}))
	require.NoError(t, s.Append(store.Sample{
		Timestamp: at("2024-01-01", "10:00:02"), Temperature: 22, Humidity: 48,
	}))

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, records.Len())

	assert.True(t, records.Samples[0].IsGap())
	assert.True(t, math.IsNaN(records.Samples[0].Temperature))

	assert.InDelta(t, 20.0, records.Stats.Temperature.Min.Value, 1e-9)
	assert.InDelta(t, 22.0, records.Stats.Temperature.Max.Value, 1e-9)
	assert.InDelta(t, 48.0, records.Stats.Humidity.Min.Value, 1e-9)
	assert.InDelta(t, 50.0, records.Stats.Humidity.Max.Value, 1e-9)
}

func TestNaNRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir, 7)

	require.NoError(t, s.Append(store.NewGapMarker(at("2024-01-01", "10:00:00"))))

	data, err := os.ReadFile(filepath.Join(dir, store.DefaultBaseName))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 10:00:00 NaN NaN\n", string(data))

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, records.Len())
	assert.True(t, records.Samples[0].IsGap())
}

func TestRetentionPrunesOldestShards(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir, 2)

	for _, day := range []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"} {
		require.NoError(t, s.Append(store.Sample{
			Timestamp: at(day, "12:00:00"), Temperature: 20, Humidity: 50,
		}))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, store.DefaultBaseName+".*"))
	require.NoError(t, err)
	require.Len(t, rotated, 2)
	assert.Equal(t, filepath.Join(dir, store.DefaultBaseName+".2024-03-03"), rotated[0])
	assert.Equal(t, filepath.Join(dir, store.DefaultBaseName+".2024-03-04"), rotated[1])

	// pruned days are gone from queries, remaining days survive
	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, records.Len())
}

func TestAppendAfterCloseFails(t *testing.T) {
	s := newStore(t, t.TempDir(), 7)
	require.NoError(t, s.Close())

	err := s.Append(store.Sample{Timestamp: at("2024-01-01", "10:00:00"), Temperature: 20, Humidity: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is closed")
}

func TestAdoptsExistingShardDay(t *testing.T) {
	dir := t.TempDir()

	current := filepath.Join(dir, store.DefaultBaseName)
	require.NoError(t, os.WriteFile(current, []byte("2024-03-01 23:59:58 20.00 50.00\n"), 0o644))
	mtime := at("2024-03-01", "23:59:58")
	require.NoError(t, os.Chtimes(current, mtime, mtime))

	// a restart after midnight must rotate the old day out on the
	// first append instead of mixing two days in one shard
	s := newStore(t, dir, 7)
	require.NoError(t, s.Append(store.Sample{
		Timestamp: at("2024-03-02", "00:00:02"), Temperature: 20, Humidity: 50,
	}))

	_, err := os.Stat(filepath.Join(dir, store.DefaultBaseName+".2024-03-01"))
	require.NoError(t, err)

	records, err := s.Query(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, records.Len())
}
