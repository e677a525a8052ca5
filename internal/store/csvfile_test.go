package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-bridge/internal/weather"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestDailyCSVHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	res, err := sink.Write(day, []weather.Reading{
		reading(day.Add(-2*time.Hour), "tempf", "68", "humidity", "40"),
		reading(day.Add(-time.Hour), "tempf", "66", "humidity", "45"),
	})
	require.NoError(t, err)
	require.True(t, res.HeaderWritten)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, filepath.Join(dir, "2025-06-01.csv"), res.Path)

	res, err = sink.Write(day, []weather.Reading{
		reading(day.Add(time.Minute), "tempf", "65", "humidity", "50"),
	})
	require.NoError(t, err)
	require.False(t, res.HeaderWritten, "header must not be rewritten on the same day")

	require.Equal(t, []string{
		"timestamp,tempf,humidity",
		"2025-06-01 19:00:00,68,40",
		"2025-06-01 20:00:00,66,45",
		"2025-06-01 21:01:00,65,50",
	}, readLines(t, res.Path))
}

func TestDailyCSVNewDayNewFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	d1 := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	_, err := sink.Write(d1, []weather.Reading{reading(d1, "a", "1")})
	require.NoError(t, err)
	res, err := sink.Write(d2, []weather.Reading{reading(d2, "b", "2")})
	require.NoError(t, err)
	require.True(t, res.HeaderWritten)

	require.Equal(t, []string{"timestamp,b", "2025-06-02 21:00:00,2"}, readLines(t, res.Path))
}

func TestDailyCSVAlignsToExistingHeader(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	res, err := sink.Write(day, []weather.Reading{
		reading(day, "tempf", "68", "humidity", "40"),
		reading(day, "humidity", "41", "UV", "3"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"UV"}, res.ExtraFields)

	require.Equal(t, []string{
		"timestamp,tempf,humidity",
		"2025-06-01 21:00:00,68,40",
		"2025-06-01 21:00:00,,41,UV=3",
	}, readLines(t, res.Path))
}

func TestDailyCSVKeepsExtraFieldsAcrossFlushes(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	_, err := sink.Write(day, []weather.Reading{reading(day, "tempf", "68")})
	require.NoError(t, err)

	res, err := sink.Write(day, []weather.Reading{reading(day, "rain", "0.1", "tempf", "70", "wind", "a,b")})
	require.NoError(t, err)
	require.False(t, res.HeaderWritten)
	require.Equal(t, []string{"rain", "wind"}, res.ExtraFields)

	require.Equal(t, []string{
		"timestamp,tempf",
		"2025-06-01 21:00:00,68",
		`2025-06-01 21:00:00,70,rain=0.1,"wind=a,b"`,
	}, readLines(t, res.Path))
}

func TestDailyCSVQuotesValuesWithCommas(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	res, err := sink.Write(day, []weather.Reading{reading(day, "softwaretype", "a,b")})
	require.NoError(t, err)
	require.Equal(t, `2025-06-01 21:00:00,"a,b"`, readLines(t, res.Path)[1])
}

func TestDailyCSVEmptyBatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	sink := NewDailyCSV(dir)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	res, err := sink.Write(day, nil)
	require.NoError(t, err)
	require.Zero(t, res.Rows)
	_, err = os.Stat(res.Path)
	require.True(t, os.IsNotExist(err))
}

func TestDailyCSVWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sink := NewDailyCSV(blocker)
	day := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	_, err := sink.Write(day, []weather.Reading{reading(day, "a", "1")})
	require.Error(t, err)
}
