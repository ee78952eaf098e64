package testutil

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("keeps attributes added with With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "growth")).Warn("no results")

		AssertLogContains(t, handler, slog.LevelWarn, "no results")
		assert.True(t, handler.ContainsAttr("component", "growth"))
		assert.Equal(t, 1, handler.Count(), "derived loggers share one store")
	})

	t.Run("filters by level and clears", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)

		handler.Clear()
		assert.Zero(t, handler.Count())
		AssertNoErrors(t, handler)
	})
}

func TestMeasurementFixtures(t *testing.T) {
	rows := MeasurementRows()
	require.Len(t, rows, 18)
	assert.Equal(t, "Ampicillin", rows[0].CompoundName)

	csv := MeasurementCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	assert.Len(t, lines, 19)
	assert.True(t, strings.HasPrefix(lines[0], "experiment_name,researcher,compound_name"))
}
