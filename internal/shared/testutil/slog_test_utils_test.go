package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 1)
		AssertLogContains(t, handler, slog.LevelInfo, "info")
		AssertNoErrors(t, handler)
	})

	t.Run("derived loggers share records and keep attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "roster_parser")).Warn("skipped")

		assert.Equal(t, 1, handler.Count())
		assert.True(t, handler.ContainsAttr("component", "roster_parser"))
	})
}

func TestCanvasExportShape(t *testing.T) {
	export := NewCanvasExport()
	rows := export.Rows()

	// header + points possible + 3 students + test student
	assert.Len(t, rows, 6)
	for _, row := range rows {
		assert.Len(t, row, len(export.Header()))
	}
	assert.Equal(t, "Student, Test", rows[len(rows)-1][0])
	assert.NotEmpty(t, export.CSV(t))
}
