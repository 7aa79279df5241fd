package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorder(t *testing.T) {
	logger, rec := NewTestLogger(t)
	logger.With(slog.String("component", "svc")).WithGroup("req").
		Warn("slow request", slog.Int("ms", 1200))
	logger.Info("started")

	records := rec.Records()
	require.Len(t, records, 2)

	r := AssertLogged(t, rec, slog.LevelWarn, "slow")
	assert.Equal(t, "svc", r.Attrs["component"])
	assert.EqualValues(t, 1200, r.Attrs["req.ms"])

	_, ok := rec.Find(slog.LevelError, "started")
	assert.False(t, ok)
	AssertNoErrors(t, rec)
}

func TestHourlyFile(t *testing.T) {
	got := HourlyFile("2020 01 01 00 1.0 ...")
	assert.Equal(t, "number_of_header_lines: 2\n"+HourlyHeader+"\n2020 01 01 00 1.0 ...\n", got)
}
