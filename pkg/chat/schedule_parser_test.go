package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleSpec(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("tomorrow with minutes and meridiem", func(t *testing.T) {
		p, err := ParseScheduleSpec("tomorrow 9:45am", now)
		require.NoError(t, err)
		assert.Equal(t, KindOnce, p.Kind)
		assert.Equal(t, time.Date(2026, 8, 2, 9, 45, 0, 0, time.UTC), p.RunAt)
	})

	t.Run("today in the future", func(t *testing.T) {
		p, err := ParseScheduleSpec("today 11pm", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC), p.RunAt)
	})

	t.Run("today already passed rolls to tomorrow", func(t *testing.T) {
		p, err := ParseScheduleSpec("today 9am", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC), p.RunAt)
	})

	t.Run("daily", func(t *testing.T) {
		p, err := ParseScheduleSpec("daily 07:30", now)
		require.NoError(t, err)
		assert.Equal(t, KindDaily, p.Kind)
		assert.Equal(t, "07:30", p.DailyTime)
	})

	t.Run("daily rejects bad hour", func(t *testing.T) {
		_, err := ParseScheduleSpec("daily 25:00", now)
		assert.Error(t, err)
	})

	t.Run("every minutes", func(t *testing.T) {
		p, err := ParseScheduleSpec("every 15m", now)
		require.NoError(t, err)
		assert.Equal(t, KindInterval, p.Kind)
		assert.Equal(t, 15, p.IntervalMinutes)
	})

	t.Run("every hours converts to minutes", func(t *testing.T) {
		p, err := ParseScheduleSpec("every 2h", now)
		require.NoError(t, err)
		assert.Equal(t, 120, p.IntervalMinutes)
	})

	t.Run("in seconds/minutes/hours", func(t *testing.T) {
		p, err := ParseScheduleSpec("in 30s", now)
		require.NoError(t, err)
		assert.Equal(t, KindOnce, p.Kind)
		assert.Equal(t, now.Add(30*time.Second), p.RunAt)

		p, err = ParseScheduleSpec("in 5m", now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(5*time.Minute), p.RunAt)

		p, err = ParseScheduleSpec("in 1h", now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), p.RunAt)
	})

	t.Run("rejects unrecognized spec", func(t *testing.T) {
		_, err := ParseScheduleSpec("next tuesday", now)
		assert.Error(t, err)
	})
}

func TestDetectNaturalLanguageSchedule(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("temporal cue plus verb triggers scheduling", func(t *testing.T) {
		parsed, instruction, ok := DetectNaturalLanguageSchedule("tomorrow 9:45am send today's PnL", now)
		require.True(t, ok)
		assert.Equal(t, KindOnce, parsed.Kind)
		assert.Contains(t, instruction, "send today's PnL")
	})

	t.Run("temporal cue without verb does not trigger", func(t *testing.T) {
		_, _, ok := DetectNaturalLanguageSchedule("tomorrow 9:45am is a holiday", now)
		assert.False(t, ok)
	})

	t.Run("verb without temporal cue does not trigger", func(t *testing.T) {
		_, _, ok := DetectNaturalLanguageSchedule("please schedule a review of my positions", now)
		assert.False(t, ok)
	})

	t.Run("plain goal text does not trigger", func(t *testing.T) {
		_, _, ok := DetectNaturalLanguageSchedule("what is my current BTC exposure", now)
		assert.False(t, ok)
	})

	t.Run("in N unit cue with run verb triggers", func(t *testing.T) {
		parsed, _, ok := DetectNaturalLanguageSchedule("in 10m run a scan", now)
		require.True(t, ok)
		assert.Equal(t, KindOnce, parsed.Kind)
	})
}
