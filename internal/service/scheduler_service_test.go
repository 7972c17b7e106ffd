package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	for _, bad := range []string{"9", "24:00", "10:60", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerServiceSchedule(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.Schedule("0 0 9 * * *", func() {})
	require.NoError(t, err)
	_, err = s.Schedule("18:45", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	_, err = s.Schedule("", func() {})
	assert.Error(t, err)
	_, err = s.Schedule("every day", func() {})
	assert.Error(t, err)
	_, err = s.Schedule("25:00", func() {})
	assert.Error(t, err)

	s.Start()
	s.Stop()
}
