package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowRunning(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, end, 5)

	require.False(t, w.Running(start.Add(-time.Second)))
	require.True(t, w.Running(start))
	require.True(t, w.Running(start.AddDate(0, 0, 20)))
	require.True(t, w.Running(end))
	require.False(t, w.Running(end.Add(time.Second)))
}

func TestWindowUploadOpenBoundaries(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, end, 5)

	// Exactly at the end the internship is still running, not uploadable.
	require.False(t, w.UploadOpen(end))
	require.True(t, w.UploadOpen(end.Add(time.Second)))
	require.True(t, w.UploadOpen(end.AddDate(0, 0, 3)))

	deadline := end.AddDate(0, 0, 5)
	require.Equal(t, deadline, w.UploadDeadline())
	// The deadline itself is inclusive.
	require.True(t, w.UploadOpen(deadline))
	require.False(t, w.UploadOpen(deadline.Add(time.Second)))
	require.False(t, w.UploadOpen(end.AddDate(0, 0, 6)))
}

func TestWindowDefaultGrace(t *testing.T) {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	w := NewWindow(end.AddDate(0, -1, 0), end, 0)
	require.Equal(t, end.AddDate(0, 0, DefaultUploadGraceDays), w.UploadDeadline())
}
