package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := OpenHistory(context.Background(), filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistoryStore_SaveAndGet(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	run := sampleRun("run-1", "level-1", 2)
	run.Stats.InputSegments = 7
	require.NoError(t, h.Save(ctx, run))

	got, err := h.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Source, got.Source)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Rooms, got.Rooms)
	assert.Equal(t, run.Metrics, got.Metrics)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, 7, got.Stats.InputSegments)
}

func TestHistoryStore_GetMissing(t *testing.T) {
	h := openTestHistory(t)
	_, err := h.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestHistoryStore_List(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, src := range []string{"a", "b", "a", "a"} {
		run := sampleRun(string(rune('w'+i)), src, 1)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, h.Save(ctx, run))
	}

	all, err := h.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "z", all[0].ID, "newest first")

	onlyA, err := h.List(ctx, ListOptions{Source: "a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "z", onlyA[0].ID)
	assert.Equal(t, "y", onlyA[1].ID)

	none, err := h.List(ctx, ListOptions{Source: "c"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestHistoryStore_SaveReplaces(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	run := sampleRun("run-1", "a", 1)
	require.NoError(t, h.Save(ctx, run))
	run.Rooms = nil
	run.Metrics = newMetrics(nil, 0)
	require.NoError(t, h.Save(ctx, run))

	got, err := h.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got.Rooms)
	assert.Equal(t, 0, got.Metrics.RoomsCount)
}

func TestHistoryStore_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := OpenHistory(ctx, path)
	require.NoError(t, err)
	require.NoError(t, h.Save(ctx, sampleRun("run-1", "a", 1)))
	require.NoError(t, h.Close())

	h, err = OpenHistory(ctx, path)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	got, err := h.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Source)
}
