package backup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

func newSlot(t *testing.T) *fallback.FileSlot {
	t.Helper()
	slot, err := fallback.NewFileSlot(t.TempDir())
	require.NoError(t, err)
	return slot
}

// countingProvider returns sampleSnapshot and counts calls.
func countingProvider(calls *atomic.Int32) SnapshotProvider {
	return SnapshotProviderFunc(func(context.Context) (*types.Snapshot, error) {
		calls.Add(1)
		return sampleSnapshot(), nil
	})
}

func TestBackupNow(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir(), newSlot(t), nil, WithClock(fixedClock))
	var calls atomic.Int32

	require.NoError(t, m.BackupNow(ctx, countingProvider(&calls)))

	backup := m.LatestAutoBackup(ctx)
	require.NotNil(t, backup)
	assert.True(t, backup.BackedUpAt.Equal(fixedNow))
	assert.Equal(t, types.SnapshotFormatVersion, backup.Version)
	assert.Equal(t, sampleSnapshot().Counts(), backup.Counts())

	snap := m.RestoreFromAutoBackup(ctx)
	require.NotNil(t, snap)
	assert.Len(t, *snap.Organizations, 2)
}

func TestBackupNow_Failures(t *testing.T) {
	ctx := context.Background()

	noSlot := New(t.TempDir(), nil, nil)
	assert.Error(t, noSlot.BackupNow(ctx, SnapshotProviderFunc(func(context.Context) (*types.Snapshot, error) {
		return sampleSnapshot(), nil
	})))

	m := New(t.TempDir(), newSlot(t), nil)
	boom := errors.New("database closed")
	err := m.BackupNow(ctx, SnapshotProviderFunc(func(context.Context) (*types.Snapshot, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)

	err = m.BackupNow(ctx, SnapshotProviderFunc(func(context.Context) (*types.Snapshot, error) {
		return nil, nil
	}))
	assert.Error(t, err)
	assert.Nil(t, m.RestoreFromAutoBackup(ctx), "failed backups write nothing")
}

func TestEnableAutoBackup(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir(), newSlot(t), nil, WithClock(fixedClock))
	var calls atomic.Int32

	cancel, err := m.EnableAutoBackup(ctx, countingProvider(&calls), 10*time.Millisecond)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond,
		"each tick pulls a fresh snapshot")

	cancel()
	cancel()
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no ticks after cancel")

	backup := m.LatestAutoBackup(ctx)
	require.NotNil(t, backup)
	assert.Len(t, *backup.Organizations, 2)
}

func TestEnableAutoBackup_ContextEnds(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	m := New(t.TempDir(), newSlot(t), nil)
	var calls atomic.Int32

	cancel, err := m.EnableAutoBackup(ctx, countingProvider(&calls), time.Hour)
	require.NoError(t, err)
	stop()

	done := make(chan struct{})
	go func() {
		cancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not return after the context ended")
	}
	assert.Zero(t, calls.Load())
}

func TestEnableAutoBackup_Invalid(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32

	m := New(t.TempDir(), newSlot(t), nil)
	for _, interval := range []time.Duration{0, -time.Second} {
		cancel, err := m.EnableAutoBackup(ctx, countingProvider(&calls), interval)
		assert.ErrorIs(t, err, types.ErrIntervalInvalid)
		assert.Nil(t, cancel)
	}

	noSlot := New(t.TempDir(), nil, nil)
	_, err := noSlot.EnableAutoBackup(ctx, countingProvider(&calls), time.Minute)
	assert.Error(t, err)
}

func TestRestoreFromAutoBackup_Missing(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, New(t.TempDir(), nil, nil).RestoreFromAutoBackup(ctx), "no slot")

	slot := newSlot(t)
	m := New(t.TempDir(), slot, nil)
	assert.Nil(t, m.RestoreFromAutoBackup(ctx), "empty slot")

	require.NoError(t, slot.Put(ctx, fallback.KeyAutoBackup, []byte("{not json")))
	assert.Nil(t, m.RestoreFromAutoBackup(ctx), "corrupt slot")
}
