package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/keypad-lock/internal/keypad"
	"github.com/sweeney/keypad-lock/internal/lock"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "audit", "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFromEvent(t *testing.T) {
	a, ok := FromEvent(lock.Event{Timestamp: testStart, Type: lock.EventGranted, Key: keypad.KeySubmit, Length: 4})
	require.True(t, ok)
	assert.True(t, a.Granted)
	assert.Equal(t, 4, a.Length)
	assert.Equal(t, ReasonMatch, a.Reason)
	assert.Equal(t, testStart, a.At)
	assert.NotEmpty(t, a.ID)

	a, ok = FromEvent(lock.Event{Timestamp: testStart, Type: lock.EventDenied, Length: 0})
	require.True(t, ok)
	assert.False(t, a.Granted)
	assert.Equal(t, ReasonMismatch, a.Reason)

	for _, typ := range []lock.EventType{lock.EventKey, lock.EventKeyDropped, lock.EventReset} {
		_, ok := FromEvent(lock.Event{Type: typ})
		assert.False(t, ok, "type %s", typ)
	}
}

func TestFromEventUniqueIDs(t *testing.T) {
	ev := lock.Event{Timestamp: testStart, Type: lock.EventDenied}
	a, _ := FromEvent(ev)
	b, _ := FromEvent(ev)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStoreRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := lock.Event{Timestamp: testStart.Add(time.Duration(i) * time.Minute), Type: lock.EventDenied, Length: i + 1}
		if i == 2 {
			ev.Type = lock.EventGranted
		}
		a, _ := FromEvent(ev)
		require.NoError(t, s.Record(ctx, a))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Granted, "newest first")
	assert.Equal(t, 3, got[0].Length)
	assert.Equal(t, testStart.Add(2*time.Minute), got[0].At)
	assert.Equal(t, ReasonMatch, got[0].Reason)
	assert.False(t, got[2].Granted)
	assert.Equal(t, 1, got[2].Length)

	got, err = s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoreReopenKeepsAttemptsAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attempts.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	a, _ := FromEvent(lock.Event{Timestamp: testStart, Type: lock.EventGranted, Length: 4})
	require.NoError(t, s.Record(ctx, a))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestStoreDuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := Attempt{ID: "same", At: testStart, Reason: ReasonMismatch}
	require.NoError(t, s.Record(ctx, a))
	assert.Error(t, s.Record(ctx, a))
}

func TestStoreRecordCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _ := FromEvent(lock.Event{Timestamp: testStart, Type: lock.EventDenied})
	assert.ErrorIs(t, s.Record(ctx, a), context.Canceled)
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_init.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = parseVersion("init.sql")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Record(ctx, Attempt{ID: "a", At: testStart}))
	require.NoError(t, m.Record(ctx, Attempt{ID: "b", At: testStart.Add(time.Second)}))
	require.NoError(t, m.Record(ctx, Attempt{ID: "c", At: testStart.Add(time.Second)}))

	got, err := m.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.Len(t, m.All(), 3)
	assert.Equal(t, "a", m.All()[0].ID)

	m.RecordError = errors.New("disk full")
	assert.EqualError(t, m.Record(ctx, Attempt{ID: "d"}), "disk full")
}
