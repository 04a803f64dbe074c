package tracedb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/radio"
)

var testChannel = radio.Channel{
	FrequencyHz: 868_300_000,
	BandwidthHz: 125_000,
	PowerDBm:    14,
	Index:       2,
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenAppliesMigrations(t *testing.T) {
	store := openTestStore(t)

	var n int
	err := store.QueryRow(`SELECT COUNT(*) FROM trace_sessions`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = store.QueryRow(`SELECT COUNT(*) FROM trace_packets`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	store, err := Open(path)
	require.NoError(t, err)
	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)
	require.NoError(t, sess.End())
	require.NoError(t, store.Close())

	// Reopening must not rerun migrations or lose data.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	sessions, err := store.Sessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Sent,
		Time:      base,
		Payload:   []byte("ping"),
		Info:      radio.PacketInfo{Length: 4},
	}))
	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Received,
		Time:      base.Add(5 * time.Millisecond),
		Payload:   []byte("pong"),
		Info:      radio.PacketInfo{RSSI: -71, LQI: 48, Length: 4},
	}))
	require.NoError(t, sess.End())

	got, err := store.Packets(sess.ID(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, capture.Sent, got[0].Direction)
	assert.Equal(t, []byte("ping"), got[0].Payload)
	assert.True(t, got[0].Time.Equal(base), "first packet time %v, want %v", got[0].Time, base)

	assert.Equal(t, capture.Received, got[1].Direction)
	assert.Equal(t, []byte("pong"), got[1].Payload)
	assert.Equal(t, int16(-71), got[1].Info.RSSI)
	assert.Equal(t, uint8(48), got[1].Info.LQI)
	assert.Equal(t, 4, got[1].Info.Length)
}

func TestWriteRecordZeroTimeGetsStamped(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)

	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Sent,
		Payload:   []byte{1},
	}))

	got, err := store.Packets(sess.ID(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Time.IsZero())
}

func TestWriteRecordAfterEnd(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)
	require.NoError(t, sess.End())

	err = sess.WriteRecord(capture.Record{Direction: capture.Sent, Payload: []byte{1}})
	assert.Error(t, err)

	// End is safe to call again.
	assert.NoError(t, sess.End())
}

func TestSessionsListing(t *testing.T) {
	store := openTestStore(t)

	open, err := store.BeginSession("radio0", testChannel)
	require.NoError(t, err)
	require.NoError(t, open.WriteRecord(capture.Record{Direction: capture.Sent, Payload: []byte{1, 2}}))

	closed, err := store.BeginSession("radio1", radio.Channel{FrequencyHz: 433_920_000})
	require.NoError(t, err)
	require.NoError(t, closed.End())

	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := make(map[string]SessionInfo, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	got, ok := byID[open.ID()]
	require.True(t, ok, "open session missing from listing")
	assert.Equal(t, "radio0", got.Device)
	assert.Equal(t, testChannel, got.Channel)
	assert.Equal(t, int64(1), got.Packets)
	assert.True(t, got.EndedAt.IsZero(), "open session has an end time")
	assert.False(t, got.StartedAt.IsZero())

	got, ok = byID[closed.ID()]
	require.True(t, ok, "closed session missing from listing")
	assert.Equal(t, "radio1", got.Device)
	assert.Equal(t, int64(0), got.Packets)
	assert.False(t, got.EndedAt.IsZero(), "closed session missing its end time")
}

func TestSessionStats(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)

	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Sent, Payload: []byte("abc"),
	}))
	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Sent, Payload: []byte("defgh"),
	}))
	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Received, Payload: []byte("x"),
		Info: radio.PacketInfo{RSSI: -60, LQI: 40, Length: 1},
	}))
	require.NoError(t, sess.WriteRecord(capture.Record{
		Direction: capture.Received, Payload: []byte("yz"),
		Info: radio.PacketInfo{RSSI: -70, LQI: 60, Length: 2},
	}))

	stats, err := store.SessionStats(sess.ID())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Directions sort alphabetically: received before sent.
	rx := stats[0]
	assert.Equal(t, "received", rx.Direction)
	assert.Equal(t, int64(2), rx.Packets)
	assert.Equal(t, int64(3), rx.Bytes)
	assert.InDelta(t, -65.0, rx.MeanRSSI, 1e-9)
	assert.Equal(t, int64(-70), rx.MinRSSI)
	assert.Equal(t, int64(-60), rx.MaxRSSI)
	assert.InDelta(t, 50.0, rx.MeanLQI, 1e-9)

	tx := stats[1]
	assert.Equal(t, "sent", tx.Direction)
	assert.Equal(t, int64(2), tx.Packets)
	assert.Equal(t, int64(8), tx.Bytes)
}

func TestPacketsLimit(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.BeginSession("sim0", testChannel)
	require.NoError(t, err)

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, sess.WriteRecord(capture.Record{
			Direction: capture.Sent,
			Time:      base.Add(time.Duration(i) * time.Millisecond),
			Payload:   []byte{byte(i)},
		}))
	}

	got, err := store.Packets(sess.ID(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Time order means the earliest three.
	for i, rec := range got {
		assert.Equal(t, []byte{byte(i)}, rec.Payload)
	}
}

func TestPacketsUnknownSession(t *testing.T) {
	store := openTestStore(t)
	got, err := store.Packets("no-such-session", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
