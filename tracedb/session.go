package tracedb

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/radio"
)

// Session is one recording run against one radio and channel. It implements
// capture.Sink, so it can back a capture.Radio directly.
type Session struct {
	store *Store
	id    string

	mu    sync.Mutex
	ended bool
}

var _ capture.Sink = (*Session)(nil)

// BeginSession opens a new trace session for the named device on the given
// channel.
func (s *Store) BeginSession(device string, ch radio.Channel) (*Session, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO trace_sessions (
			session_id, device, frequency_hz, bandwidth_hz, power_dbm,
			channel_index, started_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, device, ch.FrequencyHz, ch.BandwidthHz, ch.PowerDBm,
		ch.Index, time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &Session{store: s, id: id}, nil
}

// ID returns the session identifier.
func (sn *Session) ID() string {
	return sn.id
}

// WriteRecord implements capture.Sink.
func (sn *Session) WriteRecord(rec capture.Record) error {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	if sn.ended {
		return fmt.Errorf("session %s already ended", sn.id)
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := sn.store.Exec(
		`INSERT INTO trace_packets (
			session_id, direction, ts_ns, length, rssi, lqi, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sn.id, rec.Direction.String(), ts.UnixNano(), len(rec.Payload),
		rec.Info.RSSI, rec.Info.LQI, rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("record packet: %w", err)
	}
	return nil
}

// End closes the session. Further WriteRecord calls fail.
func (sn *Session) End() error {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	if sn.ended {
		return nil
	}
	sn.ended = true

	_, err := sn.store.Exec(
		`UPDATE trace_sessions SET ended_at_ns = ? WHERE session_id = ?`,
		time.Now().UnixNano(), sn.id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string        `json:"id"`
	Device    string        `json:"device"`
	Channel   radio.Channel `json:"channel"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"` // zero while the session is open
	Packets   int64         `json:"packets"`
}

// Sessions returns stored sessions, most recent first.
func (s *Store) Sessions() ([]SessionInfo, error) {
	rows, err := s.Query(
		`SELECT session_id, device, frequency_hz, bandwidth_hz, power_dbm,
			channel_index, started_at_ns, ended_at_ns,
			(SELECT COUNT(*) FROM trace_packets p WHERE p.session_id = t.session_id)
		FROM trace_sessions t ORDER BY started_at_ns DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			freq    int64
			bw      int64
			power   int64
			index   int64
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(
			&info.ID, &info.Device, &freq, &bw, &power,
			&index, &started, &ended, &info.Packets,
		); err != nil {
			return nil, err
		}
		info.Channel = radio.Channel{
			FrequencyHz: uint32(freq),
			BandwidthHz: uint32(bw),
			PowerDBm:    int8(power),
			Index:       uint16(index),
		}
		info.StartedAt = time.Unix(0, started)
		if ended.Valid {
			info.EndedAt = time.Unix(0, ended.Int64)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Packets returns up to limit packets of a session in time order. A limit
// of zero or less returns at most 500.
func (s *Store) Packets(sessionID string, limit int) ([]capture.Record, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.Query(
		`SELECT direction, ts_ns, length, rssi, lqi, payload
		FROM trace_packets WHERE session_id = ?
		ORDER BY ts_ns ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []capture.Record
	for rows.Next() {
		var (
			rec       capture.Record
			direction string
			ts        int64
			length    int64
			rssi      int64
			lqi       int64
		)
		if err := rows.Scan(&direction, &ts, &length, &rssi, &lqi, &rec.Payload); err != nil {
			return nil, err
		}
		dir, ok := parseDirection(direction)
		if !ok {
			return nil, fmt.Errorf("unknown direction %q in session %s", direction, sessionID)
		}
		rec.Direction = dir
		rec.Time = time.Unix(0, ts)
		rec.Info = radio.PacketInfo{
			RSSI:      int16(rssi),
			LQI:       uint8(lqi),
			Timestamp: time.Unix(0, ts),
			Length:    int(length),
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseDirection(s string) (capture.Direction, bool) {
	switch s {
	case capture.Sent.String():
		return capture.Sent, true
	case capture.Received.String():
		return capture.Received, true
	}
	return 0, false
}

// DirectionStats aggregates one direction of a session.
type DirectionStats struct {
	Direction string  `json:"direction"`
	Packets   int64   `json:"packets"`
	Bytes     int64   `json:"bytes"`
	MeanRSSI  float64 `json:"mean_rssi"`
	MinRSSI   int64   `json:"min_rssi"`
	MaxRSSI   int64   `json:"max_rssi"`
	MeanLQI   float64 `json:"mean_lqi"`
}

// SessionStats aggregates a session's packets per direction.
func (s *Store) SessionStats(sessionID string) ([]DirectionStats, error) {
	rows, err := s.Query(
		`SELECT direction, COUNT(*), COALESCE(SUM(length), 0),
			COALESCE(AVG(rssi), 0), COALESCE(MIN(rssi), 0),
			COALESCE(MAX(rssi), 0), COALESCE(AVG(lqi), 0)
		FROM trace_packets WHERE session_id = ?
		GROUP BY direction ORDER BY direction`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []DirectionStats
	for rows.Next() {
		var ds DirectionStats
		if err := rows.Scan(
			&ds.Direction, &ds.Packets, &ds.Bytes,
			&ds.MeanRSSI, &ds.MinRSSI, &ds.MaxRSSI, &ds.MeanLQI,
		); err != nil {
			return nil, err
		}
		stats = append(stats, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
