package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/radiohal/capture"
)

// Sample is one point of the sampled statistics history.
type Sample struct {
	Time  time.Time     `json:"time"`
	Stats capture.Stats `json:"stats"`

	// TxPerSec and RxPerSec are packet rates over the interval since the
	// previous sample, zero for the first.
	TxPerSec float64 `json:"tx_per_sec"`
	RxPerSec float64 `json:"rx_per_sec"`
}

// history is a bounded sample buffer with thread-safe operations.
type history struct {
	mu   sync.Mutex
	max  int
	data []Sample
}

func newHistory(max int) *history {
	return &history{max: max}
}

func (h *history) add(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = append(h.data, s)
	if len(h.data) > h.max {
		h.data = h.data[len(h.data)-h.max:]
	}
}

func (h *history) last() (Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.data) == 0 {
		return Sample{}, false
	}
	return h.data[len(h.data)-1], true
}

func (h *history) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

// samples returns a copy of the buffer, oldest first.
func (h *history) samples() []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Sample, len(h.data))
	copy(out, h.data)
	return out
}

// runSampler folds periodic snapshots into the history until ctx ends.
func (ws *WebServer) runSampler(ctx context.Context) {
	ticker := ws.clock.NewTicker(ws.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			ws.sample(now)
		}
	}
}

// sample records one snapshot, deriving packet rates from the previous one.
func (ws *WebServer) sample(now time.Time) {
	if ws.source == nil {
		return
	}
	s := Sample{Time: now, Stats: ws.source.Stats()}
	if prev, ok := ws.hist.last(); ok {
		if dt := now.Sub(prev.Time).Seconds(); dt > 0 {
			s.TxPerSec = float64(s.Stats.TxPackets-prev.Stats.TxPackets) / dt
			s.RxPerSec = float64(s.Stats.RxPackets-prev.Stats.RxPackets) / dt
		}
	}
	ws.hist.add(s)
}
