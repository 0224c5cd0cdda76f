package probe

import (
	"net/http/httptrace"
	"sync"
)

// ConnStats counts how probes obtained their connections. A high
// reused share means keep-alive is holding and measured round trips
// are not paying handshake costs.
type ConnStats struct {
	mu     sync.Mutex
	dialed int64
	reused int64
}

// ConnSnapshot is a point-in-time copy of the counters.
type ConnSnapshot struct {
	Dialed int64 `json:"dialed"`
	Reused int64 `json:"reused"`
}

func NewConnStats() *ConnStats {
	return &ConnStats{}
}

// trace returns httptrace hooks recording into s.
func (s *ConnStats) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			s.mu.Lock()
			if info.Reused {
				s.reused++
			} else {
				s.dialed++
			}
			s.mu.Unlock()
		},
	}
}

// Snapshot returns a consistent copy of the counters.
func (s *ConnStats) Snapshot() ConnSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ConnSnapshot{Dialed: s.dialed, Reused: s.reused}
}

// ReusedShare is the fraction of probes served from a kept-alive
// connection, zero when nothing has run yet.
func (s *ConnStats) ReusedShare() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.dialed + s.reused
	if total == 0 {
		return 0
	}
	return float64(s.reused) / float64(total)
}
