package session

import (
	"sync"
	"time"
)

// entry tracks the newest accepted solve sequence for one client.
type entry struct {
	seq        uint64
	expiration time.Time
}

// Store is a thread-safe TTL map of client → newest solve sequence. It
// backs the caller-side request-superseding contract: each solve is tagged
// with a monotonically increasing sequence, and results whose sequence is
// no longer the newest at completion time are discarded by the caller.
type Store struct {
	data  map[string]entry
	mutex sync.Mutex
	ttl   time.Duration
}

// NewStore creates a sequence store. Entries expire after ttl of
// inactivity; a background goroutine sweeps expired clients.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Store{
		data: make(map[string]entry),
		ttl:  ttl,
	}
	go s.cleanupExpired()
	return s
}

// Begin records seq as the newest sequence for the client and reports
// whether this request is current. It returns false when a newer sequence
// has already been accepted, in which case the solve should be skipped.
func (s *Store) Begin(client string, seq uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.data[client]
	if exists && time.Now().Before(e.expiration) && e.seq > seq {
		return false
	}
	s.data[client] = entry{seq: seq, expiration: time.Now().Add(s.ttl)}
	return true
}

// IsCurrent reports whether seq is still the newest accepted sequence for
// the client. Called after a solve completes to decide whether the result
// may be delivered.
func (s *Store) IsCurrent(client string, seq uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.data[client]
	if !exists || time.Now().After(e.expiration) {
		return true
	}
	return e.seq <= seq
}

// cleanupExpired removes expired entries every 10 minutes.
func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mutex.Lock()
		now := time.Now()
		for client, e := range s.data {
			if now.After(e.expiration) {
				delete(s.data, client)
			}
		}
		s.mutex.Unlock()
	}
}
