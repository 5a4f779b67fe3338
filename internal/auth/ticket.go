package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTicketTTL is how long a WebSocket ticket stays valid.
const DefaultTicketTTL = 60 * time.Second

// ticketBytes is the number of random bytes in a ticket.
const ticketBytes = 32

// TicketStore holds pending single-use WebSocket tickets.
type TicketStore struct {
	ttl     time.Duration
	mu      sync.Mutex
	tickets map[string]time.Time
}

// NewTicketStore creates a store whose tickets expire after ttl.
func NewTicketStore(ttl time.Duration) *TicketStore {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketStore{ttl: ttl, tickets: make(map[string]time.Time)}
}

// TTL returns the ticket lifetime.
func (s *TicketStore) TTL() time.Duration {
	return s.ttl
}

// Issue creates and records a new ticket.
func (s *TicketStore) Issue() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	ticket := hex.EncodeToString(b)

	s.mu.Lock()
	s.tickets[ticket] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return ticket
}

// Redeem consumes ticket and reports whether it was valid.
func (s *TicketStore) Redeem(ticket string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.tickets[ticket]
	if !ok {
		return false
	}
	delete(s.tickets, ticket)
	return time.Now().Before(expiresAt)
}

// Len returns the number of stored tickets, expired ones included.
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Sweep drops expired tickets.
func (s *TicketStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for ticket, expiresAt := range s.tickets {
		if now.After(expiresAt) {
			delete(s.tickets, ticket)
		}
	}
}

// SweepLoop calls Sweep every TTL until ctx is cancelled.
func (s *TicketStore) SweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
