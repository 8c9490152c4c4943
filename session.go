package tripgraph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session owns the state that survives across a conversation's turns: the
// fact store, the turn counter, and a per-session lock. The fetch plan does
// NOT live here; each turn builds a fresh plan and discards it at synthesis.
//
// Everything turn-scoped or conversation-scoped is reachable from this one
// object and passed explicitly, never ambient.
type Session struct {
	ID        string
	TripID    string
	Traveler  string
	Facts     *FactStore
	StartTime time.Time

	turnCount atomic.Int64
	// turnMu serializes whole turns. Within a turn dispatch is
	// single-threaded, but two requests racing on the same session would
	// interleave fact-store merges, which are not commutative-safe.
	turnMu sync.Mutex
}

// NewSession creates a session for one conversation about one trip.
func NewSession(tripID, traveler string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		TripID:    tripID,
		Traveler:  traveler,
		Facts:     NewFactStore(),
		StartTime: time.Now(),
	}
}

// BeginTurn takes the session lock and returns the 1-based turn number.
// The caller must pair it with EndTurn.
func (s *Session) BeginTurn() int {
	s.turnMu.Lock()
	return int(s.turnCount.Add(1))
}

// EndTurn releases the session lock.
func (s *Session) EndTurn() {
	s.turnMu.Unlock()
}

// TurnCount returns the number of turns started so far.
func (s *Session) TurnCount() int {
	return int(s.turnCount.Load())
}
