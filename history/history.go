package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/logger"
	"github.com/isdmx/reqbox/sandbox"
)

// DefaultLimit is the number of entries kept when no limit is configured
const DefaultLimit = 50

// ResponseSummary is the part of a response kept in history
type ResponseSummary struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
}

// Entry is one recorded exchange
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Request is the request as submitted, before any script ran.
	Request          sandbox.RequestSpec `json:"request"`
	PreRequestScript string              `json:"preRequestScript,omitempty"`
	// Sent is the request that actually went out.
	Sent     sandbox.RequestSpec `json:"sent"`
	Response ResponseSummary     `json:"response"`
}

// Store is a bounded in-memory history, newest entry first
type Store struct {
	logger *zap.Logger
	limit  int

	mu      sync.RWMutex
	entries []Entry
}

// New creates a Store keeping at most limit entries
func New(logger *zap.Logger, limit int) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		logger: logger,
		limit:  limit,
	}
}

// NewFromConfig builds the Store described by the history section
func NewFromConfig(log *zap.Logger, cfg *config.Config) *Store {
	return New(logger.Component(log, "history"), cfg.History.Limit)
}

// Add records e, assigning an ID and timestamp when missing, and returns
// the stored entry.
func (s *Store) Add(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}

	s.logger.Debug("history entry recorded",
		zap.String("id", e.ID),
		zap.Int("status", e.Response.Status),
		zap.Int("size", len(s.entries)))

	return e
}

// List returns a copy of all entries, newest first
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given ID
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Clear removes all entries
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.logger.Debug("history cleared")
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Limit returns the maximum number of entries kept
func (s *Store) Limit() int {
	return s.limit
}
