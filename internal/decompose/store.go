package decompose

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LookupMode selects which proposal states a Get may return.
type LookupMode int

const (
	// LookupActive resolves only pending proposals.
	LookupActive LookupMode = iota
	// LookupAny resolves proposals in any state, including terminal ones.
	LookupAny
)

// DefaultSweepInterval is how often the background sweeper marks
// expired proposals when StartSweeper is used.
const DefaultSweepInterval = 5 * time.Minute

// Store holds proposals in memory. All access is serialized under one
// mutex; the maps are small (proposals are short-lived) so contention is
// not a concern. Expiry is lazy: any lookup or transition that touches a
// pending proposal past its deadline marks it expired first, so
// correctness never depends on the sweeper running.
type Store struct {
	mu        sync.Mutex
	proposals map[string]*Proposal
	now       func() time.Time
	logger    *zap.Logger
}

// NewStore creates an empty proposal store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		proposals: make(map[string]*Proposal),
		now:       time.Now,
		logger:    logger,
	}
}

// Put stores a new proposal. Returns ErrConflict if the id is already
// present.
func (s *Store) Put(p *Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.proposals[p.ID]; ok {
		return ErrConflict
	}
	cp := *p
	s.proposals[p.ID] = &cp
	return nil
}

// Get returns a copy of the proposal. In LookupActive mode only pending
// proposals resolve: expired ones return ErrExpired, other terminal
// states return ErrNotFound. LookupAny returns the proposal regardless
// of state.
func (s *Store) Get(id string, mode LookupMode) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.expireLocked(p)

	if mode == LookupActive && p.Status != StatusPending {
		if p.Status == StatusExpired {
			return nil, ErrExpired
		}
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Transition atomically moves the proposal from one status to another
// and returns a copy of the updated proposal. This is the only way a
// proposal reaches a terminal state through the API, which makes it the
// serialization point for concurrent execute and cancel calls: exactly
// one caller observes the from-state and wins.
//
// Returns ErrNotFound if the id is unknown, ErrExpired if the proposal
// timed out before the transition, and ErrConflict if it is in any
// other state than from.
func (s *Store) Transition(id string, from, to Status) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.expireLocked(p)

	if p.Status != from {
		if p.Status == StatusExpired {
			return nil, ErrExpired
		}
		return nil, ErrConflict
	}
	p.Status = to
	cp := *p
	return &cp, nil
}

// ActiveCount returns the number of pending, unexpired proposals.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.proposals {
		s.expireLocked(p)
		if p.Status == StatusPending {
			n++
		}
	}
	return n
}

// expireLocked marks a pending proposal expired once its deadline
// passes. Callers must hold s.mu.
func (s *Store) expireLocked(p *Proposal) {
	if p.Status == StatusPending && s.now().After(p.ExpiresAt) {
		p.Status = StatusExpired
		s.logger.Debug("proposal expired",
			zap.String("proposal_id", p.ID),
			zap.Int64("task_id", p.OriginalTaskID))
	}
}

// StartSweeper runs a background loop that marks expired proposals and
// drops terminal ones older than their deadline, so long-lived daemons
// do not accumulate dead entries. It returns when ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, p := range s.proposals {
		s.expireLocked(p)
		if p.Status != StatusPending && s.now().After(p.ExpiresAt) {
			delete(s.proposals, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept proposals", zap.Int("removed", removed))
	}
}
