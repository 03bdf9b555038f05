package service

import (
	"context"
	"sync"
	"time"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// Feedback is the status line shown after an action.
type Feedback struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
	Code    string `json:"code,omitempty"`
}

// State is everything a session displays. It is replaced wholesale on every
// load, reset and filter change; the dataset inside is never mutated.
type State struct {
	Dataset  core.Dataset
	Roles    core.ColumnRoleIndex
	Criteria core.FilterCriteria
	Options  core.FilterOptions
	Source   string
	Feedback Feedback
	LoadedAt time.Time
}

// emptyState is what a session shows before any load and after a failure or reset.
func emptyState(criteria core.FilterCriteria, fb Feedback) State {
	return State{
		Roles:    core.UnresolvedRoles,
		Criteria: criteria,
		Options:  core.FilterOptions{Systems: []string{}, Milestones: []string{}},
		Feedback: fb,
	}
}

// loadedState installs ds, recomputing roles and options from scratch.
// Exact-match criteria that name a value the new dataset does not offer are
// dropped.
func loadedState(ds core.Dataset, source string, criteria core.FilterCriteria, fb Feedback, at time.Time) State {
	roles := core.ResolveColumns(ds.Headers)
	opts := core.BuildFilterOptions(ds.Rows, roles)

	if !contains(opts.Systems, criteria.SystemEquals) {
		criteria.SystemEquals = ""
	}
	if !contains(opts.Milestones, criteria.MilestoneEquals) {
		criteria.MilestoneEquals = ""
	}

	return State{
		Dataset:  ds,
		Roles:    roles,
		Criteria: criteria,
		Options:  opts,
		Source:   source,
		Feedback: fb,
		LoadedAt: at,
	}
}

func contains(values []string, v string) bool {
	if v == "" {
		return true
	}
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Session holds one viewer's state and the bookkeeping for its in-flight load.
type Session struct {
	ID string

	mu         sync.RWMutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	lastSeen   time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:       id,
		state:    emptyState(core.FilterCriteria{}, Feedback{}),
		lastSeen: now,
	}
}

// Snapshot returns the current state. The returned dataset shares backing
// arrays with the session but is never written to.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// begin cancels the wait context of any in-flight load and returns a context
// and generation for a new one.
func (s *Session) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.cancel = cancel
	return ctx, s.generation
}

// finish releases the load context of gen.
func (s *Session) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// supersede cancels the wait context of any in-flight load without starting
// a new one.
func (s *Session) supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}

// install replaces the state if gen is still current. build receives the
// previous state.
func (s *Session) install(gen uint64, build func(prev State) State) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		return s.state, false
	}
	s.state = build(s.state)
	return s.state, true
}

// replace unconditionally swaps in a new state derived from the previous one.
func (s *Session) replace(build func(prev State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = build(s.state)
	return s.state
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// loading reports whether a load is in flight.
func (s *Session) loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}
