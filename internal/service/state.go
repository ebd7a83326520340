// Package service holds the runtime state shared by the transports: the
// processed-wallet counter, the result reporter and the live result feed.
package service

import (
	"sync/atomic"
	"time"
)

// State tracks service-wide counters. Safe for concurrent use.
type State struct {
	processed atomic.Int64
	startedAt time.Time
	now       func() time.Time
}

// NewState starts the uptime clock.
func NewState() *State {
	return newStateAt(time.Now)
}

func newStateAt(now func() time.Time) *State {
	return &State{startedAt: now(), now: now}
}

// IncProcessed counts one more processed wallet and returns the new total.
func (s *State) IncProcessed() int64 {
	return s.processed.Add(1)
}

// Processed returns the number of processed wallets.
func (s *State) Processed() int64 {
	return s.processed.Load()
}

// StartedAt returns when the service started.
func (s *State) StartedAt() time.Time {
	return s.startedAt
}

// UptimeSeconds returns whole seconds since start.
func (s *State) UptimeSeconds() int64 {
	return int64(s.now().Sub(s.startedAt) / time.Second)
}
