package testing

import (
	"context"
	"sync"
)

// Scheduler records the yields a runtime makes between init batches. All
// methods are safe for concurrent use.
type Scheduler struct {
	mu     sync.Mutex
	yields int
	limit  int
	cancel context.CancelFunc
}

// NewScheduler returns a Scheduler that never cancels.
func NewScheduler() *Scheduler {
	return &Scheduler{limit: -1}
}

// Yield counts the yield and cancels once the limit is reached.
func (s *Scheduler) Yield(ctx context.Context) error {
	s.mu.Lock()
	s.yields++
	hit := s.limit >= 0 && s.yields >= s.limit
	cancel := s.cancel
	s.mu.Unlock()
	if hit && cancel != nil {
		cancel()
	}
	return ctx.Err()
}

// Yields returns the number of yields seen so far.
func (s *Scheduler) Yields() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yields
}

// CancelAfter arranges for cancel to be called on the n-th yield.
func (s *Scheduler) CancelAfter(n int, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.cancel = cancel
}

// Reset clears the yield count and any pending cancellation.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yields = 0
	s.limit = -1
	s.cancel = nil
}
