package core

// limiter.go bounds how many extraction jobs run at once.
//
// Each job holds a hyperd process, an unpacked archive and every table of
// the extract in memory, so the limit protects the host. When all slots are
// taken, new jobs wait up to maxWait before failing with ErrTooManyJobs.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyJobs is returned when every job slot stays occupied for the
// whole wait timeout.
var ErrTooManyJobs = errors.New("too many concurrent extraction jobs, please try again later")

const (
	DefaultMaxConcurrentJobs = 2
	DefaultMaxWaitTime       = 30 * time.Second
)

// JobLimiter hands out a fixed number of job slots.
type JobLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active is zero
}

// NewJobLimiter creates a limiter that allows at most maxConcurrent jobs.
// Non-positive arguments select the defaults.
func NewJobLimiter(maxConcurrent int, maxWait time.Duration) *JobLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentJobs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	idle := make(chan struct{})
	close(idle)
	return &JobLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire waits for a job slot. Every successful Acquire must be paired with
// a Release.
func (l *JobLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyJobs
	}

	l.mu.Lock()
	l.active++
	if l.active == 1 {
		l.idle = make(chan struct{})
	}
	l.mu.Unlock()
	return nil
}

// Release frees a slot taken by Acquire.
func (l *JobLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of running jobs.
func (l *JobLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until no job is running or ctx is done.
func (l *JobLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
