package library

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Budget tracks the GitHub API rate limit reported in response headers and
// holds requests back once it is spent until the reset time passes.
type Budget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	now       func() time.Time
}

func NewBudget() *Budget {
	return &Budget{remaining: -1, now: time.Now}
}

func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire waits until a request may be sent. An unknown budget (no
// response observed yet) never blocks.
func (b *Budget) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()
		var until time.Time
		switch {
		case now.Before(b.cooldown):
			until = b.cooldown
		case b.remaining == 0 && now.Before(b.reset):
			until = b.reset
		}
		if until.IsZero() {
			if b.remaining > 0 {
				b.remaining--
			}
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		timer := time.NewTimer(until.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Observe updates the budget from X-RateLimit-* and Retry-After headers.
func (b *Budget) Observe(resp *http.Response) {
	if resp == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
		if until := b.now().Add(time.Duration(v) * time.Second); until.After(b.cooldown) {
			b.cooldown = until
		}
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil && v >= 0 {
		b.remaining = v
	}
	if v, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil && v > 0 {
		b.reset = time.Unix(v, 0)
	}
}
