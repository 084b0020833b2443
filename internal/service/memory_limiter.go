package service

import (
	"context"
	"sync"
	"time"
)

const (
	limiterMaxSenders     = 10000
	limiterCleanupEvery   = time.Minute
	limiterIdleExpiry     = 5 * time.Minute
	limiterWindowDuration = time.Minute
)

type senderHits struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// MemoryLimiter is the single-instance inbound limiter used when Redis is
// not configured. It keeps a per-minute sliding window per sender.
type MemoryLimiter struct {
	mu          sync.Mutex
	perMinute   int
	senders     map[string]*senderHits
	lastCleanup time.Time
	now         func() time.Time
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		perMinute:   perMinute,
		senders:     make(map[string]*senderHits),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, sender string) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	entry, ok := l.senders[sender]
	if !ok {
		entry = &senderHits{}
		l.senders[sender] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-limiterWindowDuration)
	kept := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	entry.timestamps = kept

	if len(entry.timestamps) >= l.perMinute {
		return false
	}
	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (l *MemoryLimiter) cleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < limiterCleanupEvery {
		return
	}
	l.lastCleanup = now

	for sender, entry := range l.senders {
		if now.Sub(entry.lastSeen) > limiterIdleExpiry {
			delete(l.senders, sender)
		}
	}

	if len(l.senders) > limiterMaxSenders {
		drop := len(l.senders) / 5
		for sender := range l.senders {
			if drop == 0 {
				break
			}
			delete(l.senders, sender)
			drop--
		}
	}
}
