package http

import (
	"sync"
	"time"
)

const (
	rateLimitWindow      = time.Minute
	rateLimitMaxRequests = 60
	rateLimitCleanupAge  = 5 * time.Minute
)

// rateLimiter applies a fixed-window per-client limit to mutating requests.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	stopCh   chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientWindow),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[clientIP]
	if !ok || now.Sub(cw.windowStart) >= rateLimitWindow {
		rl.clients[clientIP] = &clientWindow{count: 1, windowStart: now, lastSeen: now}
		return true
	}
	cw.lastSeen = now
	if cw.count >= rateLimitMaxRequests {
		return false
	}
	cw.count++
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rateLimitCleanupAge)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.removeStale(time.Now().Add(-rateLimitCleanupAge))
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *rateLimiter) removeStale(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, cw := range rl.clients {
		if cw.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop ends the cleanup goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}
