package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter 行程內的限流器，容量有上限
type MemoryLimiter struct {
	window     time.Duration
	maxCallers int
	now        func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryLimiter 創建記憶體限流器
func NewMemoryLimiter(window time.Duration, maxCallers int) *MemoryLimiter {
	if maxCallers <= 0 {
		maxCallers = 10000
	}
	return &MemoryLimiter{
		window:     window,
		maxCallers: maxCallers,
		now:        time.Now,
		last:       make(map[string]time.Time),
	}
}

// Allow 被拒絕的請求不會更新時間戳記
func (l *MemoryLimiter) Allow(_ context.Context, callerID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[callerID]; ok {
		if elapsed := now.Sub(last); elapsed < l.window {
			return Decision{Allowed: false, RetryAfter: l.window - elapsed}, nil
		}
	} else if len(l.last) >= l.maxCallers {
		l.evict(now)
	}

	l.last[callerID] = now
	return Decision{Allowed: true}, nil
}

// Len 目前追蹤的呼叫者數量
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// evict 先移除過期項目，仍滿載時移除最舊的項目，需持有鎖
func (l *MemoryLimiter) evict(now time.Time) {
	for id, t := range l.last {
		if now.Sub(t) >= l.window {
			delete(l.last, id)
		}
	}
	if len(l.last) < l.maxCallers {
		return
	}

	var (
		oldestID string
		oldestAt time.Time
	)
	for id, t := range l.last {
		if oldestID == "" || t.Before(oldestAt) {
			oldestID, oldestAt = id, t
		}
	}
	delete(l.last, oldestID)
}
