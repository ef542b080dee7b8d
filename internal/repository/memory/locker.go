package memory

import (
	"context"
	"sync"
	"time"

	"ChallengeUp/internal/tracker"
)

// Locker 进程内互斥锁，ttl 被忽略
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	for {
		l.mu.Lock()
		waitCh, busy := l.held[key]
		if !busy {
			released := make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, tracker.ErrLockNotAcquired
		}
	}
}
