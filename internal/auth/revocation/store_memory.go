package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is an in-process TokenRevocationList for tests and single-node
// development. Expired entries are swept lazily on read and by a background
// janitor.
type MemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time

	stop chan struct{}
	once sync.Once
}

func NewMemoryTRL() *MemoryTRL {
	trl := &MemoryTRL{
		revoked: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go trl.janitor()
	return trl
}

func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (t *MemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiry, ok := t.revoked[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		t.mu.Lock()
		delete(t.revoked, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (t *MemoryTRL) Close() {
	t.once.Do(func() { close(t.stop) })
}

func (t *MemoryTRL) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			t.mu.Lock()
			for jti, expiry := range t.revoked {
				if now.After(expiry) {
					delete(t.revoked, jti)
				}
			}
			t.mu.Unlock()
		}
	}
}
