package service

import (
	"sync"

	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

// DraftLocker serialises mutations per class draft. A busy draft is rejected, never queued.
type DraftLocker struct {
	mu      sync.Mutex
	busy    map[string]struct{}
	metrics *MetricsService
}

// NewDraftLocker builds an empty locker.
func NewDraftLocker() *DraftLocker {
	return &DraftLocker{busy: make(map[string]struct{})}
}

// TryLock acquires the draft or returns ErrOperationPending. The returned func releases it.
func (l *DraftLocker) TryLock(draftID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.busy[draftID]; taken {
		l.metrics.RecordLockContention()
		return nil, appErrors.ErrOperationPending
	}
	l.busy[draftID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, draftID)
			l.mu.Unlock()
		})
	}, nil
}

// SetMetrics reports rejected mutations to m.
func (l *DraftLocker) SetMetrics(m *MetricsService) {
	l.mu.Lock()
	l.metrics = m
	l.mu.Unlock()
}
