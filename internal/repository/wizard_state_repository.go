package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

const wizardStateKeyPrefix = "wizard:state:"

type memoryWizardEntry struct {
	state     models.WizardState
	expiresAt time.Time
}

// WizardStateRepository saves wizard positions per user in Redis, or in process memory when Redis is not configured.
type WizardStateRepository struct {
	client *redis.Client

	mu     sync.Mutex
	memory map[string]memoryWizardEntry
}

// NewWizardStateRepository builds the repository. A nil client selects the in-memory store.
func NewWizardStateRepository(client *redis.Client) *WizardStateRepository {
	return &WizardStateRepository{client: client, memory: make(map[string]memoryWizardEntry)}
}

// Save stores the state for the user.
func (r *WizardStateRepository) Save(ctx context.Context, userID string, state models.WizardState, ttl time.Duration) error {
	key := wizardStateKeyPrefix + userID
	if r.client == nil {
		r.mu.Lock()
		r.memory[key] = memoryWizardEntry{state: state, expiresAt: time.Now().Add(ttl)}
		r.mu.Unlock()
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal wizard state: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load returns the saved state or appErrors.ErrCacheMiss.
func (r *WizardStateRepository) Load(ctx context.Context, userID string) (*models.WizardState, error) {
	key := wizardStateKeyPrefix + userID
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		entry, ok := r.memory[key]
		if !ok {
			return nil, appErrors.ErrCacheMiss
		}
		if time.Now().After(entry.expiresAt) {
			delete(r.memory, key)
			return nil, appErrors.ErrCacheMiss
		}
		state := entry.state
		return &state, nil
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal wizard state: %w", err)
	}
	return &state, nil
}

// Delete forgets the saved state for the user.
func (r *WizardStateRepository) Delete(ctx context.Context, userID string) error {
	key := wizardStateKeyPrefix + userID
	if r.client == nil {
		r.mu.Lock()
		delete(r.memory, key)
		r.mu.Unlock()
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}
