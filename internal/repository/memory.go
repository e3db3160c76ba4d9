package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// InMemoryStore implements Store with maps. Used by tests and dev mode.
type InMemoryStore struct {
	configs     map[string]*models.MonitoringConfig
	credentials map[string]*models.CloudCredential
	events      map[string]*models.PersistedEvent
	mu          sync.RWMutex
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		configs:     make(map[string]*models.MonitoringConfig),
		credentials: make(map[string]*models.CloudCredential),
		events:      make(map[string]*models.PersistedEvent),
	}
}

// AddConfig registers a monitoring config (test/dev setup helper).
func (s *InMemoryStore) AddConfig(cfg *models.MonitoringConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.configs[cfg.ID] = &c
}

// AddCredential registers a cloud credential (test/dev setup helper).
func (s *InMemoryStore) AddCredential(cred *models.CloudCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.credentials[cred.ConfigID] = &c
}

func (s *InMemoryStore) FindActiveByLogGroup(ctx context.Context, logGroup string) (*models.MonitoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cfg := range s.configs {
		if cfg.IsActive && cfg.LogGroupName == logGroup {
			c := *cfg
			return &c, nil
		}
	}
	return nil, ErrConfigNotFound
}

func (s *InMemoryStore) FindActiveByWebACL(ctx context.Context, webACLName string) (*models.MonitoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cfg := range s.configs {
		if cfg.IsActive && cfg.WebACLName == webACLName {
			c := *cfg
			return &c, nil
		}
	}
	return nil, ErrConfigNotFound
}

func (s *InMemoryStore) ListActive(ctx context.Context) ([]*models.MonitoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configs []*models.MonitoringConfig
	for _, cfg := range s.configs {
		if cfg.IsActive {
			c := *cfg
			configs = append(configs, &c)
		}
	}
	// Same deterministic order as the SQL implementation.
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })

	return configs, nil
}

func (s *InMemoryStore) IncrementCounters(ctx context.Context, configID string, newEvents, newBlocked int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, exists := s.configs[configID]
	if !exists {
		return ErrConfigNotFound
	}

	cfg.EventsToday += newEvents
	cfg.BlockedToday += newBlocked
	t := now
	cfg.LastEventAt = &t
	return nil
}

func (s *InMemoryStore) ResolveAccount(ctx context.Context, configID string) (*models.CloudCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.credentials[configID]
	if !exists {
		return nil, ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (s *InMemoryStore) UpsertIfAbsent(ctx context.Context, ev *models.PersistedEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return false, nil
	}
	e := *ev
	s.events[ev.ID] = &e
	return true, nil
}

// GetConfig returns a config by id (test inspection helper).
func (s *InMemoryStore) GetConfig(id string) (*models.MonitoringConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.configs[id]
	if !exists {
		return nil, false
	}
	c := *cfg
	return &c, true
}

// EventCount returns the number of stored events (test inspection helper).
func (s *InMemoryStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// GetEvent returns a stored event by id (test inspection helper).
func (s *InMemoryStore) GetEvent(id string) (*models.PersistedEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, exists := s.events[id]
	if !exists {
		return nil, false
	}
	e := *ev
	return &e, true
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() {}
