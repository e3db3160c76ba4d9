// Package repository defines the pipeline's storage contracts: the tenant
// monitoring-config registry, the cloud credential store consulted by
// fallback attribution, and the idempotent event store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

var (
	// ErrConfigNotFound means no active monitoring config matched the lookup.
	ErrConfigNotFound = errors.New("monitoring config not found")

	// ErrCredentialNotFound means a config has no stored cloud credential.
	ErrCredentialNotFound = errors.New("cloud credential not found")
)

// ConfigRegistry is the tenant-owned monitoring configuration store. The
// pipeline only reads configs and bumps their rolling counters.
type ConfigRegistry interface {
	// FindActiveByLogGroup returns the single active config registered for
	// the given log group, or ErrConfigNotFound.
	FindActiveByLogGroup(ctx context.Context, logGroup string) (*models.MonitoringConfig, error)

	// FindActiveByWebACL returns the single active config registered for
	// the given web ACL name, or ErrConfigNotFound.
	FindActiveByWebACL(ctx context.Context, webACLName string) (*models.MonitoringConfig, error)

	// ListActive returns all active configs, for the owner-account fallback
	// scan.
	ListActive(ctx context.Context) ([]*models.MonitoringConfig, error)

	// IncrementCounters atomically adds the newly persisted event counts to
	// the config's rolling counters and stamps the last-event time. It must
	// be a single increment, not read-modify-write, so concurrent batches
	// for the same tenant stay correct.
	IncrementCounters(ctx context.Context, configID string, newEvents, newBlocked int64, now time.Time) error
}

// CredentialStore resolves the cloud account identity attached to a config.
// Used only by the owner-account attribution fallback.
type CredentialStore interface {
	ResolveAccount(ctx context.Context, configID string) (*models.CloudCredential, error)
}

// EventStore persists firewall events keyed by their content hash.
type EventStore interface {
	// UpsertIfAbsent writes the event unless one with the same id already
	// exists. It reports whether a row was actually inserted; a duplicate
	// is an expected outcome, not an error.
	UpsertIfAbsent(ctx context.Context, ev *models.PersistedEvent) (inserted bool, err error)
}

// Store bundles the three contracts when they live in one database.
type Store interface {
	ConfigRegistry
	CredentialStore
	EventStore
	Close()
}
