package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

const configColumns = `
	id, organization_id, monitored_account_id, log_group_name,
	web_acl_name, is_active, events_today, blocked_today, last_event_at
`

// FindActiveByLogGroup returns the active config for a log group.
func (s *PostgresStore) FindActiveByLogGroup(ctx context.Context, logGroup string) (*models.MonitoringConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM monitoring_configs
		WHERE log_group_name = $1 AND is_active = true
		LIMIT 1
	`, configColumns)

	return s.scanConfig(s.pool.QueryRow(ctx, query, logGroup))
}

// FindActiveByWebACL returns the active config for a web ACL name.
func (s *PostgresStore) FindActiveByWebACL(ctx context.Context, webACLName string) (*models.MonitoringConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM monitoring_configs
		WHERE web_acl_name = $1 AND is_active = true
		LIMIT 1
	`, configColumns)

	return s.scanConfig(s.pool.QueryRow(ctx, query, webACLName))
}

// ListActive returns all active configs ordered by id so the fallback scan
// is deterministic.
func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.MonitoringConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM monitoring_configs
		WHERE is_active = true
		ORDER BY id
	`, configColumns)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.MonitoringConfig
	for rows.Next() {
		cfg, err := s.scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate configs: %w", err)
	}

	return configs, nil
}

// IncrementCounters bumps the rolling counters in a single UPDATE.
func (s *PostgresStore) IncrementCounters(ctx context.Context, configID string, newEvents, newBlocked int64, now time.Time) error {
	query := `
		UPDATE monitoring_configs
		SET events_today = events_today + $2,
		    blocked_today = blocked_today + $3,
		    last_event_at = $4
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, configID, newEvents, newBlocked, now)
	if err != nil {
		return fmt.Errorf("failed to increment counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// ResolveAccount returns the cloud credential attached to a config.
func (s *PostgresStore) ResolveAccount(ctx context.Context, configID string) (*models.CloudCredential, error) {
	query := `
		SELECT config_id, COALESCE(account_id, ''), COALESCE(role_arn, '')
		FROM cloud_credentials
		WHERE config_id = $1
	`

	cred := &models.CloudCredential{}
	err := s.pool.QueryRow(ctx, query, configID).Scan(&cred.ConfigID, &cred.AccountID, &cred.RoleARN)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to resolve credential: %w", err)
	}

	return cred, nil
}

// UpsertIfAbsent inserts the event unless its content hash already exists.
// ON CONFLICT DO NOTHING makes re-delivery a no-op; the command tag tells us
// whether a row was genuinely written.
func (s *PostgresStore) UpsertIfAbsent(ctx context.Context, ev *models.PersistedEvent) (bool, error) {
	query := `
		INSERT INTO waf_events (
			id, organization_id, monitored_account_id, event_time, action,
			source_ip, country, region, user_agent, uri, http_method,
			rule_matched, threat_type, severity, raw_log,
			is_campaign, campaign_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		ev.ID, ev.OrganizationID, ev.MonitoredAccountID, ev.Timestamp, ev.Action,
		ev.SourceIP, ev.Country, ev.Region, ev.UserAgent, ev.URI, ev.HTTPMethod,
		ev.RuleMatched, ev.ThreatType, ev.Severity, ev.RawLog,
		ev.IsCampaign, ev.CampaignID, ev.CreatedAt,
	)
	if err != nil {
		// A racing insert can still surface the constraint directly.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanConfig(row rowScanner) (*models.MonitoringConfig, error) {
	cfg := &models.MonitoringConfig{}
	err := row.Scan(
		&cfg.ID, &cfg.OrganizationID, &cfg.MonitoredAccountID, &cfg.LogGroupName,
		&cfg.WebACLName, &cfg.IsActive, &cfg.EventsToday, &cfg.BlockedToday, &cfg.LastEventAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return cfg, nil
}
