package attribution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/repository"
)

// LogGroupPrefix is the fixed prefix the firewall requires on its log
// groups; stripping it yields the web ACL name.
const LogGroupPrefix = "aws-waf-logs-"

// Query carries the routing metadata available for one batch.
type Query struct {
	LogGroup       string
	OwnerAccountID string
}

// WebACLName derives the web ACL name from the log group. It returns ""
// when the log group does not carry the fixed prefix, in which case the
// web-ACL strategy has nothing to look up.
func (q Query) WebACLName() string {
	if !strings.HasPrefix(q.LogGroup, LogGroupPrefix) {
		return ""
	}
	return strings.TrimPrefix(q.LogGroup, LogGroupPrefix)
}

// Strategy is one resolution step. Resolve returns ErrConfigNotFound (via
// the registry) when the strategy has no match, letting the attributor fall
// through to the next one. Any other error aborts resolution.
type Strategy struct {
	Name    string
	Resolve func(ctx context.Context, q Query) (*models.MonitoringConfig, error)
}

// DefaultStrategies returns the resolution cascade in priority order:
// exact log-group match, derived web-ACL match, then the owner-account
// credential scan.
func DefaultStrategies(registry repository.ConfigRegistry, credentials repository.CredentialStore) []Strategy {
	return []Strategy{
		{
			Name: "log-group",
			Resolve: func(ctx context.Context, q Query) (*models.MonitoringConfig, error) {
				if q.LogGroup == "" {
					return nil, repository.ErrConfigNotFound
				}
				return registry.FindActiveByLogGroup(ctx, q.LogGroup)
			},
		},
		{
			Name: "web-acl",
			Resolve: func(ctx context.Context, q Query) (*models.MonitoringConfig, error) {
				name := q.WebACLName()
				if name == "" {
					return nil, repository.ErrConfigNotFound
				}
				return registry.FindActiveByWebACL(ctx, name)
			},
		},
		{
			Name: "owner-account",
			Resolve: func(ctx context.Context, q Query) (*models.MonitoringConfig, error) {
				return resolveByOwnerAccount(ctx, registry, credentials, q.OwnerAccountID)
			},
		},
	}
}

// resolveByOwnerAccount scans every active config, resolves its credential
// and compares the owner account against the stored account id or the
// account id embedded in the role ARN. More than one structural match is a
// configuration-data error and fails the lookup outright.
func resolveByOwnerAccount(ctx context.Context, registry repository.ConfigRegistry, credentials repository.CredentialStore, ownerAccountID string) (*models.MonitoringConfig, error) {
	if ownerAccountID == "" {
		return nil, repository.ErrConfigNotFound
	}

	configs, err := registry.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}

	var matches []*models.MonitoringConfig
	for _, cfg := range configs {
		cred, err := credentials.ResolveAccount(ctx, cfg.ID)
		if err != nil {
			if errors.Is(err, repository.ErrCredentialNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve credential for config %s: %w", cfg.ID, err)
		}

		if credentialMatchesAccount(cred, ownerAccountID) {
			matches = append(matches, cfg)
		}
	}

	switch len(matches) {
	case 0:
		return nil, repository.ErrConfigNotFound
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, cfg := range matches {
			ids[i] = cfg.ID
		}
		return nil, &AmbiguousTenantError{OwnerAccountID: ownerAccountID, ConfigIDs: ids}
	}
}

func credentialMatchesAccount(cred *models.CloudCredential, ownerAccountID string) bool {
	if cred.AccountID != "" && cred.AccountID == ownerAccountID {
		return true
	}
	return accountIDFromRoleARN(cred.RoleARN) == ownerAccountID
}

// accountIDFromRoleARN extracts the account id from a role identifier of
// the form arn:aws:iam::123456789012:role/name (the fifth colon-delimited
// field).
func accountIDFromRoleARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 5 {
		return ""
	}
	return parts[4]
}
