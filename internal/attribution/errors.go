package attribution

import (
	"fmt"
	"strings"
)

// UnattributedBatchError means no strategy could prove which tenant owns the
// batch. The pipeline fails closed on it: events that cannot be attributed
// are never written under a placeholder tenant, and the delivery system is
// expected to retry once the configuration is fixed.
//
// A production deployment would route these batches to a quarantine store
// instead of relying on upstream retries alone; that store is an external
// collaborator of this pipeline.
type UnattributedBatchError struct {
	LogGroup       string
	OwnerAccountID string
}

func (e *UnattributedBatchError) Error() string {
	return fmt.Sprintf("no active monitoring config matches batch (log_group=%s owner_account=%s)",
		e.LogGroup, e.OwnerAccountID)
}

// AmbiguousTenantError means two or more active configs resolved to the same
// owner account during the fallback scan. That is a configuration-data error:
// picking one silently would risk writing a tenant's events under another
// tenant, so the batch fails closed instead.
type AmbiguousTenantError struct {
	OwnerAccountID string
	ConfigIDs      []string
}

func (e *AmbiguousTenantError) Error() string {
	return fmt.Sprintf("owner account %s matches multiple active configs: %s",
		e.OwnerAccountID, strings.Join(e.ConfigIDs, ", "))
}
