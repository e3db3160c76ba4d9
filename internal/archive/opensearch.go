// Package archive indexes persisted events into OpenSearch for audit and
// free-text search. Archiving is best effort, like escalation: a failed
// index never fails the batch.
package archive

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// Archiver is the audit sink contract.
type Archiver interface {
	Archive(ctx context.Context, events []models.PersistedEvent) error
}

// Config holds OpenSearch connection settings.
type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
}

// DefaultConfig returns sensible defaults for a local OpenSearch.
func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "admin",
		TLSSkipVerify: true,
		IndexPrefix:   "waf-events",
	}
}

// OpenSearchArchiver bulk-indexes events into daily indices.
type OpenSearchArchiver struct {
	client *opensearch.Client
	prefix string
}

// NewOpenSearchArchiver connects to OpenSearch and verifies the cluster is
// reachable.
func NewOpenSearchArchiver(cfg Config) (*OpenSearchArchiver, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearchArchiver{client: client, prefix: cfg.IndexPrefix}, nil
}

// Archive bulk-indexes the events, keyed by their content hash so a
// re-archived event overwrites itself instead of duplicating.
func (a *OpenSearchArchiver) Archive(ctx context.Context, events []models.PersistedEvent) error {
	if len(events) == 0 {
		return nil
	}

	indexName := fmt.Sprintf("%s-%s", a.prefix, time.Now().UTC().Format("2006.01.02"))

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: a.client,
		Index:  indexName,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		item := opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: ev.ID,
			Body:       strings.NewReader(string(data)),
		}
		if err := bi.Add(ctx, item); err != nil {
			return fmt.Errorf("add to bulk indexer: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("archive indexed %d of %d events", stats.NumIndexed, len(events))
	}
	return nil
}

// NoopArchiver discards events. Used when no archive cluster is configured.
type NoopArchiver struct{}

func (NoopArchiver) Archive(ctx context.Context, events []models.PersistedEvent) error {
	return nil
}
