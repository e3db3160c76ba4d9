package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/attribution"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/repository"
)

// mockNotifier records escalation calls.
type mockNotifier struct {
	mu         sync.Mutex
	calls      int
	lastOrgID  string
	lastEvents []models.PersistedEvent
	notifyFunc func(ctx context.Context, orgID string, events []models.PersistedEvent) error
}

func (m *mockNotifier) Notify(ctx context.Context, orgID string, events []models.PersistedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastOrgID = orgID
	m.lastEvents = events
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, orgID, events)
	}
	return nil
}

func (m *mockNotifier) Close() {}

// mockEventStore lets tests inject write failures.
type mockEventStore struct {
	upsertFunc func(ctx context.Context, ev *models.PersistedEvent) (bool, error)
}

func (m *mockEventStore) UpsertIfAbsent(ctx context.Context, ev *models.PersistedEvent) (bool, error) {
	return m.upsertFunc(ctx, ev)
}

func encodePayload(t *testing.T, env *models.LogBatchEnvelope) string {
	t.Helper()

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func threeRecordBatch(t *testing.T) string {
	t.Helper()

	return encodePayload(t, &models.LogBatchEnvelope{
		MessageType: models.MessageTypeData,
		Owner:       "111122223333",
		LogGroup:    "aws-waf-logs-main",
		LogStream:   "main_stream_0",
		LogEvents: []models.RawRecord{
			{
				ID:        "rec-sqli",
				Timestamp: 1717243800000,
				Message:   `{"timestamp":1717243800000,"action":"BLOCK","terminatingRuleId":"AWS-AWSManagedRulesSQLiRuleSet","httpRequest":{"clientIp":"203.0.113.9","country":"BR","uri":"/login","httpMethod":"POST"}}`,
			},
			{
				ID:        "rec-allow",
				Timestamp: 1717243801000,
				Message:   `{"timestamp":1717243801000,"action":"ALLOW","httpRequest":{"clientIp":"198.51.100.7","country":"US","uri":"/home","httpMethod":"GET"}}`,
			},
			{
				ID:        "rec-bad",
				Timestamp: 1717243802000,
				Message:   `{"action": not-json`,
			},
		},
	})
}

func newTestPipeline(store *repository.InMemoryStore, notifier *mockNotifier) *Pipeline {
	attributor := attribution.New(attribution.DefaultStrategies(store, store), nil, nil)
	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	return New(attributor, store, store, notifier, nil, WithClock(func() time.Time { return now }))
}

func seedConfig(store *repository.InMemoryStore) {
	store.AddConfig(&models.MonitoringConfig{
		ID:                 "cfg-1",
		OrganizationID:     "org-1",
		MonitoredAccountID: "111122223333",
		LogGroupName:       "aws-waf-logs-main",
		WebACLName:         "main",
		IsActive:           true,
	})
}

func TestRunThreeRecordScenario(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	notifier := &mockNotifier{}
	pipe := newTestPipeline(store, notifier)

	result, err := pipe.Run(context.Background(), threeRecordBatch(t))
	require.NoError(t, err)

	assert.Equal(t, 3, result.EventsReceived)
	assert.Equal(t, 2, result.EventsParsed)
	assert.Equal(t, 2, result.EventsSaved)
	assert.Equal(t, 0, result.DuplicatesSkipped)

	// The malformed record is the single error, referenced by id.
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rec-bad")
	assert.False(t, result.Success)

	// The SQLi block is classified high and escalated alone.
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "org-1", notifier.lastOrgID)
	require.Len(t, notifier.lastEvents, 1)
	assert.Equal(t, "sqli", notifier.lastEvents[0].ThreatType)
	assert.Equal(t, models.SeverityHigh, notifier.lastEvents[0].Severity)

	// Rolling counters reflect only newly persisted events.
	cfg, ok := store.GetConfig("cfg-1")
	require.True(t, ok)
	assert.Equal(t, int64(2), cfg.EventsToday)
	assert.Equal(t, int64(1), cfg.BlockedToday)
	require.NotNil(t, cfg.LastEventAt)

	assert.Equal(t, 2, store.EventCount())
}

func TestRunRedeliveryIsIdempotent(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	notifier := &mockNotifier{}
	pipe := newTestPipeline(store, notifier)

	payload := threeRecordBatch(t)

	_, err := pipe.Run(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 1, notifier.calls)

	result, err := pipe.Run(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, 3, result.EventsReceived)
	assert.Equal(t, 2, result.EventsParsed)
	assert.Equal(t, 0, result.EventsSaved)
	assert.Equal(t, 2, result.DuplicatesSkipped)

	// No second escalation and no counter drift.
	assert.Equal(t, 1, notifier.calls)
	cfg, _ := store.GetConfig("cfg-1")
	assert.Equal(t, int64(2), cfg.EventsToday)
	assert.Equal(t, int64(1), cfg.BlockedToday)
	assert.Equal(t, 2, store.EventCount())
}

func TestRunUnattributedBatchFailsClosed(t *testing.T) {
	store := repository.NewInMemoryStore() // no configs registered
	notifier := &mockNotifier{}
	pipe := newTestPipeline(store, notifier)

	result, err := pipe.Run(context.Background(), threeRecordBatch(t))

	var unattributed *attribution.UnattributedBatchError
	require.ErrorAs(t, err, &unattributed)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.EventsSaved)
	assert.NotEmpty(t, result.Errors)

	// Fail closed: nothing persisted, nothing escalated.
	assert.Equal(t, 0, store.EventCount())
	assert.Equal(t, 0, notifier.calls)
}

func TestRunAmbiguousTenantFailsClosed(t *testing.T) {
	store := repository.NewInMemoryStore()
	store.AddConfig(&models.MonitoringConfig{ID: "cfg-a", LogGroupName: "g-a", WebACLName: "a", IsActive: true})
	store.AddConfig(&models.MonitoringConfig{ID: "cfg-b", LogGroupName: "g-b", WebACLName: "b", IsActive: true})
	store.AddCredential(&models.CloudCredential{ConfigID: "cfg-a", AccountID: "111122223333"})
	store.AddCredential(&models.CloudCredential{ConfigID: "cfg-b", AccountID: "111122223333"})

	notifier := &mockNotifier{}
	pipe := newTestPipeline(store, notifier)

	result, err := pipe.Run(context.Background(), threeRecordBatch(t))

	var ambiguous *attribution.AmbiguousTenantError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 0, result.EventsSaved)
	assert.Equal(t, 0, store.EventCount())
}

func TestRunControlMessage(t *testing.T) {
	store := repository.NewInMemoryStore()
	notifier := &mockNotifier{}
	pipe := newTestPipeline(store, notifier)

	payload := encodePayload(t, &models.LogBatchEnvelope{MessageType: models.MessageTypeControl})

	result, err := pipe.Run(context.Background(), payload)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.EventsReceived)
	assert.Equal(t, 0, store.EventCount())
	assert.Equal(t, 0, notifier.calls)
}

func TestRunDecodeErrorIsFatal(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	pipe := newTestPipeline(store, &mockNotifier{})

	result, err := pipe.Run(context.Background(), "!!!garbage!!!")

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.EventsSaved)
	assert.NotEmpty(t, result.Errors)
}

func TestRunEscalationFailureDoesNotFailBatch(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	notifier := &mockNotifier{
		notifyFunc: func(ctx context.Context, orgID string, events []models.PersistedEvent) error {
			return errors.New("bus unavailable")
		},
	}
	pipe := newTestPipeline(store, notifier)

	// Two well-formed records, one escalatable.
	payload := encodePayload(t, &models.LogBatchEnvelope{
		MessageType: models.MessageTypeData,
		Owner:       "111122223333",
		LogGroup:    "aws-waf-logs-main",
		LogEvents: []models.RawRecord{
			{
				ID:        "rec-1",
				Timestamp: 1717243800000,
				Message:   `{"timestamp":1717243800000,"action":"BLOCK","terminatingRuleId":"AWS-AWSManagedRulesSQLiRuleSet","httpRequest":{"clientIp":"203.0.113.9","uri":"/login","httpMethod":"POST"}}`,
			},
			{
				ID:        "rec-2",
				Timestamp: 1717243801000,
				Message:   `{"timestamp":1717243801000,"action":"ALLOW","httpRequest":{"clientIp":"198.51.100.7","uri":"/home","httpMethod":"GET"}}`,
			},
		},
	})

	result, err := pipe.Run(context.Background(), payload)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.EventsSaved)
	assert.Equal(t, 1, notifier.calls)
}

func TestRunWriteFailureIsContained(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	notifier := &mockNotifier{}

	// Fail writes for the allow event only; everything else goes through
	// the real store.
	events := &mockEventStore{
		upsertFunc: func(ctx context.Context, ev *models.PersistedEvent) (bool, error) {
			if ev.Action == models.ActionAllow {
				return false, fmt.Errorf("connection reset")
			}
			return store.UpsertIfAbsent(ctx, ev)
		},
	}

	attributor := attribution.New(attribution.DefaultStrategies(store, store), nil, nil)
	pipe := New(attributor, store, events, notifier, nil)

	result, err := pipe.Run(context.Background(), threeRecordBatch(t))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.EventsSaved)
	// One malformed record plus one write failure.
	assert.Len(t, result.Errors, 2)

	// Counters only count what was actually written.
	cfg, _ := store.GetConfig("cfg-1")
	assert.Equal(t, int64(1), cfg.EventsToday)
	assert.Equal(t, int64(1), cfg.BlockedToday)
}

func TestRunParallelPersistHandlesLargeBatch(t *testing.T) {
	store := repository.NewInMemoryStore()
	seedConfig(store)
	pipe := newTestPipeline(store, &mockNotifier{})

	records := make([]models.RawRecord, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, models.RawRecord{
			ID:        fmt.Sprintf("rec-%d", i),
			Timestamp: 1717243800000 + int64(i),
			Message: fmt.Sprintf(
				`{"timestamp":%d,"action":"BLOCK","httpRequest":{"clientIp":"203.0.113.%d","uri":"/p/%d","httpMethod":"GET"}}`,
				1717243800000+int64(i), i%250, i),
		})
	}

	payload := encodePayload(t, &models.LogBatchEnvelope{
		MessageType: models.MessageTypeData,
		Owner:       "111122223333",
		LogGroup:    "aws-waf-logs-main",
		LogEvents:   records,
	})

	result, err := pipe.Run(context.Background(), payload)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 100, result.EventsSaved)
	assert.Equal(t, 100, store.EventCount())

	cfg, _ := store.GetConfig("cfg-1")
	assert.Equal(t, int64(100), cfg.EventsToday)
	assert.Equal(t, int64(100), cfg.BlockedToday)
}
