package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

func TestNormalizeNestedRequestFields(t *testing.T) {
	records := []models.RawRecord{
		{
			ID:        "rec-1",
			Timestamp: 1717243800000,
			Message: `{
				"timestamp": 1717243800123,
				"action": "BLOCK",
				"terminatingRuleId": "AWS-AWSManagedRulesSQLiRuleSet",
				"webaclId": "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/main/abc",
				"httpRequest": {
					"clientIp": "203.0.113.9",
					"country": "BR",
					"uri": "/login",
					"httpMethod": "POST",
					"headers": [
						{"name": "Host", "value": "app.example.com"},
						{"name": "User-Agent", "value": "curl/8.0"}
					]
				}
			}`,
		},
	}

	events, errs := Normalize(records)
	require.Empty(t, errs)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, time.UnixMilli(1717243800123).UTC(), ev.Timestamp)
	assert.Equal(t, models.ActionBlock, ev.Action)
	assert.Equal(t, "203.0.113.9", ev.SourceIP)
	assert.Equal(t, "BR", ev.Country)
	assert.Equal(t, "us-east-1", ev.Region)
	assert.Equal(t, "/login", ev.URI)
	assert.Equal(t, "POST", ev.HTTPMethod)
	assert.Equal(t, "curl/8.0", ev.UserAgent)
	assert.Equal(t, "AWS-AWSManagedRulesSQLiRuleSet", ev.RuleMatched)
	assert.Equal(t, records[0].Message, ev.RawLog)
}

func TestNormalizeFlatFieldFallbacks(t *testing.T) {
	records := []models.RawRecord{
		{
			ID:        "rec-flat",
			Timestamp: 1717243800000,
			Message: `{
				"action": "allow",
				"clientIp": "198.51.100.7",
				"country": "US",
				"region": "sa-east-1",
				"uri": "/home",
				"httpMethod": "GET",
				"userAgent": "Mozilla/5.0",
				"ruleId": "custom-rule"
			}`,
		},
	}

	events, errs := Normalize(records)
	require.Empty(t, errs)
	require.Len(t, events, 1)

	ev := events[0]
	// Record timestamp backfills a document without one.
	assert.Equal(t, time.UnixMilli(1717243800000).UTC(), ev.Timestamp)
	assert.Equal(t, models.ActionAllow, ev.Action)
	assert.Equal(t, "198.51.100.7", ev.SourceIP)
	assert.Equal(t, "sa-east-1", ev.Region)
	assert.Equal(t, "Mozilla/5.0", ev.UserAgent)
	assert.Equal(t, "custom-rule", ev.RuleMatched)
}

func TestNormalizeDropsMalformedRecordsIndividually(t *testing.T) {
	records := []models.RawRecord{
		{ID: "good-1", Timestamp: 1, Message: `{"action":"BLOCK","clientIp":"203.0.113.1"}`},
		{ID: "bad-1", Timestamp: 2, Message: `{"action": not-json`},
		{ID: "good-2", Timestamp: 3, Message: `{"action":"ALLOW","clientIp":"203.0.113.2"}`},
		{ID: "bad-2", Timestamp: 4, Message: `{"noAction":true}`},
	}

	events, errs := Normalize(records)

	assert.Len(t, events, 2)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "bad-1")
	assert.Contains(t, errs[1], "bad-2")
}

func TestNormalizeEmptyBatch(t *testing.T) {
	events, errs := Normalize(nil)
	assert.Empty(t, events)
	assert.Empty(t, errs)
}
