package seeder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/decoder"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/normalizer"
)

func TestBatchDecodesAndNormalizes(t *testing.T) {
	gen := New(42)
	sc := Scenario{
		Name:         "clean",
		LogGroup:     "aws-waf-logs-test",
		OwnerAccount: "123456789012",
		Records:      20,
		BlockRatio:   0.5,
		AttackRatio:  0.3,
	}

	payload, err := gen.Batch(sc)
	require.NoError(t, err)

	envelope, err := decoder.Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, models.MessageTypeData, envelope.MessageType)
	assert.Equal(t, "123456789012", envelope.Owner)
	assert.Equal(t, "aws-waf-logs-test", envelope.LogGroup)
	require.Len(t, envelope.LogEvents, 20)

	// No malformed rate: every record normalizes cleanly.
	events, errs := normalizer.Normalize(envelope.LogEvents)
	assert.Empty(t, errs)
	assert.Len(t, events, 20)

	for _, ev := range events {
		assert.NotEmpty(t, ev.Action)
		assert.NotEmpty(t, ev.SourceIP)
		assert.NotEmpty(t, ev.URI)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestBatchMalformedRate(t *testing.T) {
	gen := New(7)
	sc := Scenario{
		Name:          "all-malformed",
		LogGroup:      "aws-waf-logs-test",
		OwnerAccount:  "123456789012",
		Records:       10,
		MalformedRate: 1.0,
	}

	payload, err := gen.Batch(sc)
	require.NoError(t, err)

	envelope, err := decoder.Decode(payload)
	require.NoError(t, err)
	require.Len(t, envelope.LogEvents, 10)

	events, errs := normalizer.Normalize(envelope.LogEvents)
	assert.Empty(t, events)
	assert.Len(t, errs, 10)
}

func TestBatchIsReproducible(t *testing.T) {
	sc := DefaultScenario()

	// Generators with the same seed produce distinct timestamps across
	// runs (wall clock), but identical record structure per seed within a
	// run; verify two independent generators at least agree on shape.
	a, err := New(99).Batch(sc)
	require.NoError(t, err)
	b, err := New(99).Batch(sc)
	require.NoError(t, err)

	envA, err := decoder.Decode(a)
	require.NoError(t, err)
	envB, err := decoder.Decode(b)
	require.NoError(t, err)

	assert.Len(t, envA.LogEvents, sc.Records)
	assert.Len(t, envB.LogEvents, sc.Records)
	assert.Equal(t, envA.LogStream, envB.LogStream)
}

func TestLoadScenarios(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: quiet
    log_group: aws-waf-logs-quiet
    owner_account: "111122223333"
    records: 5
    block_ratio: 0.1
  - name: under-attack
    log_group: aws-waf-logs-hot
    owner_account: "444455556666"
    records: 200
    block_ratio: 0.8
    attack_ratio: 0.6
    malformed_rate: 0.05
`), 0o644))

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)

	assert.Equal(t, "quiet", scenarios[0].Name)
	assert.Equal(t, "aws-waf-logs-quiet", scenarios[0].LogGroup)
	assert.Equal(t, 5, scenarios[0].Records)
	assert.Equal(t, 0.6, scenarios[1].AttackRatio)
}

func TestLoadScenariosValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: "scenarios: []"},
		{name: "missing log group", content: "scenarios:\n  - name: x\n    records: 5"},
		{name: "zero records", content: "scenarios:\n  - name: x\n    log_group: g"},
		{name: "not yaml", content: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadScenarios(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadScenariosMissingFile(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
