// Package seeder generates synthetic firewall log batches for load testing
// and local development. Generated batches go through the same envelope
// encoding the real subscription uses (JSON → gzip → base64), so the full
// decode path is exercised.
package seeder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/klauspost/compress/gzip"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// Scenario describes one synthetic batch profile.
type Scenario struct {
	Name          string  `yaml:"name"`
	LogGroup      string  `yaml:"log_group"`
	OwnerAccount  string  `yaml:"owner_account"`
	Records       int     `yaml:"records"`
	BlockRatio    float64 `yaml:"block_ratio"`
	AttackRatio   float64 `yaml:"attack_ratio"`
	MalformedRate float64 `yaml:"malformed_rate"`
}

// attackRules are realistic managed-rule identifiers that trip the
// classifier's signature table.
var attackRules = []string{
	"AWS-AWSManagedRulesSQLiRuleSet",
	"AWS-AWSManagedRulesCommonRuleSet-CrossSiteScripting_QUERYARGUMENTS",
	"AWS-AWSManagedRulesCommonRuleSet-GenericLFI_URIPATH",
	"AWS-AWSManagedRulesBotControlRuleSet",
	"AWS-AWSManagedRulesAmazonIpReputationList-AnonymousIpList",
}

var attackURIs = []string{
	"/search?q=1%27%20UNION%20SELECT%20username,password%20FROM%20users--",
	"/comment?text=%3Cscript%3Ealert(1)%3C/script%3E",
	"/static/../../../../etc/passwd",
	"/wp-admin/admin-ajax.php",
	"/.env",
}

// Generator produces encoded synthetic batches.
type Generator struct {
	rng *rand.Rand
}

// New creates a Generator. A fixed seed makes runs reproducible.
func New(seed int64) *Generator {
	gofakeit.Seed(seed)
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Batch builds one envelope for the scenario and returns it encoded the way
// the subscription delivers payloads.
func (g *Generator) Batch(sc Scenario) (string, error) {
	now := time.Now().UTC()

	records := make([]models.RawRecord, 0, sc.Records)
	for i := 0; i < sc.Records; i++ {
		ts := now.Add(-time.Duration(g.rng.Intn(300)) * time.Second)

		var message string
		if g.rng.Float64() < sc.MalformedRate {
			message = `{"timestamp": not-json`
		} else {
			message = g.logDocument(ts, sc)
		}

		records = append(records, models.RawRecord{
			ID:        strconv.FormatInt(ts.UnixNano()+int64(i), 10),
			Timestamp: ts.UnixMilli(),
			Message:   message,
		})
	}

	envelope := models.LogBatchEnvelope{
		MessageType:         models.MessageTypeData,
		Owner:               sc.OwnerAccount,
		LogGroup:            sc.LogGroup,
		LogStream:           fmt.Sprintf("%s_stream_%d", sc.LogGroup, g.rng.Intn(4)),
		SubscriptionFilters: []string{"waf-event-forwarder"},
		LogEvents:           records,
	}

	return EncodePayload(&envelope)
}

// logDocument builds one vendor log document.
func (g *Generator) logDocument(ts time.Time, sc Scenario) string {
	action := models.ActionAllow
	if g.rng.Float64() < sc.BlockRatio {
		action = models.ActionBlock
	}

	rule := ""
	uri := "/" + gofakeit.Word() + "/" + gofakeit.Word()
	if g.rng.Float64() < sc.AttackRatio {
		rule = attackRules[g.rng.Intn(len(attackRules))]
		uri = attackURIs[g.rng.Intn(len(attackURIs))]
	}

	doc := map[string]any{
		"timestamp":         ts.UnixMilli(),
		"action":            action,
		"terminatingRuleId": rule,
		"webaclId":          fmt.Sprintf("arn:aws:wafv2:us-east-1:%s:regional/webacl/%s/%s", sc.OwnerAccount, "main", gofakeit.UUID()),
		"httpRequest": map[string]any{
			"clientIp":   gofakeit.IPv4Address(),
			"country":    gofakeit.CountryAbr(),
			"uri":        uri,
			"httpMethod": gofakeit.HTTPMethod(),
			"headers": []map[string]string{
				{"name": "User-Agent", "value": gofakeit.UserAgent()},
				{"name": "Host", "value": gofakeit.DomainName()},
			},
		},
	}

	data, _ := json.Marshal(doc)
	return string(data)
}

// EncodePayload serializes, compresses and base64-encodes an envelope.
func EncodePayload(envelope *models.LogBatchEnvelope) (string, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compress envelope: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("flush compressor: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
