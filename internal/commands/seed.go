package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/handlers"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/seeder"
)

var (
	seedTarget   string
	seedFile     string
	seedBatches  int
	seedSeed     int64
	seedInterval time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Post synthetic firewall log batches to a running receiver",
	Long: `Generates realistic synthetic WAF decision log batches, encodes them
the way the log subscription does (JSON, gzip, base64) and posts them to
the ingest endpoint. Useful for local development and load testing.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedTarget, "target", "http://localhost:8087", "receiver base URL")
	seedCmd.Flags().StringVar(&seedFile, "scenarios", "", "YAML scenario file (optional)")
	seedCmd.Flags().IntVar(&seedBatches, "batches", 1, "batches to send per scenario")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", time.Now().UnixNano(), "random seed")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 0, "pause between batches")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	scenarios := []seeder.Scenario{seeder.DefaultScenario()}
	if seedFile != "" {
		loaded, err := seeder.LoadScenarios(seedFile)
		if err != nil {
			return err
		}
		scenarios = loaded
	}

	gen := seeder.New(seedSeed)
	client := &http.Client{Timeout: 30 * time.Second}
	endpoint := seedTarget + "/api/waf/ingest"

	for _, sc := range scenarios {
		for i := 0; i < seedBatches; i++ {
			payload, err := gen.Batch(sc)
			if err != nil {
				return fmt.Errorf("generate batch for %s: %w", sc.Name, err)
			}

			result, status, err := postBatch(client, endpoint, payload)
			if err != nil {
				return fmt.Errorf("post batch for %s: %w", sc.Name, err)
			}

			fmt.Printf("%s: status=%d received=%d parsed=%d saved=%d duplicates=%d errors=%d\n",
				sc.Name, status, result.EventsReceived, result.EventsParsed,
				result.EventsSaved, result.DuplicatesSkipped, len(result.Errors))

			if seedInterval > 0 {
				time.Sleep(seedInterval)
			}
		}
	}

	return nil
}

func postBatch(client *http.Client, endpoint, payload string) (*models.BatchResult, int, error) {
	body, err := json.Marshal(handlers.IngestRequest{EncodedPayload: payload})
	if err != nil {
		return nil, 0, err
	}

	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result models.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return &result, resp.StatusCode, nil
}
