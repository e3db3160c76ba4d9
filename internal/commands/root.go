package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wafingest",
	Short: "WAF event ingestion and attribution pipeline",
	Long: `wafingest receives firewall decision log batches forwarded by a
log-aggregation subscription, attributes them to the owning tenant,
classifies threat severity and persists events idempotently.`,
	Version: "1.0.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
}
