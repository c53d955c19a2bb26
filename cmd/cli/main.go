package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "bankledger",
		Short:         "BankLedger CLI tool",
		Long:          `A command line interface for operating the BankLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("BANKLEDGER_URL", "http://localhost:8080"), "Base URL of the BankLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("BANKLEDGER_TOKEN"), "Bearer token for authenticated servers")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		accountCmd(opts),
		transferCmd(opts),
		paymentCmd(opts),
		depositCmd(opts),
		withdrawCmd(opts),
		transactionCmd(opts),
		ledgerCmd(opts),
		tokenCmd(),
		migrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
