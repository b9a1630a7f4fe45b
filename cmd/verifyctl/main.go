// File: cmd/verifyctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	devMode bool
	asJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "verifyctl",
	Short: "Drive bulk email verification jobs",
	Long: `verifyctl uploads record batches to the verification service, starts
verification runs, tracks their status and downloads the reports.

Sign in once with "verifyctl signin"; the derived API credential is kept
according to credentials.persistence in the config file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "developer mode (console logs, unredacted keys)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
