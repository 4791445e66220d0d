package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "timelyctl",
		Short:         "Inspect and administer a timely database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database path (defaults to the server configuration)")
	rootCmd.PersistentFlags().StringVarP(&opts.tenant, "tenant", "t", "default", "Tenant ID")
	rootCmd.PersistentFlags().BoolVarP(&opts.json, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(sessionsCmd(opts))
	rootCmd.AddCommand(showCmd(opts))
	rootCmd.AddCommand(summaryCmd(opts))
	rootCmd.AddCommand(journalCmd(opts))
	rootCmd.AddCommand(apikeyCmd(opts))

	return rootCmd
}
