// Package commands implements the slugctl command tree.
package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "slugctl",
	Short: "Operator CLI for the slug service",
	Long: `slugctl administers the canonical-slug service: inspect and retry
queued slug-history writes, resolve an identifier against the content store,
and run the outbox schema migrations.

Configuration comes from the same environment variables the API server reads
(CMS_BASE_URL, CMS_DATASET, CMS_TOKEN, OUTBOX_DATABASE_URL).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand: show help rather than silently succeeding.
		return cmd.Help()
	},
}

// Execute runs the root command. Called once from main.main().
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}
