package commands

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/summitupfitters/slugsvc/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply outbox schema migrations",
	Long: `Migrate applies all pending goose migrations to the outbox database
named by OUTBOX_DATABASE_URL. Run this once before starting the API server
with an outbox configured.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dsn := os.Getenv("OUTBOX_DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("OUTBOX_DATABASE_URL is not set")
	}

	// goose needs database/sql, not a pgx pool.
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open outbox database: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	results, err := provider.Up(cmd.Context())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		fmt.Printf("applied %s\n", r.Source.Path)
	}
	if len(results) == 0 {
		fmt.Println("outbox schema is up to date")
	}
	return nil
}
