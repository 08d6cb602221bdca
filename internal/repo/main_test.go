package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/summitupfitters/slugsvc/migrations"
	"github.com/summitupfitters/slugsvc/testutil"
)

// TestMain applies all pending migrations to the test database before any
// test in this package runs, so the outbox integration tests never need to
// think about schema state. Runs once per test binary.
func TestMain(m *testing.M) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		// No test DB configured; the vehicle repo tests still run (they fake
		// the content store), and the outbox tests skip themselves.
		os.Exit(m.Run())
	}

	// goose needs database/sql, not a pgx pool. Constructed manually because
	// TestMain has no *testing.T to hand to the testutil helpers.
	db := testutil.MustOpenSQLDB(os.Getenv("TEST_DATABASE_URL"))
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		log.Fatalf("TestMain: create goose provider: %v", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		log.Fatalf("TestMain: run migrations: %v", err)
	}

	os.Exit(m.Run())
}
