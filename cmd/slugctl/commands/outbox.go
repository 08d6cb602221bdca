package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and retry queued slug-history writes",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending and dead-lettered history writes",
	RunE:  runOutboxList,
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry <entry-id>",
	Short: "Requeue a dead-lettered entry for immediate redelivery",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutboxRetry,
}

func init() {
	outboxCmd.AddCommand(outboxListCmd)
	outboxCmd.AddCommand(outboxRetryCmd)
	rootCmd.AddCommand(outboxCmd)
}

// openOutbox connects to the outbox database named by OUTBOX_DATABASE_URL.
// The caller must close the returned pool.
func openOutbox(ctx context.Context) (*pgxpool.Pool, repo.HistoryOutboxRepo, error) {
	dsn := os.Getenv("OUTBOX_DATABASE_URL")
	if dsn == "" {
		return nil, nil, fmt.Errorf("OUTBOX_DATABASE_URL is not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open outbox database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to outbox database: %w", err)
	}
	return pool, repo.NewHistoryOutboxRepo(pool), nil
}

func runOutboxList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pool, outbox, err := openOutbox(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, status := range []domain.OutboxStatus{domain.OutboxPending, domain.OutboxDead} {
		entries, err := outbox.ListByStatus(ctx, status)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d):\n", status, len(entries))
		for _, e := range entries {
			fmt.Printf("  %s  vehicle=%s  old_slug=%s  attempts=%d  next=%s  last_error=%s\n",
				e.ID, e.VehicleID, e.OldSlug, e.Attempts,
				e.NextAttemptAt.Format("2006-01-02T15:04:05Z07:00"), e.LastError)
		}
	}
	return nil
}

func runOutboxRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid entry id %q: %w", args[0], err)
	}

	pool, outbox, err := openOutbox(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := outbox.Requeue(ctx, id); err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	fmt.Printf("entry %s requeued; the API server's outbox worker will pick it up\n", id)
	return nil
}
