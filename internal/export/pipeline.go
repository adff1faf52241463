// ABOUTME: Batched traversal over successful payments ordered by completion time
// ABOUTME: Keyset pagination on (completed_at, kind, id) keeps memory bounded to one batch

package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/lnledger/internal/payments"
)

// DefaultBatchSize is used when a caller passes a non-positive batch size.
const DefaultBatchSize = 100

// Source lists and resolves successful payments. *store.SQLiteStore
// implements it.
type Source interface {
	ListCompletedPayments(ctx context.Context, from, to time.Time, after *payments.Completion, limit int) ([]payments.Completion, error)
	GetPayment(ctx context.Context, id payments.Identity) (payments.Payment, error)
}

// ForEachSuccessfulPayment calls fn for every successful payment completed
// in [from, to), in non-decreasing completion order, exactly once each. A
// zero to means no upper bound. Each batch is a separate read; ctx is
// checked between batches. An error from fn stops the traversal and is
// returned unchanged.
func ForEachSuccessfulPayment(ctx context.Context, src Source, from, to time.Time, batchSize int, fn func(payments.Payment) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := slog.Default().With("component", "export")

	var (
		after   *payments.Completion
		visited int
		batches int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := src.ListCompletedPayments(ctx, from, to, after, batchSize)
		if err != nil {
			return fmt.Errorf("listing successful payments: %w", err)
		}
		batches++

		for _, c := range page {
			p, err := src.GetPayment(ctx, c.Identity)
			if err != nil {
				return fmt.Errorf("loading payment %s: %w", c.Identity, err)
			}
			if err := fn(p); err != nil {
				return err
			}
			visited++
		}

		if len(page) < batchSize {
			logger.Debug("export traversal done", "payments", visited, "batches", batches)
			return nil
		}
		last := page[len(page)-1]
		after = &last
	}
}

// ForEachEvent flattens ForEachSuccessfulPayment into settlement events.
// The range selects payments by completion time, and every event of a
// selected payment is emitted. Incoming part events keep their own part
// time, so an event can be dated before from.
func ForEachEvent(ctx context.Context, src Source, from, to time.Time, batchSize int, fn func(Event) error) error {
	return ForEachSuccessfulPayment(ctx, src, from, to, batchSize, func(p payments.Payment) error {
		for _, e := range Events(p) {
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}
