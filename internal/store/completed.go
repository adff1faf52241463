// ABOUTME: Identity resolution and completion-ordered paging over successful payments
// ABOUTME: Backs the export pipeline; each page is read in its own short transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

// GetPayment resolves any identity to its payment. Returns ErrNotFound if
// it doesn't exist.
func (s *SQLiteStore) GetPayment(ctx context.Context, id payments.Identity) (payments.Payment, error) {
	var p payments.Payment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getPayment(ctx, tx, id)
		return err
	})
	return p, err
}

func getPayment(ctx context.Context, q querier, id payments.Identity) (payments.Payment, error) {
	var (
		p   payments.Payment
		err error
	)
	switch {
	case id.Kind == payments.KindIncoming:
		p, err = getIncoming(ctx, q, `id = ?`, id.Key())
	case id.Kind == payments.KindLightningOutgoing:
		p, err = getLightning(ctx, q, id.ID)
	case id.Kind.IsOnChain():
		p, err = getOnChain(ctx, q, id)
	default:
		return nil, fmt.Errorf("%w: %s", payments.ErrInvalidIdentity, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// completedUnion selects (completed_at, type, id) for every successful
// payment: received incoming, succeeded Lightning and locked on-chain.
func completedUnion() (string, []any) {
	succeeded := codec.SucceededStatusTags()
	args := make([]any, 0, len(succeeded))
	for _, tag := range succeeded {
		args = append(args, string(tag))
	}

	parts := []string{
		fmt.Sprintf(`SELECT received_at AS completed_at, %d AS type, id FROM incoming_payments
			WHERE received_at IS NOT NULL`, int(payments.KindIncoming)),
		fmt.Sprintf(`SELECT completed_at, %d, id FROM outgoing_payments
			WHERE completed_at IS NOT NULL AND status_type IN (%s)`,
			int(payments.KindLightningOutgoing), placeholders(len(succeeded))),
	}
	for _, kind := range payments.AllKinds {
		table, ok := onChainTables[kind]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf(
			`SELECT locked_at, %d, id FROM %s WHERE locked_at IS NOT NULL`, int(kind), table,
		))
	}
	return strings.Join(parts, "\nUNION ALL\n"), args
}

// ListCompletedPayments returns up to limit successful payments completed in
// [from, to), ordered by completion time, kind and id. When after is set
// only rows strictly after it are returned. A zero to means no upper bound.
func (s *SQLiteStore) ListCompletedPayments(ctx context.Context, from, to time.Time, after *payments.Completion, limit int) ([]payments.Completion, error) {
	union, args := completedUnion()

	where := []string{"c.completed_at >= ?"}
	args = append(args, toMillis(from))
	if !to.IsZero() {
		where = append(where, "c.completed_at < ?")
		args = append(args, toMillis(to))
	}
	if after != nil {
		where = append(where, "(c.completed_at, c.type, c.id) > (?, ?, ?)")
		args = append(args, toMillis(after.CompletedAt), int64(after.Identity.Kind), after.Identity.Key())
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := `
		SELECT c.completed_at, c.type, c.id
		FROM (` + union + `) c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.completed_at, c.type, c.id
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing completed payments: %w", err)
	}
	defer rows.Close()

	var result []payments.Completion
	for rows.Next() {
		var (
			completedAt int64
			kind        int64
			key         []byte
		)
		if err := rows.Scan(&completedAt, &kind, &key); err != nil {
			return nil, fmt.Errorf("scanning completed payment: %w", err)
		}
		id, err := payments.Parse(kind, key)
		if err != nil {
			return nil, err
		}
		result = append(result, payments.Completion{CompletedAt: fromMillis(completedAt), Identity: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating completed payments: %w", err)
	}
	return result, nil
}
