// ABOUTME: Paginated incoming and outgoing listings with metadata filters
// ABOUTME: Outgoing listings merge the Lightning and on-chain tables, newest first

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

const incomingListColumns = `i.id, i.payment_hash, i.preimage, i.origin_type, i.origin_blob,
	i.created_at, i.received_at, i.confirmed_at, i.locked_at, m.external_id`

// ListIncomingPayments returns incoming payments created in the requested
// range, newest first.
func (s *SQLiteStore) ListIncomingPayments(ctx context.Context, params ListParams) ([]IncomingWithMetadata, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "i.created_at >= ?")
	args = append(args, toMillis(params.From))
	if !params.To.IsZero() {
		where = append(where, "i.created_at < ?")
		args = append(args, toMillis(params.To))
	}
	if params.OnlyReceived {
		where = append(where, "i.received_at IS NOT NULL")
	}
	if params.ExternalID != "" {
		where = append(where, "m.external_id = ?")
		args = append(args, params.ExternalID)
	}
	args = append(args, clampLimit(params.Limit), max(params.Offset, 0))

	query := `
		SELECT ` + incomingListColumns + `
		FROM incoming_payments i
		LEFT JOIN payments_metadata m ON m.type = ` + fmt.Sprint(int(payments.KindIncoming)) + ` AND m.id = i.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY i.created_at DESC, i.id
		LIMIT ? OFFSET ?
	`

	var result []IncomingWithMetadata
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("listing incoming payments: %w", err)
		}

		var ids [][]byte
		for rows.Next() {
			var externalID sql.NullString
			p, id, err := scanIncoming(func(dest ...any) error {
				return rows.Scan(append(dest, &externalID)...)
			})
			if err != nil {
				rows.Close()
				return fmt.Errorf("scanning incoming payment: %w", err)
			}
			result = append(result, IncomingWithMetadata{Payment: p, ExternalID: externalID.String})
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterating incoming payments: %w", err)
		}
		rows.Close()

		for i := range result {
			if result[i].Payment.Parts, err = loadIncomingParts(ctx, tx, ids[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// outgoingUnion selects (created_at, type, id, succeeded) over every
// outgoing table.
func outgoingUnion() (string, []any) {
	succeeded := codec.SucceededStatusTags()
	args := make([]any, 0, len(succeeded))
	for _, tag := range succeeded {
		args = append(args, string(tag))
	}

	parts := []string{fmt.Sprintf(
		`SELECT created_at, %d AS type, id, COALESCE(status_type IN (%s), 0) AS succeeded FROM outgoing_payments`,
		int(payments.KindLightningOutgoing), placeholders(len(succeeded)),
	)}
	for _, kind := range payments.AllKinds {
		table, ok := onChainTables[kind]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf(
			`SELECT created_at, %d, id, locked_at IS NOT NULL FROM %s`, int(kind), table,
		))
	}
	return strings.Join(parts, "\nUNION ALL\n"), args
}

// ListOutgoingPayments returns outgoing payments of every variant created
// in the requested range, newest first.
func (s *SQLiteStore) ListOutgoingPayments(ctx context.Context, params ListParams) ([]OutgoingWithMetadata, error) {
	union, args := outgoingUnion()

	where := []string{"u.created_at >= ?"}
	args = append(args, toMillis(params.From))
	if !params.To.IsZero() {
		where = append(where, "u.created_at < ?")
		args = append(args, toMillis(params.To))
	}
	if params.OnlySucceeded {
		where = append(where, "u.succeeded = 1")
	}
	if params.ExternalID != "" {
		where = append(where, "m.external_id = ?")
		args = append(args, params.ExternalID)
	}
	args = append(args, clampLimit(params.Limit), max(params.Offset, 0))

	query := `
		SELECT u.type, u.id, m.external_id
		FROM (` + union + `) u
		LEFT JOIN payments_metadata m ON m.type = u.type AND m.id = u.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY u.created_at DESC, u.type, u.id
		LIMIT ? OFFSET ?
	`

	var result []OutgoingWithMetadata
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("listing outgoing payments: %w", err)
		}

		var (
			ids         []payments.Identity
			externalIDs []string
		)
		for rows.Next() {
			var (
				kind       int64
				key        []byte
				externalID sql.NullString
			)
			if err := rows.Scan(&kind, &key, &externalID); err != nil {
				rows.Close()
				return fmt.Errorf("scanning outgoing row: %w", err)
			}
			id, err := payments.Parse(kind, key)
			if err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
			externalIDs = append(externalIDs, externalID.String)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterating outgoing rows: %w", err)
		}
		rows.Close()

		for i, id := range ids {
			p, err := getPayment(ctx, tx, id)
			if err != nil {
				return err
			}
			result = append(result, OutgoingWithMetadata{
				Payment:    p.(payments.OutgoingPayment),
				ExternalID: externalIDs[i],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
