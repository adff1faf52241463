// ABOUTME: Incoming payment store operations: create, append parts, get, purge, sum
// ABOUTME: Parts are append-only; received_at is the max of every stored part time

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

const incomingColumns = `id, payment_hash, preimage, origin_type, origin_blob,
	created_at, received_at, confirmed_at, locked_at`

// AddIncomingPayment creates an incoming payment. Parts already present on
// p (on-chain origins are settled at creation) are written too, and an
// on-chain origin links its funding transaction. Returns
// ErrDuplicateIdentity if the payment hash is already stored.
func (s *SQLiteStore) AddIncomingPayment(ctx context.Context, p *payments.IncomingPayment, meta *payments.Metadata) error {
	id := p.Identity()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertIncoming(ctx, tx, p); err != nil {
			return err
		}
		if o, ok := p.Origin.(*payments.OnChainOrigin); ok {
			if err := linkTx(ctx, tx, o.TxID, id); err != nil {
				return err
			}
		}
		if meta != nil {
			return insertMetadataFor(ctx, tx, id, p.CreatedAt, meta)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("added incoming payment", "id", id, "hash", p.PaymentHash, "parts", len(p.Parts))
	return nil
}

func insertIncoming(ctx context.Context, q querier, p *payments.IncomingPayment) error {
	id := p.Identity()

	originType, originBlob, err := codec.Origins.Encode(p.Origin)
	if err != nil {
		return err
	}

	var txID any
	if o, ok := p.Origin.(*payments.OnChainOrigin); ok {
		txID = o.TxID[:]
	}

	var receivedAt *time.Time
	if len(p.Parts) > 0 {
		receivedAt = payments.LatestPartTime(p.ReceivedAt, p.Parts)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO incoming_payments (id, payment_hash, preimage, origin_type, origin_blob,
			created_at, expires_at, received_at, tx_id, confirmed_at, locked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id.Key(),
		p.PaymentHash[:],
		p.Preimage[:],
		string(originType),
		originBlob,
		toMillis(p.CreatedAt),
		nullMillis(p.ExpiresAt()),
		nullMillis(receivedAt),
		txID,
		nullMillis(p.ConfirmedAt),
		nullMillis(p.LockedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
		}
		return fmt.Errorf("inserting incoming payment: %w", err)
	}

	return insertIncomingParts(ctx, q, id.Key(), p.Parts)
}

func insertIncomingParts(ctx context.Context, q querier, paymentID []byte, parts []payments.IncomingPart) error {
	for _, part := range parts {
		tag, blob, err := codec.IncomingParts.Encode(part)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO incoming_payment_parts (payment_id, part_type, part_blob, amount_msat, received_at)
			VALUES (?, ?, ?, ?, ?)
		`, paymentID, string(tag), blob, int64(part.PartAmount()), toMillis(part.PartTime()))
		if err != nil {
			return fmt.Errorf("inserting incoming part: %w", err)
		}
	}
	return nil
}

// AddIncomingParts appends settlement parts to an existing payment and
// moves its received time to the latest part time. Either every part is
// stored and the header updated, or nothing is. Returns ErrUnknownParent if
// no payment exists for hash.
func (s *SQLiteStore) AddIncomingParts(ctx context.Context, hash lntypes.Hash, parts []payments.IncomingPart) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id []byte
		var receivedAt sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT id, received_at FROM incoming_payments WHERE payment_hash = ?`, hash[:],
		).Scan(&id, &receivedAt)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: incoming payment %s", ErrUnknownParent, hash)
		}
		if err != nil {
			return fmt.Errorf("querying incoming payment: %w", err)
		}

		if len(parts) == 0 {
			return nil
		}

		if err := insertIncomingParts(ctx, tx, id, parts); err != nil {
			return err
		}

		latest := payments.LatestPartTime(fromNullMillis(receivedAt), parts)
		if _, err := tx.ExecContext(ctx,
			`UPDATE incoming_payments SET received_at = ? WHERE id = ?`, nullMillis(latest), id,
		); err != nil {
			return fmt.Errorf("updating received_at: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("added incoming parts", "hash", hash, "count", len(parts))
	return nil
}

// GetIncomingPayment retrieves an incoming payment with all its parts.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetIncomingPayment(ctx context.Context, hash lntypes.Hash) (*payments.IncomingPayment, error) {
	var p *payments.IncomingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getIncoming(ctx, tx, `payment_hash = ?`, hash[:])
		return err
	})
	return p, err
}

// GetIncomingPaymentByID retrieves an incoming payment by its derived id.
func (s *SQLiteStore) GetIncomingPaymentByID(ctx context.Context, id uuid.UUID) (*payments.IncomingPayment, error) {
	var p *payments.IncomingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getIncoming(ctx, tx, `id = ?`, id[:])
		return err
	})
	return p, err
}

func getIncoming(ctx context.Context, q querier, where string, arg any) (*payments.IncomingPayment, error) {
	row := q.QueryRowContext(ctx, `SELECT `+incomingColumns+` FROM incoming_payments WHERE `+where, arg)
	p, id, err := scanIncoming(row.Scan)
	if err != nil {
		return nil, notFound(err, "incoming payment")
	}
	if p.Parts, err = loadIncomingParts(ctx, q, id); err != nil {
		return nil, err
	}
	return p, nil
}

// scanIncoming reads one header row and returns the payment and its raw id.
func scanIncoming(scan func(dest ...any) error) (*payments.IncomingPayment, []byte, error) {
	var (
		id, hash, preimage []byte
		originType         string
		originBlob         []byte
		createdAt          int64
		receivedAt         sql.NullInt64
		confirmedAt        sql.NullInt64
		lockedAt           sql.NullInt64
	)
	if err := scan(&id, &hash, &preimage, &originType, &originBlob, &createdAt, &receivedAt, &confirmedAt, &lockedAt); err != nil {
		return nil, nil, err
	}

	p := &payments.IncomingPayment{
		CreatedAt:   fromMillis(createdAt),
		ReceivedAt:  fromNullMillis(receivedAt),
		ConfirmedAt: fromNullMillis(confirmedAt),
		LockedAt:    fromNullMillis(lockedAt),
	}

	var err error
	if p.PaymentHash, err = lntypes.MakeHash(hash); err != nil {
		return nil, nil, fmt.Errorf("parsing payment hash: %w", err)
	}
	if p.Preimage, err = lntypes.MakePreimage(preimage); err != nil {
		return nil, nil, fmt.Errorf("parsing preimage: %w", err)
	}
	if p.Origin, err = codec.Origins.Decode(codec.Tag(originType), originBlob); err != nil {
		return nil, nil, fmt.Errorf("incoming payment %s: %w", p.PaymentHash, err)
	}
	return p, id, nil
}

func loadIncomingParts(ctx context.Context, q querier, paymentID []byte) ([]payments.IncomingPart, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT part_type, part_blob FROM incoming_payment_parts
		WHERE payment_id = ?
		ORDER BY part_id
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("querying incoming parts: %w", err)
	}
	defer rows.Close()

	var parts []payments.IncomingPart
	for rows.Next() {
		var tag string
		var blob []byte
		if err := rows.Scan(&tag, &blob); err != nil {
			return nil, fmt.Errorf("scanning incoming part: %w", err)
		}
		part, err := codec.IncomingParts.Decode(codec.Tag(tag), blob)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incoming parts: %w", err)
	}
	return parts, nil
}

// queryIncoming runs a header query and loads the parts of every row.
func queryIncoming(ctx context.Context, q querier, query string, args ...any) ([]*payments.IncomingPayment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying incoming payments: %w", err)
	}

	var (
		result []*payments.IncomingPayment
		ids    [][]byte
	)
	for rows.Next() {
		p, id, err := scanIncoming(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning incoming payment: %w", err)
		}
		result = append(result, p)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating incoming payments: %w", err)
	}
	rows.Close()

	for i, p := range result {
		if p.Parts, err = loadIncomingParts(ctx, q, ids[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ListExpiredPayments returns invoices created in [from, to) that expired
// without receiving anything, oldest first.
func (s *SQLiteStore) ListExpiredPayments(ctx context.Context, from, to time.Time) ([]*payments.IncomingPayment, error) {
	var result []*payments.IncomingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = queryIncoming(ctx, tx, `
			SELECT `+incomingColumns+` FROM incoming_payments
			WHERE received_at IS NULL
			  AND expires_at IS NOT NULL AND expires_at < ?
			  AND created_at >= ? AND created_at < ?
			ORDER BY created_at ASC
		`, toMillis(s.now()), toMillis(from), toMillis(to))
		return err
	})
	return result, err
}

// RemoveIncomingPayment deletes an incoming payment that never received
// anything, together with its metadata and links. It returns false and
// deletes nothing when the payment has a part or does not exist.
func (s *SQLiteStore) RemoveIncomingPayment(ctx context.Context, hash lntypes.Hash) (bool, error) {
	removed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id []byte
		err := tx.QueryRowContext(ctx, `SELECT id FROM incoming_payments WHERE payment_hash = ?`, hash[:]).Scan(&id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying incoming payment: %w", err)
		}

		var parts int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM incoming_payment_parts WHERE payment_id = ?`, id,
		).Scan(&parts); err != nil {
			return fmt.Errorf("counting incoming parts: %w", err)
		}
		if parts > 0 {
			return nil
		}

		kind := int64(payments.KindIncoming)
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments_metadata WHERE type = ? AND id = ?`, kind, id); err != nil {
			return fmt.Errorf("deleting metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM link_tx_to_payments WHERE type = ? AND id = ?`, kind, id); err != nil {
			return fmt.Errorf("deleting tx links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM incoming_payments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting incoming payment: %w", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.logger.Debug("removed incoming payment", "hash", hash)
	}
	return removed, nil
}

// SumReceived totals every received part.
func (s *SQLiteStore) SumReceived(ctx context.Context) (lnwire.MilliSatoshi, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_msat), 0) FROM incoming_payment_parts`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing received amounts: %w", err)
	}
	return lnwire.MilliSatoshi(total), nil
}
