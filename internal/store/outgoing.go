// ABOUTME: Outgoing Lightning payment operations: create, add parts, complete, lookups
// ABOUTME: Part completion is monotonic; the parent status only changes via CompleteOffchain

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

const lightningColumns = `id, payment_hash, recipient, recipient_amount_msat,
	details_type, details_blob, status_type, status_blob, created_at, completed_at`

// AddOutgoingPayment creates an outgoing payment of any variant. On-chain
// variants link their transaction in the same transaction. Returns
// ErrDuplicateIdentity if the identity is already stored.
func (s *SQLiteStore) AddOutgoingPayment(ctx context.Context, p payments.OutgoingPayment, meta *payments.Metadata) error {
	id := p.Identity()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertOutgoing(ctx, tx, p); err != nil {
			return err
		}
		if oc, ok := p.(payments.OnChainPayment); ok {
			if err := linkTx(ctx, tx, oc.TransactionID(), id); err != nil {
				return err
			}
		}
		if meta != nil {
			return insertMetadataFor(ctx, tx, id, p.CreatedTime(), meta)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("added outgoing payment", "id", id)
	return nil
}

func insertOutgoing(ctx context.Context, q querier, p payments.OutgoingPayment) error {
	switch p := p.(type) {
	case *payments.LightningOutgoingPayment:
		return insertLightning(ctx, q, p)
	case payments.OnChainPayment:
		return insertOnChain(ctx, q, p)
	}
	return fmt.Errorf("unsupported outgoing payment %T", p)
}

func insertLightning(ctx context.Context, q querier, p *payments.LightningOutgoingPayment) error {
	detailsType, detailsBlob, err := codec.OutgoingDetails.Encode(p.Details)
	if err != nil {
		return err
	}

	statusType, statusBlob, err := encodeStatus(p.Status)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO outgoing_payments (id, payment_hash, recipient, recipient_amount_msat,
			details_type, details_blob, status_type, status_blob, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID[:],
		p.PaymentHash[:],
		p.Recipient[:],
		int64(p.RecipientAmount),
		string(detailsType),
		detailsBlob,
		statusType,
		statusBlob,
		toMillis(p.CreatedAt),
		nullMillis(p.CompletedTime()),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, p.Identity())
		}
		return fmt.Errorf("inserting outgoing payment: %w", err)
	}

	return insertLightningParts(ctx, q, p.ID, p.Parts)
}

// encodeStatus returns NULL columns for a pending status.
func encodeStatus(s payments.OutgoingStatus) (any, any, error) {
	switch s.(type) {
	case nil, *payments.PendingStatus:
		return nil, nil, nil
	}
	tag, blob, err := codec.OutgoingStatuses.Encode(s)
	if err != nil {
		return nil, nil, err
	}
	return string(tag), blob, nil
}

func encodePartStatus(s payments.PartStatus) (tag, blob, completedAt any, err error) {
	switch s := s.(type) {
	case nil, *payments.PartPending:
		return nil, nil, nil, nil
	case *payments.PartSucceeded:
		completedAt = toMillis(s.CompletedAt)
	case *payments.PartFailed:
		completedAt = toMillis(s.CompletedAt)
	}
	t, b, err := codec.PartStatuses.Encode(s)
	if err != nil {
		return nil, nil, nil, err
	}
	return string(t), b, completedAt, nil
}

func insertLightningParts(ctx context.Context, q querier, parentID uuid.UUID, parts []payments.OutgoingPart) error {
	for i := range parts {
		part := &parts[i]
		statusType, statusBlob, completedAt, err := encodePartStatus(part.Status)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO outgoing_payment_parts (id, parent_id, amount_msat, route, created_at,
				status_type, status_blob, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			part.ID[:],
			parentID[:],
			int64(part.Amount),
			codec.EncodeRoute(part.Route),
			toMillis(part.CreatedAt),
			statusType,
			statusBlob,
			completedAt,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("%w: part %s", ErrDuplicateIdentity, part.ID)
			}
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: outgoing payment %s", ErrUnknownParent, parentID)
			}
			return fmt.Errorf("inserting outgoing part: %w", err)
		}
	}
	return nil
}

// AddLightningParts appends route parts to a Lightning payment. Returns
// ErrUnknownParent if the parent is missing and ErrDuplicateIdentity if
// any part id is already used; in both cases nothing is written.
func (s *SQLiteStore) AddLightningParts(ctx context.Context, parentID uuid.UUID, parts []payments.OutgoingPart) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := identityExists(ctx, tx, payments.NewIdentity(payments.KindLightningOutgoing, parentID))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: outgoing payment %s", ErrUnknownParent, parentID)
		}
		return insertLightningParts(ctx, tx, parentID, parts)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("added lightning parts", "parent_id", parentID, "count", len(parts))
	return nil
}

// CompleteOffchain sets the terminal status of a Lightning payment. The
// caller completes each payment once, when it is final. Only succeeded or
// failed statuses are accepted, so a payment never returns to pending.
// Returns ErrNotFound if the payment doesn't exist.
func (s *SQLiteStore) CompleteOffchain(ctx context.Context, id uuid.UUID, status payments.OutgoingStatus) error {
	var completedAt any
	switch st := status.(type) {
	case *payments.SucceededStatus:
		completedAt = toMillis(st.CompletedAt)
	case *payments.FailedStatus:
		completedAt = toMillis(st.CompletedAt)
	default:
		return fmt.Errorf("completing payment %s: %w", id, ErrNotTerminal)
	}

	tag, blob, err := codec.OutgoingStatuses.Encode(status)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE outgoing_payments SET status_type = ?, status_blob = ?, completed_at = ?
		WHERE id = ?
	`, string(tag), blob, completedAt, id[:])
	if err != nil {
		return fmt.Errorf("updating outgoing status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("completed outgoing payment", "id", id, "status", tag)
	return nil
}

// CompletePart moves a pending part to a terminal status. Returns
// ErrPartAlreadyCompleted if it is already terminal and ErrNotFound if it
// doesn't exist.
func (s *SQLiteStore) CompletePart(ctx context.Context, partID uuid.UUID, status payments.PartStatus) error {
	tag, blob, completedAt, err := encodePartStatus(status)
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("completing part %s: %w", partID, ErrNotTerminal)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE outgoing_payment_parts SET status_type = ?, status_blob = ?, completed_at = ?
			WHERE id = ? AND status_type IS NULL
		`, tag, blob, completedAt, partID[:])
		if err != nil {
			return fmt.Errorf("updating part status: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rowsAffected > 0 {
			return nil
		}

		var one int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM outgoing_payment_parts WHERE id = ?`, partID[:]).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying part: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrPartAlreadyCompleted, partID)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("completed outgoing part", "part_id", partID, "status", tag)
	return nil
}

// GetLightningOutgoingPayment retrieves a Lightning payment with its parts.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetLightningOutgoingPayment(ctx context.Context, id uuid.UUID) (*payments.LightningOutgoingPayment, error) {
	var p *payments.LightningOutgoingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getLightning(ctx, tx, id)
		return err
	})
	return p, err
}

// GetLightningOutgoingPaymentFromPartID resolves a part to its parent.
func (s *SQLiteStore) GetLightningOutgoingPaymentFromPartID(ctx context.Context, partID uuid.UUID) (*payments.LightningOutgoingPayment, error) {
	var p *payments.LightningOutgoingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var parent []byte
		err := tx.QueryRowContext(ctx, `SELECT parent_id FROM outgoing_payment_parts WHERE id = ?`, partID[:]).Scan(&parent)
		if err != nil {
			return notFound(err, "outgoing part")
		}
		parentID, err := uuid.FromBytes(parent)
		if err != nil {
			return fmt.Errorf("parsing parent id: %w", err)
		}
		p, err = getLightning(ctx, tx, parentID)
		return err
	})
	return p, err
}

// ListLightningOutgoingPaymentsForHash returns every attempt to pay hash,
// oldest first.
func (s *SQLiteStore) ListLightningOutgoingPaymentsForHash(ctx context.Context, hash lntypes.Hash) ([]*payments.LightningOutgoingPayment, error) {
	var result []*payments.LightningOutgoingPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		ids, err := queryIDs(ctx, tx, `
			SELECT id FROM outgoing_payments WHERE payment_hash = ? ORDER BY created_at, id
		`, hash[:])
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, err := getLightning(ctx, tx, id)
			if err != nil {
				return err
			}
			result = append(result, p)
		}
		return nil
	})
	return result, err
}

func getLightning(ctx context.Context, q querier, id uuid.UUID) (*payments.LightningOutgoingPayment, error) {
	var (
		rawID, hash, recipient []byte
		amount                 int64
		detailsType            string
		detailsBlob            []byte
		statusType             sql.NullString
		statusBlob             []byte
		createdAt              int64
		completedAt            sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `SELECT `+lightningColumns+` FROM outgoing_payments WHERE id = ?`, id[:]).Scan(
		&rawID, &hash, &recipient, &amount, &detailsType, &detailsBlob,
		&statusType, &statusBlob, &createdAt, &completedAt,
	)
	if err != nil {
		return nil, notFound(err, "outgoing payment")
	}

	p := &payments.LightningOutgoingPayment{
		ID:              id,
		RecipientAmount: lnwire.MilliSatoshi(amount),
		CreatedAt:       fromMillis(createdAt),
		Status:          &payments.PendingStatus{},
	}
	if p.PaymentHash, err = lntypes.MakeHash(hash); err != nil {
		return nil, fmt.Errorf("parsing payment hash: %w", err)
	}
	if p.Recipient, err = route.NewVertexFromBytes(recipient); err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}
	if p.Details, err = codec.OutgoingDetails.Decode(codec.Tag(detailsType), detailsBlob); err != nil {
		return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
	}
	if statusType.Valid {
		at := fromMillis(completedAt.Int64)
		if p.Status, err = codec.DecodeStatus(codec.Tag(statusType.String), statusBlob, at); err != nil {
			return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
		}
	}

	if p.Parts, err = loadLightningParts(ctx, q, id); err != nil {
		return nil, err
	}
	return p, nil
}

func loadLightningParts(ctx context.Context, q querier, parentID uuid.UUID) ([]payments.OutgoingPart, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, amount_msat, route, created_at, status_type, status_blob, completed_at
		FROM outgoing_payment_parts
		WHERE parent_id = ?
		ORDER BY created_at, rowid
	`, parentID[:])
	if err != nil {
		return nil, fmt.Errorf("querying outgoing parts: %w", err)
	}
	defer rows.Close()

	var parts []payments.OutgoingPart
	for rows.Next() {
		var (
			id, routeBlob, statusBlob []byte
			amount, createdAt         int64
			statusType                sql.NullString
			completedAt               sql.NullInt64
		)
		if err := rows.Scan(&id, &amount, &routeBlob, &createdAt, &statusType, &statusBlob, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning outgoing part: %w", err)
		}

		part := payments.OutgoingPart{
			Amount:    lnwire.MilliSatoshi(amount),
			CreatedAt: fromMillis(createdAt),
			Status:    &payments.PartPending{},
		}
		if part.ID, err = uuid.FromBytes(id); err != nil {
			return nil, fmt.Errorf("parsing part id: %w", err)
		}
		if part.Route, err = codec.DecodeRoute(routeBlob); err != nil {
			return nil, fmt.Errorf("part %s: %w", part.ID, err)
		}
		if statusType.Valid {
			at := fromMillis(completedAt.Int64)
			if part.Status, err = codec.DecodePartStatus(codec.Tag(statusType.String), statusBlob, at); err != nil {
				return nil, fmt.Errorf("part %s: %w", part.ID, err)
			}
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outgoing parts: %w", err)
	}
	return parts, nil
}

// queryIDs collects a single column of 16 byte ids.
func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}
