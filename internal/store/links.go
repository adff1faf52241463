// ABOUTME: Transaction link index mapping on-chain transactions to the payments they settle
// ABOUTME: Confirmation and lock times are write-once and fanned out to each linked payment row

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/2389/lnledger/internal/payments"
)

// LinkTx links txID to every given payment. Linking an already linked pair
// is a no-op. When the transaction is already confirmed or locked, the new
// links and payments inherit those times. Returns ErrUnknownParent if any
// payment is missing; nothing is written in that case.
func (s *SQLiteStore) LinkTx(ctx context.Context, txID chainhash.Hash, ids ...payments.Identity) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			exists, err := identityExists(ctx, tx, id)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrUnknownParent, id)
			}
		}
		return linkTx(ctx, tx, txID, ids...)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("linked transaction", "tx_id", txID, "payments", len(ids))
	return nil
}

// linkTx writes links for ids, copying any confirmation already recorded
// for txID.
func linkTx(ctx context.Context, q querier, txID chainhash.Hash, ids ...payments.Identity) error {
	var confirmedAt, lockedAt sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(confirmed_at), MAX(locked_at) FROM link_tx_to_payments WHERE tx_id = ?
	`, txID[:]).Scan(&confirmedAt, &lockedAt)
	if err != nil {
		return fmt.Errorf("querying tx confirmation: %w", err)
	}

	for _, id := range ids {
		link := payments.TxLink{
			TxID:        txID,
			Identity:    id,
			ConfirmedAt: fromNullMillis(confirmedAt),
			LockedAt:    fromNullMillis(lockedAt),
		}
		if err := insertLink(ctx, q, link); err != nil {
			return err
		}
	}
	return nil
}

// insertLink stores one link and mirrors its timestamps onto the payment.
func insertLink(ctx context.Context, q querier, link payments.TxLink) error {
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO link_tx_to_payments (tx_id, type, id, confirmed_at, locked_at)
		VALUES (?, ?, ?, ?, ?)
	`, link.TxID[:], int64(link.Identity.Kind), link.Identity.Key(), nullMillis(link.ConfirmedAt), nullMillis(link.LockedAt))
	if err != nil {
		return fmt.Errorf("inserting tx link: %w", err)
	}

	if link.ConfirmedAt != nil {
		if err := fanOut(ctx, q, "confirmed_at", link.Identity, *link.ConfirmedAt); err != nil {
			return err
		}
	}
	if link.LockedAt != nil {
		if err := fanOut(ctx, q, "locked_at", link.Identity, *link.LockedAt); err != nil {
			return err
		}
	}
	return nil
}

// fanOut sets column on the payment row unless it already holds a value.
// Lightning payments carry no confirmation columns.
func fanOut(ctx context.Context, q querier, column string, id payments.Identity, at time.Time) error {
	if id.Kind == payments.KindLightningOutgoing {
		return nil
	}
	table, err := headerTable(id.Kind)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE `+table+` SET `+column+` = COALESCE(`+column+`, ?) WHERE id = ?`,
		toMillis(at), id.Key(),
	)
	if err != nil {
		return fmt.Errorf("updating %s of %s: %w", column, id, err)
	}
	return nil
}

// SetConfirmed records the first confirmation of txID on every link and
// linked payment. Later calls keep the first time. Returns ErrNotFound if
// nothing is linked to txID.
func (s *SQLiteStore) SetConfirmed(ctx context.Context, txID chainhash.Hash, at time.Time) error {
	return s.setTxTime(ctx, "confirmed_at", txID, at)
}

// SetLocked records when txID became final for every linked payment.
func (s *SQLiteStore) SetLocked(ctx context.Context, txID chainhash.Hash, at time.Time) error {
	return s.setTxTime(ctx, "locked_at", txID, at)
}

func (s *SQLiteStore) setTxTime(ctx context.Context, column string, txID chainhash.Hash, at time.Time) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := linkedIdentities(ctx, tx, txID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE link_tx_to_payments SET `+column+` = ? WHERE tx_id = ? AND `+column+` IS NULL`,
			toMillis(at), txID[:],
		); err != nil {
			return fmt.Errorf("updating tx links: %w", err)
		}

		for _, id := range ids {
			if err := fanOut(ctx, tx, column, id, at); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("updated transaction", "tx_id", txID, "column", column, "at", at)
	return nil
}

// ListLinkedIdentities returns every payment linked to txID.
func (s *SQLiteStore) ListLinkedIdentities(ctx context.Context, txID chainhash.Hash) ([]payments.Identity, error) {
	return linkedIdentities(ctx, s.db, txID)
}

func linkedIdentities(ctx context.Context, q querier, txID chainhash.Hash) ([]payments.Identity, error) {
	links, err := queryLinks(ctx, q, txID)
	if err != nil {
		return nil, err
	}
	ids := make([]payments.Identity, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.Identity)
	}
	return ids, nil
}

// ListTxLinks returns the links of txID with their confirmation times.
func (s *SQLiteStore) ListTxLinks(ctx context.Context, txID chainhash.Hash) ([]payments.TxLink, error) {
	return queryLinks(ctx, s.db, txID)
}

func queryLinks(ctx context.Context, q querier, txID chainhash.Hash) ([]payments.TxLink, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT type, id, confirmed_at, locked_at FROM link_tx_to_payments
		WHERE tx_id = ?
		ORDER BY type, id
	`, txID[:])
	if err != nil {
		return nil, fmt.Errorf("querying tx links: %w", err)
	}
	defer rows.Close()

	var links []payments.TxLink
	for rows.Next() {
		var (
			kind        int64
			key         []byte
			confirmedAt sql.NullInt64
			lockedAt    sql.NullInt64
		)
		if err := rows.Scan(&kind, &key, &confirmedAt, &lockedAt); err != nil {
			return nil, fmt.Errorf("scanning tx link: %w", err)
		}
		id, err := payments.Parse(kind, key)
		if err != nil {
			return nil, err
		}
		links = append(links, payments.TxLink{
			TxID:        txID,
			Identity:    id,
			ConfirmedAt: fromNullMillis(confirmedAt),
			LockedAt:    fromNullMillis(lockedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tx links: %w", err)
	}
	return links, nil
}

// ListUnconfirmedTxs returns every linked transaction without a
// confirmation, in byte order.
func (s *SQLiteStore) ListUnconfirmedTxs(ctx context.Context) ([]chainhash.Hash, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tx_id FROM link_tx_to_payments
		WHERE confirmed_at IS NULL
		ORDER BY tx_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying unconfirmed txs: %w", err)
	}
	defer rows.Close()

	var txs []chainhash.Hash
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning tx id: %w", err)
		}
		hash, err := chainhash.NewHash(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing tx id: %w", err)
		}
		txs = append(txs, *hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unconfirmed txs: %w", err)
	}
	return txs, nil
}
