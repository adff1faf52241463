// ABOUTME: v2 -> v3: payment tables re-keyed by identity, incoming parts split into rows
// ABOUTME: Legacy tables are renamed aside, copied through the Writer, then dropped

package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2389/lnledger/internal/payments"
)

const pageClause = `
	WHERE rowid > ? ORDER BY rowid LIMIT ?`

func migrateV2ToV3(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	for _, t := range legacyTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", t, legacyName(t))); err != nil {
			return fmt.Errorf("renaming %s: %w", t, err)
		}
	}

	if err := w.CreateSchema(ctx, tx); err != nil {
		return err
	}

	copies := []func(context.Context, *sql.Tx, Writer, *Stats) error{
		copyIncoming,
		copyOutgoing,
		copyOnChain,
		copyLinks,
		copyMetadata,
	}
	for _, copyRows := range copies {
		if err := copyRows(ctx, tx, w, stats); err != nil {
			return err
		}
	}

	for _, t := range legacyTables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+legacyName(t)); err != nil {
			return fmt.Errorf("dropping %s: %w", legacyName(t), err)
		}
	}
	return nil
}

func copyIncoming(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	query := `
		SELECT rowid, payment_hash, preimage, origin_type, origin_blob, received_at,
			received_with_type, received_with_blob, created_at
		FROM legacy_incoming_payments` + pageClause

	read, err := forEachPage(ctx, tx, query, scanIncomingRow, func(r incomingRow) error {
		p, err := convertIncoming(r)
		if err != nil {
			return err
		}
		if err := w.WriteIncoming(ctx, tx, p); err != nil {
			return fmt.Errorf("writing incoming payment %s: %w", p.PaymentHash, err)
		}
		stats.written("incoming_payments", 1)
		stats.written("incoming_payment_parts", len(p.Parts))
		return nil
	})
	stats.read("incoming_payments", read)
	return err
}

func copyOutgoing(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	query := `
		SELECT rowid, id, recipient_amount_msat, recipient_node_id, payment_hash,
			details_type, details_blob, created_at, completed_at, status_type, status_blob
		FROM legacy_outgoing_payments` + pageClause

	read, err := forEachPage(ctx, tx, query, scanOutgoingRow, func(r outgoingRow) error {
		parts, err := readOutgoingParts(ctx, tx, legacyName("outgoing_payment_parts"), r.ID)
		if err != nil {
			return err
		}
		stats.read("outgoing_payment_parts", len(parts))

		p, err := convertOutgoing(r, parts)
		if err != nil {
			return err
		}
		if err := w.WriteOutgoing(ctx, tx, p); err != nil {
			return fmt.Errorf("writing outgoing payment %s: %w", p.ID, err)
		}
		stats.written("outgoing_payments", 1)
		stats.written("outgoing_payment_parts", len(p.Parts))
		return nil
	})
	stats.read("outgoing_payments", read)
	return err
}

func copyOnChain(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	kinds := []payments.Kind{
		payments.KindChannelCloseOutgoing,
		payments.KindSpliceOutgoing,
		payments.KindSpliceCpfpOutgoing,
		payments.KindInboundLiquidityOutgoing,
	}
	for _, kind := range kinds {
		table := onChainTableNames[kind]
		read, err := forEachPage(ctx, tx, onChainQueries[kind]+pageClause, scanOnChainRow(kind), func(r onChainRow) error {
			p, err := convertOnChain(r)
			if err != nil {
				return err
			}
			if err := w.WriteOutgoing(ctx, tx, p); err != nil {
				return fmt.Errorf("writing %s %s: %w", kind, r.ID, err)
			}
			stats.written(table, 1)
			return nil
		})
		stats.read(table, read)
		if err != nil {
			return err
		}
	}
	return nil
}

func copyLinks(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	query := `
		SELECT rowid, tx_id, type, id, confirmed_at, locked_at
		FROM legacy_link_tx_to_payments` + pageClause

	read, err := forEachPage(ctx, tx, query, scanLinkRow, func(r linkRow) error {
		link, err := convertLink(r)
		if err != nil {
			return err
		}
		if err := w.WriteTxLink(ctx, tx, link); err != nil {
			return fmt.Errorf("writing tx link %s: %w", link.TxID, err)
		}
		stats.written("link_tx_to_payments", 1)
		return nil
	})
	stats.read("link_tx_to_payments", read)
	return err
}

func copyMetadata(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error {
	query := `
		SELECT rowid, type, id, external_id, webhook_url, created_at
		FROM legacy_payments_metadata` + pageClause

	read, err := forEachPage(ctx, tx, query, scanMetadataRow, func(r metadataRow) error {
		m, err := convertMetadata(r)
		if err != nil {
			return err
		}
		if err := w.WriteMetadata(ctx, tx, m); err != nil {
			return fmt.Errorf("writing metadata for %s: %w", m.Identity, err)
		}
		stats.written("payments_metadata", 1)
		return nil
	})
	stats.read("payments_metadata", read)
	return err
}
