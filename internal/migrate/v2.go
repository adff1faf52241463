// ABOUTME: v1 -> v2: liquidity leases become liquidity purchases
// ABOUTME: The liquidity table is rebuilt with purchase columns and every lease re-encoded

package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

const liquidityTable = "inbound_liquidity_outgoing_payments"

type leaseRow struct {
	ID          string
	MiningFee   int64
	ChannelID   []byte
	TxID        []byte
	LeaseType   string
	LeaseBlob   []byte
	CreatedAt   int64
	ConfirmedAt sql.NullInt64
	LockedAt    sql.NullInt64
}

func migrateV1ToV2(ctx context.Context, tx *sql.Tx, _ Writer, stats *Stats) error {
	if _, err := tx.ExecContext(ctx, liquidityTableV2); err != nil {
		return fmt.Errorf("creating purchase table: %w", err)
	}

	query := `
		SELECT rowid, id, mining_fees_sat, channel_id, tx_id, lease_type, lease_blob,
			created_at, confirmed_at, locked_at
		FROM ` + liquidityTable + `
		WHERE rowid > ? ORDER BY rowid LIMIT ?`

	scan := func(scan scanFunc) (leaseRow, error) {
		var r leaseRow
		err := scan(&r.ID, &r.MiningFee, &r.ChannelID, &r.TxID, &r.LeaseType, &r.LeaseBlob,
			&r.CreatedAt, &r.ConfirmedAt, &r.LockedAt)
		return r, err
	}

	written := 0
	read, err := forEachPage(ctx, tx, query, scan, func(r leaseRow) error {
		tag, blob, err := upgradePurchase(r.LeaseType, r.LeaseBlob)
		if err != nil {
			return fmt.Errorf("liquidity payment %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO `+liquidityTable+`_new (
				id, mining_fees_sat, channel_id, tx_id, purchase_type, purchase_blob,
				created_at, confirmed_at, locked_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.MiningFee, r.ChannelID, r.TxID, string(tag), blob, r.CreatedAt, r.ConfirmedAt, r.LockedAt)
		if err != nil {
			return fmt.Errorf("writing liquidity payment %s: %w", r.ID, err)
		}
		written++
		return nil
	})
	stats.read(liquidityTable, read)
	if err != nil {
		return err
	}
	stats.written(liquidityTable, written)

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+liquidityTable); err != nil {
		return fmt.Errorf("dropping lease table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE "+liquidityTable+"_new RENAME TO "+liquidityTable); err != nil {
		return fmt.Errorf("renaming purchase table: %w", err)
	}
	return nil
}
