// ABOUTME: Current relational layout and the row writers shared with the migration engine
// ABOUTME: One header table per payment kind, part tables, the tx link index and metadata

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2389/lnledger/internal/migrate"
	"github.com/2389/lnledger/internal/payments"
)

// Timestamps are unix milliseconds. Identity keys are 16 byte ids; kind
// codes in link and metadata rows are payments.Kind values.
const currentSchema = `
	CREATE TABLE IF NOT EXISTS incoming_payments (
		id           BLOB NOT NULL PRIMARY KEY,
		payment_hash BLOB NOT NULL UNIQUE,
		preimage     BLOB NOT NULL,
		origin_type  TEXT NOT NULL,
		origin_blob  BLOB NOT NULL,
		created_at   INTEGER NOT NULL,
		expires_at   INTEGER,
		received_at  INTEGER,
		tx_id        BLOB,
		confirmed_at INTEGER,
		locked_at    INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_incoming_created_at ON incoming_payments(created_at);
	CREATE INDEX IF NOT EXISTS idx_incoming_received_at ON incoming_payments(received_at);

	CREATE TABLE IF NOT EXISTS incoming_payment_parts (
		part_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id  BLOB NOT NULL,
		part_type   TEXT NOT NULL,
		part_blob   BLOB NOT NULL,
		amount_msat INTEGER NOT NULL,
		received_at INTEGER NOT NULL,
		FOREIGN KEY (payment_id) REFERENCES incoming_payments(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_incoming_parts_payment ON incoming_payment_parts(payment_id);

	CREATE TABLE IF NOT EXISTS outgoing_payments (
		id                    BLOB NOT NULL PRIMARY KEY,
		payment_hash          BLOB NOT NULL,
		recipient             BLOB NOT NULL,
		recipient_amount_msat INTEGER NOT NULL,
		details_type          TEXT NOT NULL,
		details_blob          BLOB NOT NULL,
		status_type           TEXT,
		status_blob           BLOB,
		created_at            INTEGER NOT NULL,
		completed_at          INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_outgoing_payment_hash ON outgoing_payments(payment_hash);
	CREATE INDEX IF NOT EXISTS idx_outgoing_created_at ON outgoing_payments(created_at);
	CREATE INDEX IF NOT EXISTS idx_outgoing_completed_at ON outgoing_payments(completed_at);

	CREATE TABLE IF NOT EXISTS outgoing_payment_parts (
		id           BLOB NOT NULL PRIMARY KEY,
		parent_id    BLOB NOT NULL,
		amount_msat  INTEGER NOT NULL,
		route        BLOB NOT NULL,
		created_at   INTEGER NOT NULL,
		status_type  TEXT,
		status_blob  BLOB,
		completed_at INTEGER,
		FOREIGN KEY (parent_id) REFERENCES outgoing_payments(id)
	);

	CREATE INDEX IF NOT EXISTS idx_outgoing_parts_parent ON outgoing_payment_parts(parent_id);

	CREATE TABLE IF NOT EXISTS splice_outgoing_payments (
		id                   BLOB NOT NULL PRIMARY KEY,
		recipient_amount_sat INTEGER NOT NULL,
		address              TEXT NOT NULL,
		mining_fee_sat       INTEGER NOT NULL,
		channel_id           BLOB NOT NULL,
		tx_id                BLOB NOT NULL,
		created_at           INTEGER NOT NULL,
		confirmed_at         INTEGER,
		locked_at            INTEGER
	);

	CREATE TABLE IF NOT EXISTS channel_close_outgoing_payments (
		id                   BLOB NOT NULL PRIMARY KEY,
		recipient_amount_sat INTEGER NOT NULL,
		address              TEXT NOT NULL,
		is_default_address   INTEGER NOT NULL,
		mining_fee_sat       INTEGER NOT NULL,
		channel_id           BLOB NOT NULL,
		tx_id                BLOB NOT NULL,
		closing_info_type    TEXT NOT NULL,
		closing_info_blob    BLOB NOT NULL,
		created_at           INTEGER NOT NULL,
		confirmed_at         INTEGER,
		locked_at            INTEGER
	);

	CREATE TABLE IF NOT EXISTS splice_cpfp_outgoing_payments (
		id             BLOB NOT NULL PRIMARY KEY,
		mining_fee_sat INTEGER NOT NULL,
		channel_id     BLOB NOT NULL,
		tx_id          BLOB NOT NULL,
		created_at     INTEGER NOT NULL,
		confirmed_at   INTEGER,
		locked_at      INTEGER
	);

	CREATE TABLE IF NOT EXISTS inbound_liquidity_outgoing_payments (
		id             BLOB NOT NULL PRIMARY KEY,
		mining_fee_sat INTEGER NOT NULL,
		channel_id     BLOB NOT NULL,
		tx_id          BLOB NOT NULL,
		purchase_type  TEXT NOT NULL,
		purchase_blob  BLOB NOT NULL,
		created_at     INTEGER NOT NULL,
		confirmed_at   INTEGER,
		locked_at      INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_splice_locked_at ON splice_outgoing_payments(locked_at);
	CREATE INDEX IF NOT EXISTS idx_close_locked_at ON channel_close_outgoing_payments(locked_at);
	CREATE INDEX IF NOT EXISTS idx_cpfp_locked_at ON splice_cpfp_outgoing_payments(locked_at);
	CREATE INDEX IF NOT EXISTS idx_liquidity_locked_at ON inbound_liquidity_outgoing_payments(locked_at);

	CREATE TABLE IF NOT EXISTS link_tx_to_payments (
		tx_id        BLOB NOT NULL,
		type         INTEGER NOT NULL,
		id           BLOB NOT NULL,
		confirmed_at INTEGER,
		locked_at    INTEGER,
		PRIMARY KEY (tx_id, type, id)
	);

	CREATE INDEX IF NOT EXISTS idx_link_tx_payment ON link_tx_to_payments(type, id);
	CREATE INDEX IF NOT EXISTS idx_link_tx_unconfirmed ON link_tx_to_payments(confirmed_at);

	CREATE TABLE IF NOT EXISTS payments_metadata (
		type        INTEGER NOT NULL,
		id          BLOB NOT NULL,
		external_id TEXT,
		webhook_url TEXT,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (type, id)
	);

	CREATE INDEX IF NOT EXISTS idx_metadata_external_id ON payments_metadata(external_id);
`

// onChainTables maps on-chain kinds to their header table.
var onChainTables = map[payments.Kind]string{
	payments.KindChannelCloseOutgoing:     "channel_close_outgoing_payments",
	payments.KindSpliceOutgoing:           "splice_outgoing_payments",
	payments.KindSpliceCpfpOutgoing:       "splice_cpfp_outgoing_payments",
	payments.KindInboundLiquidityOutgoing: "inbound_liquidity_outgoing_payments",
}

// headerTable returns the table holding rows of the given kind.
func headerTable(kind payments.Kind) (string, error) {
	switch kind {
	case payments.KindIncoming:
		return "incoming_payments", nil
	case payments.KindLightningOutgoing:
		return "outgoing_payments", nil
	}
	if table, ok := onChainTables[kind]; ok {
		return table, nil
	}
	return "", fmt.Errorf("%w: %s", payments.ErrInvalidIdentity, kind)
}

// identityExists reports whether the header row for id is present.
func identityExists(ctx context.Context, q querier, id payments.Identity) (bool, error) {
	table, err := headerTable(id.Kind)
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id.Key()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", id, err)
	}
	return true, nil
}

// rowWriter writes canonical rows for the migration engine. It never links
// transactions implicitly: links are copied from the legacy link table.
type rowWriter struct{}

var _ migrate.Writer = rowWriter{}

func (rowWriter) CreateSchema(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, currentSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (rowWriter) WriteIncoming(ctx context.Context, tx *sql.Tx, p *payments.IncomingPayment) error {
	return insertIncoming(ctx, tx, p)
}

func (rowWriter) WriteOutgoing(ctx context.Context, tx *sql.Tx, p payments.OutgoingPayment) error {
	return insertOutgoing(ctx, tx, p)
}

func (rowWriter) WriteTxLink(ctx context.Context, tx *sql.Tx, link payments.TxLink) error {
	return insertLink(ctx, tx, link)
}

func (rowWriter) WriteMetadata(ctx context.Context, tx *sql.Tx, m payments.Metadata) error {
	return insertMetadata(ctx, tx, m)
}
