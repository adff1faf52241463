// ABOUTME: Relational layouts written by earlier releases, kept so old databases can be read
// ABOUTME: v1 stored liquidity leases; v2 stored purchases; both key rows by hash or UUID text

package migrate

import "github.com/2389/lnledger/internal/payments"

// schemaV1 is the layout of databases created before user_version was
// set. Incoming payments are keyed by payment hash with every received
// part in one blob; outgoing ids, part ids and link ids are UUID text.
const schemaV1 = `
	CREATE TABLE IF NOT EXISTS incoming_payments (
		payment_hash         BLOB NOT NULL PRIMARY KEY,
		preimage             BLOB NOT NULL,
		origin_type          TEXT NOT NULL,
		origin_blob          BLOB NOT NULL,
		received_amount_msat INTEGER DEFAULT NULL,
		received_at          INTEGER DEFAULT NULL,
		received_with_type   TEXT DEFAULT NULL,
		received_with_blob   BLOB DEFAULT NULL,
		created_at           INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS incoming_payments_created_idx ON incoming_payments(created_at);
	CREATE INDEX IF NOT EXISTS incoming_payments_received_idx ON incoming_payments(received_at);

	CREATE TABLE IF NOT EXISTS outgoing_payments (
		id                    TEXT NOT NULL PRIMARY KEY,
		recipient_amount_msat INTEGER NOT NULL,
		recipient_node_id     TEXT NOT NULL,
		payment_hash          BLOB NOT NULL,
		details_type          TEXT NOT NULL,
		details_blob          BLOB NOT NULL,
		created_at            INTEGER NOT NULL,
		completed_at          INTEGER DEFAULT NULL,
		status_type           TEXT DEFAULT NULL,
		status_blob           BLOB DEFAULT NULL
	);

	CREATE INDEX IF NOT EXISTS outgoing_payments_hash_idx ON outgoing_payments(payment_hash);

	CREATE TABLE IF NOT EXISTS outgoing_payment_parts (
		part_id           TEXT NOT NULL PRIMARY KEY,
		part_parent_id    TEXT NOT NULL,
		part_amount_msat  INTEGER NOT NULL,
		part_route        TEXT NOT NULL,
		part_created_at   INTEGER NOT NULL,
		part_completed_at INTEGER DEFAULT NULL,
		part_status_type  TEXT DEFAULT NULL,
		part_status_blob  BLOB DEFAULT NULL,
		FOREIGN KEY(part_parent_id) REFERENCES outgoing_payments(id)
	);

	CREATE INDEX IF NOT EXISTS outgoing_payment_parts_parent_idx ON outgoing_payment_parts(part_parent_id);

	CREATE TABLE IF NOT EXISTS splice_outgoing_payments (
		id                   TEXT NOT NULL PRIMARY KEY,
		recipient_amount_sat INTEGER NOT NULL,
		address              TEXT NOT NULL,
		mining_fees_sat      INTEGER NOT NULL,
		channel_id           BLOB NOT NULL,
		tx_id                BLOB NOT NULL,
		created_at           INTEGER NOT NULL,
		confirmed_at         INTEGER DEFAULT NULL,
		locked_at            INTEGER DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS channel_close_outgoing_payments (
		id                   TEXT NOT NULL PRIMARY KEY,
		recipient_amount_sat INTEGER NOT NULL,
		address              TEXT NOT NULL,
		is_default_address   INTEGER NOT NULL,
		mining_fees_sat      INTEGER NOT NULL,
		channel_id           BLOB NOT NULL,
		tx_id                BLOB NOT NULL,
		created_at           INTEGER NOT NULL,
		confirmed_at         INTEGER DEFAULT NULL,
		locked_at            INTEGER DEFAULT NULL,
		closing_info_type    TEXT NOT NULL,
		closing_info_blob    BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS splice_cpfp_outgoing_payments (
		id              TEXT NOT NULL PRIMARY KEY,
		mining_fees_sat INTEGER NOT NULL,
		channel_id      BLOB NOT NULL,
		tx_id           BLOB NOT NULL,
		created_at      INTEGER NOT NULL,
		confirmed_at    INTEGER DEFAULT NULL,
		locked_at       INTEGER DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS inbound_liquidity_outgoing_payments (
		id              TEXT NOT NULL PRIMARY KEY,
		mining_fees_sat INTEGER NOT NULL,
		channel_id      BLOB NOT NULL,
		tx_id           BLOB NOT NULL,
		lease_type      TEXT NOT NULL,
		lease_blob      BLOB NOT NULL,
		created_at      INTEGER NOT NULL,
		confirmed_at    INTEGER DEFAULT NULL,
		locked_at       INTEGER DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS link_tx_to_payments (
		tx_id        BLOB NOT NULL,
		type         INTEGER NOT NULL,
		id           TEXT NOT NULL,
		confirmed_at INTEGER DEFAULT NULL,
		locked_at    INTEGER DEFAULT NULL,
		PRIMARY KEY (tx_id, type, id)
	);

	CREATE INDEX IF NOT EXISTS link_tx_to_payments_confirmed_idx ON link_tx_to_payments(confirmed_at);

	CREATE TABLE IF NOT EXISTS payments_metadata (
		type        INTEGER NOT NULL,
		id          TEXT NOT NULL,
		external_id TEXT DEFAULT NULL,
		webhook_url TEXT DEFAULT NULL,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (type, id)
	);
`

// liquidityTableV2 replaces the lease columns of v1 with purchase columns.
const liquidityTableV2 = `
	CREATE TABLE inbound_liquidity_outgoing_payments_new (
		id              TEXT NOT NULL PRIMARY KEY,
		mining_fees_sat INTEGER NOT NULL,
		channel_id      BLOB NOT NULL,
		tx_id           BLOB NOT NULL,
		purchase_type   TEXT NOT NULL,
		purchase_blob   BLOB NOT NULL,
		created_at      INTEGER NOT NULL,
		confirmed_at    INTEGER DEFAULT NULL,
		locked_at       INTEGER DEFAULT NULL
	)
`

// legacyTables lists the v2 tables replaced in v3, children before parents
// so they can be dropped in order.
var legacyTables = []string{
	"outgoing_payment_parts",
	"outgoing_payments",
	"incoming_payments",
	"splice_outgoing_payments",
	"channel_close_outgoing_payments",
	"splice_cpfp_outgoing_payments",
	"inbound_liquidity_outgoing_payments",
	"link_tx_to_payments",
	"payments_metadata",
}

func legacyName(table string) string {
	return "legacy_" + table
}

// onChainTableNames maps on-chain kinds to their table, identical in every
// version.
var onChainTableNames = map[payments.Kind]string{
	payments.KindChannelCloseOutgoing:     "channel_close_outgoing_payments",
	payments.KindSpliceOutgoing:           "splice_outgoing_payments",
	payments.KindSpliceCpfpOutgoing:       "splice_cpfp_outgoing_payments",
	payments.KindInboundLiquidityOutgoing: "inbound_liquidity_outgoing_payments",
}
