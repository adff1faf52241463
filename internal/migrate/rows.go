// ABOUTME: Legacy row shapes and a paging reader over rowid-ordered legacy tables
// ABOUTME: Pages are fully read and closed before any row of the page is written

package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/2389/lnledger/internal/payments"
)

// pageSize bounds how many legacy rows are held in memory at once.
const pageSize = 500

type incomingRow struct {
	PaymentHash      []byte
	Preimage         []byte
	OriginType       string
	OriginBlob       []byte
	ReceivedAt       *time.Time
	ReceivedWithType string
	ReceivedWithBlob []byte
	CreatedAt        time.Time
}

type outgoingRow struct {
	ID              string
	RecipientAmount int64
	RecipientNodeID string
	PaymentHash     []byte
	DetailsType     string
	DetailsBlob     []byte
	CreatedAt       time.Time
	CompletedAt     *time.Time
	StatusType      string
	StatusBlob      []byte
}

type outgoingPartRow struct {
	ID          string
	Amount      int64
	Route       string
	CreatedAt   time.Time
	CompletedAt *time.Time
	StatusType  string
	StatusBlob  []byte
}

// onChainRow holds the union of the four on-chain tables; columns a table
// lacks are left zero.
type onChainRow struct {
	Kind             payments.Kind
	ID               string
	RecipientAmount  int64
	Address          string
	IsDefaultAddress bool
	MiningFee        int64
	ChannelID        []byte
	TxID             []byte
	ClosingInfoType  string
	ClosingInfoBlob  []byte
	PurchaseType     string
	PurchaseBlob     []byte
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
	LockedAt         *time.Time
}

type linkRow struct {
	TxID        []byte
	Type        int64
	ID          string
	ConfirmedAt *time.Time
	LockedAt    *time.Time
}

type metadataRow struct {
	Type       int64
	ID         string
	ExternalID string
	WebhookURL string
	CreatedAt  time.Time
}

// scanFunc scans the columns after rowid.
type scanFunc func(dest ...any) error

// forEachPage reads query page by page. The query must select rowid first
// and end with "WHERE rowid > ? ORDER BY rowid LIMIT ?". Each page is
// scanned and closed before fn runs on its rows, so fn may write.
func forEachPage[T any](ctx context.Context, tx *sql.Tx, query string, scan func(scanFunc) (T, error), fn func(T) error) (int, error) {
	var (
		after int64
		total int
	)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		rows, err := tx.QueryContext(ctx, query, after, pageSize)
		if err != nil {
			return total, fmt.Errorf("querying legacy rows: %w", err)
		}

		var page []T
		for rows.Next() {
			var rowid int64
			item, err := scan(func(dest ...any) error {
				return rows.Scan(append([]any{&rowid}, dest...)...)
			})
			if err != nil {
				rows.Close()
				return total, fmt.Errorf("scanning legacy row: %w", err)
			}
			page = append(page, item)
			after = rowid
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return total, fmt.Errorf("iterating legacy rows: %w", err)
		}
		rows.Close()

		for _, item := range page {
			if err := fn(item); err != nil {
				return total, err
			}
		}
		total += len(page)

		if len(page) < pageSize {
			return total, nil
		}
	}
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func scanIncomingRow(scan scanFunc) (incomingRow, error) {
	var (
		r          incomingRow
		receivedAt sql.NullInt64
		withType   sql.NullString
		createdAt  int64
	)
	err := scan(&r.PaymentHash, &r.Preimage, &r.OriginType, &r.OriginBlob,
		&receivedAt, &withType, &r.ReceivedWithBlob, &createdAt)
	if err != nil {
		return r, err
	}
	r.ReceivedAt = nullTime(receivedAt)
	r.ReceivedWithType = withType.String
	r.CreatedAt = time.UnixMilli(createdAt)
	return r, nil
}

func scanOutgoingRow(scan scanFunc) (outgoingRow, error) {
	var (
		r           outgoingRow
		createdAt   int64
		completedAt sql.NullInt64
		statusType  sql.NullString
	)
	err := scan(&r.ID, &r.RecipientAmount, &r.RecipientNodeID, &r.PaymentHash,
		&r.DetailsType, &r.DetailsBlob, &createdAt, &completedAt, &statusType, &r.StatusBlob)
	if err != nil {
		return r, err
	}
	r.CreatedAt = time.UnixMilli(createdAt)
	r.CompletedAt = nullTime(completedAt)
	r.StatusType = statusType.String
	return r, nil
}

// readOutgoingParts loads the parts of one legacy payment in creation order.
func readOutgoingParts(ctx context.Context, tx *sql.Tx, table, parentID string) ([]outgoingPartRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT part_id, part_amount_msat, part_route, part_created_at,
			part_completed_at, part_status_type, part_status_blob
		FROM `+table+`
		WHERE part_parent_id = ?
		ORDER BY part_created_at, rowid
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying legacy parts: %w", err)
	}
	defer rows.Close()

	var parts []outgoingPartRow
	for rows.Next() {
		var (
			r           outgoingPartRow
			createdAt   int64
			completedAt sql.NullInt64
			statusType  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Amount, &r.Route, &createdAt, &completedAt, &statusType, &r.StatusBlob); err != nil {
			return nil, fmt.Errorf("scanning legacy part: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		r.CompletedAt = nullTime(completedAt)
		r.StatusType = statusType.String
		parts = append(parts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legacy parts: %w", err)
	}
	return parts, nil
}

// onChainQueries selects every on-chain table into the onChainRow column
// order, filling absent columns with constants.
var onChainQueries = map[payments.Kind]string{
	payments.KindSpliceOutgoing: `
		SELECT rowid, id, recipient_amount_sat, address, 0, mining_fees_sat, channel_id, tx_id,
			NULL, NULL, NULL, NULL, created_at, confirmed_at, locked_at
		FROM legacy_splice_outgoing_payments`,
	payments.KindChannelCloseOutgoing: `
		SELECT rowid, id, recipient_amount_sat, address, is_default_address, mining_fees_sat, channel_id, tx_id,
			closing_info_type, closing_info_blob, NULL, NULL, created_at, confirmed_at, locked_at
		FROM legacy_channel_close_outgoing_payments`,
	payments.KindSpliceCpfpOutgoing: `
		SELECT rowid, id, 0, '', 0, mining_fees_sat, channel_id, tx_id,
			NULL, NULL, NULL, NULL, created_at, confirmed_at, locked_at
		FROM legacy_splice_cpfp_outgoing_payments`,
	payments.KindInboundLiquidityOutgoing: `
		SELECT rowid, id, 0, '', 0, mining_fees_sat, channel_id, tx_id,
			NULL, NULL, purchase_type, purchase_blob, created_at, confirmed_at, locked_at
		FROM legacy_inbound_liquidity_outgoing_payments`,
}

func scanOnChainRow(kind payments.Kind) func(scanFunc) (onChainRow, error) {
	return func(scan scanFunc) (onChainRow, error) {
		var (
			r            = onChainRow{Kind: kind}
			closingType  sql.NullString
			purchaseType sql.NullString
			createdAt    int64
			confirmedAt  sql.NullInt64
			lockedAt     sql.NullInt64
		)
		err := scan(&r.ID, &r.RecipientAmount, &r.Address, &r.IsDefaultAddress, &r.MiningFee,
			&r.ChannelID, &r.TxID, &closingType, &r.ClosingInfoBlob, &purchaseType, &r.PurchaseBlob,
			&createdAt, &confirmedAt, &lockedAt)
		if err != nil {
			return r, err
		}
		r.ClosingInfoType = closingType.String
		r.PurchaseType = purchaseType.String
		r.CreatedAt = time.UnixMilli(createdAt)
		r.ConfirmedAt = nullTime(confirmedAt)
		r.LockedAt = nullTime(lockedAt)
		return r, nil
	}
}

func scanLinkRow(scan scanFunc) (linkRow, error) {
	var (
		r           linkRow
		confirmedAt sql.NullInt64
		lockedAt    sql.NullInt64
	)
	if err := scan(&r.TxID, &r.Type, &r.ID, &confirmedAt, &lockedAt); err != nil {
		return r, err
	}
	r.ConfirmedAt = nullTime(confirmedAt)
	r.LockedAt = nullTime(lockedAt)
	return r, nil
}

func scanMetadataRow(scan scanFunc) (metadataRow, error) {
	var (
		r          metadataRow
		externalID sql.NullString
		webhookURL sql.NullString
		createdAt  int64
	)
	if err := scan(&r.Type, &r.ID, &externalID, &webhookURL, &createdAt); err != nil {
		return r, err
	}
	r.ExternalID = externalID.String
	r.WebhookURL = webhookURL.String
	r.CreatedAt = time.UnixMilli(createdAt)
	return r, nil
}
