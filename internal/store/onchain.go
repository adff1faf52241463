// ABOUTME: On-chain outgoing payments: splice-out, channel close, splice CPFP, liquidity purchase
// ABOUTME: Each variant has its own header table; confirmation times mirror the tx link

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

func insertOnChain(ctx context.Context, q querier, p payments.OnChainPayment) error {
	id := p.Identity()
	confirmedAt, lockedAt := p.Confirmation()

	var err error
	switch p := p.(type) {
	case *payments.SpliceOutgoingPayment:
		_, err = q.ExecContext(ctx, `
			INSERT INTO splice_outgoing_payments (id, recipient_amount_sat, address, mining_fee_sat,
				channel_id, tx_id, created_at, confirmed_at, locked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID[:], int64(p.RecipientAmount), p.Address, int64(p.MiningFee),
			p.ChannelID[:], p.TxID[:], toMillis(p.CreatedAt), nullMillis(confirmedAt), nullMillis(lockedAt),
		)

	case *payments.ChannelCloseOutgoingPayment:
		infoType, infoBlob, encErr := codec.ClosingInfos.Encode(p.ClosingType)
		if encErr != nil {
			return encErr
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO channel_close_outgoing_payments (id, recipient_amount_sat, address,
				is_default_address, mining_fee_sat, channel_id, tx_id, closing_info_type,
				closing_info_blob, created_at, confirmed_at, locked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID[:], int64(p.RecipientAmount), p.Address, p.IsSentToDefaultAddress,
			int64(p.MiningFee), p.ChannelID[:], p.TxID[:], string(infoType), infoBlob,
			toMillis(p.CreatedAt), nullMillis(confirmedAt), nullMillis(lockedAt),
		)

	case *payments.SpliceCpfpOutgoingPayment:
		_, err = q.ExecContext(ctx, `
			INSERT INTO splice_cpfp_outgoing_payments (id, mining_fee_sat, channel_id, tx_id,
				created_at, confirmed_at, locked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID[:], int64(p.MiningFee), p.ChannelID[:], p.TxID[:],
			toMillis(p.CreatedAt), nullMillis(confirmedAt), nullMillis(lockedAt),
		)

	case *payments.InboundLiquidityOutgoingPayment:
		purchaseType, purchaseBlob, encErr := codec.Purchases.Encode(p.Purchase)
		if encErr != nil {
			return encErr
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO inbound_liquidity_outgoing_payments (id, mining_fee_sat, channel_id, tx_id,
				purchase_type, purchase_blob, created_at, confirmed_at, locked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID[:], int64(p.MiningFee), p.ChannelID[:], p.TxID[:], string(purchaseType), purchaseBlob,
			toMillis(p.CreatedAt), nullMillis(confirmedAt), nullMillis(lockedAt),
		)

	default:
		return fmt.Errorf("unsupported on-chain payment %T", p)
	}

	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
		}
		return fmt.Errorf("inserting %s: %w", id.Kind, err)
	}
	return nil
}

// GetOnChainOutgoingPayment retrieves an on-chain payment of any variant.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetOnChainOutgoingPayment(ctx context.Context, id payments.Identity) (payments.OnChainPayment, error) {
	return getOnChain(ctx, s.db, id)
}

// GetOutgoingPaymentByTxID returns the on-chain payment settled by txID.
// Incoming payments linked to the same transaction are ignored.
func (s *SQLiteStore) GetOutgoingPaymentByTxID(ctx context.Context, txID chainhash.Hash) (payments.OnChainPayment, error) {
	var p payments.OnChainPayment
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		ids, err := linkedIdentities(ctx, tx, txID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if id.Kind.IsOnChain() {
				p, err = getOnChain(ctx, tx, id)
				return err
			}
		}
		return ErrNotFound
	})
	return p, err
}

func getOnChain(ctx context.Context, q querier, id payments.Identity) (payments.OnChainPayment, error) {
	var (
		state       = payments.OnChainState{ID: id.ID}
		miningFee   int64
		channelID   []byte
		txID        []byte
		createdAt   int64
		confirmedAt sql.NullInt64
		lockedAt    sql.NullInt64
		result      payments.OnChainPayment
		err         error
	)

	switch id.Kind {
	case payments.KindSpliceOutgoing:
		p := &payments.SpliceOutgoingPayment{}
		var amount int64
		err = q.QueryRowContext(ctx, `
			SELECT recipient_amount_sat, address, mining_fee_sat, channel_id, tx_id,
				created_at, confirmed_at, locked_at
			FROM splice_outgoing_payments WHERE id = ?
		`, id.Key()).Scan(&amount, &p.Address, &miningFee, &channelID, &txID, &createdAt, &confirmedAt, &lockedAt)
		p.RecipientAmount = btcutil.Amount(amount)
		result = p

	case payments.KindChannelCloseOutgoing:
		p := &payments.ChannelCloseOutgoingPayment{}
		var (
			amount   int64
			infoType string
			infoBlob []byte
		)
		err = q.QueryRowContext(ctx, `
			SELECT recipient_amount_sat, address, is_default_address, mining_fee_sat, channel_id,
				tx_id, closing_info_type, closing_info_blob, created_at, confirmed_at, locked_at
			FROM channel_close_outgoing_payments WHERE id = ?
		`, id.Key()).Scan(&amount, &p.Address, &p.IsSentToDefaultAddress, &miningFee, &channelID,
			&txID, &infoType, &infoBlob, &createdAt, &confirmedAt, &lockedAt)
		if err == nil {
			p.ClosingType, err = codec.ClosingInfos.Decode(codec.Tag(infoType), infoBlob)
		}
		p.RecipientAmount = btcutil.Amount(amount)
		result = p

	case payments.KindSpliceCpfpOutgoing:
		p := &payments.SpliceCpfpOutgoingPayment{}
		err = q.QueryRowContext(ctx, `
			SELECT mining_fee_sat, channel_id, tx_id, created_at, confirmed_at, locked_at
			FROM splice_cpfp_outgoing_payments WHERE id = ?
		`, id.Key()).Scan(&miningFee, &channelID, &txID, &createdAt, &confirmedAt, &lockedAt)
		result = p

	case payments.KindInboundLiquidityOutgoing:
		p := &payments.InboundLiquidityOutgoingPayment{}
		var (
			purchaseType string
			purchaseBlob []byte
		)
		err = q.QueryRowContext(ctx, `
			SELECT mining_fee_sat, channel_id, tx_id, purchase_type, purchase_blob,
				created_at, confirmed_at, locked_at
			FROM inbound_liquidity_outgoing_payments WHERE id = ?
		`, id.Key()).Scan(&miningFee, &channelID, &txID, &purchaseType, &purchaseBlob, &createdAt, &confirmedAt, &lockedAt)
		if err == nil {
			p.Purchase, err = codec.Purchases.Decode(codec.Tag(purchaseType), purchaseBlob)
		}
		result = p

	default:
		return nil, fmt.Errorf("%w: %s is not an on-chain kind", payments.ErrInvalidIdentity, id.Kind)
	}
	if err != nil {
		return nil, notFound(err, id.Kind.String())
	}

	state.MiningFee = btcutil.Amount(miningFee)
	state.CreatedAt = fromMillis(createdAt)
	state.ConfirmedAt = fromNullMillis(confirmedAt)
	state.LockedAt = fromNullMillis(lockedAt)
	if len(channelID) != len(state.ChannelID) {
		return nil, fmt.Errorf("%s: invalid channel id length %d", id, len(channelID))
	}
	state.ChannelID = lnwire.ChannelID(channelID)
	hash, err := chainhash.NewHash(txID)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing tx id: %w", id, err)
	}
	state.TxID = *hash

	setOnChainState(result, state)
	return result, nil
}

func setOnChainState(p payments.OnChainPayment, state payments.OnChainState) {
	switch p := p.(type) {
	case *payments.SpliceOutgoingPayment:
		p.OnChainState = state
	case *payments.ChannelCloseOutgoingPayment:
		p.OnChainState = state
	case *payments.SpliceCpfpOutgoingPayment:
		p.OnChainState = state
	case *payments.InboundLiquidityOutgoingPayment:
		p.OnChainState = state
	}
}

