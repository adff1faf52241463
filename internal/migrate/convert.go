// ABOUTME: Pure conversions from legacy rows to current payment values
// ABOUTME: No database access; every legacy encoding is resolved through the codec registry

package migrate

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

// convertIncoming splits a legacy incoming row into a header and parts. The
// legacy blob has no per-part times, so parts take the row's received time,
// or its creation time when that is missing.
func convertIncoming(r incomingRow) (*payments.IncomingPayment, error) {
	hash, err := lntypes.MakeHash(r.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("incoming payment: %w", err)
	}
	preimage, err := lntypes.MakePreimage(r.Preimage)
	if err != nil {
		return nil, fmt.Errorf("incoming payment %s: %w", hash, err)
	}
	origin, err := codec.Origins.Decode(codec.Tag(r.OriginType), r.OriginBlob)
	if err != nil {
		return nil, fmt.Errorf("incoming payment %s: %w", hash, err)
	}

	p := &payments.IncomingPayment{
		PaymentHash: hash,
		Preimage:    preimage,
		Origin:      origin,
		CreatedAt:   r.CreatedAt,
	}

	if r.ReceivedWithType != "" {
		receivedAt := r.CreatedAt
		if r.ReceivedAt != nil {
			receivedAt = *r.ReceivedAt
		}
		parts, err := codec.DecodeReceivedWith(codec.Tag(r.ReceivedWithType), r.ReceivedWithBlob, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("incoming payment %s: %w", hash, err)
		}
		if len(parts) > 0 {
			p.Parts = parts
			p.ReceivedAt = &receivedAt
		}
	}
	return p, nil
}

// convertOutgoing rebuilds a Lightning payment from its legacy header and
// parts.
func convertOutgoing(r outgoingRow, partRows []outgoingPartRow) (*payments.LightningOutgoingPayment, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("outgoing payment %q: %w", r.ID, err)
	}
	hash, err := lntypes.MakeHash(r.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
	}
	recipient, err := route.NewVertexFromStr(r.RecipientNodeID)
	if err != nil {
		return nil, fmt.Errorf("outgoing payment %s: recipient: %w", id, err)
	}
	details, err := codec.OutgoingDetails.Decode(codec.Tag(r.DetailsType), r.DetailsBlob)
	if err != nil {
		return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
	}

	p := &payments.LightningOutgoingPayment{
		ID:              id,
		PaymentHash:     hash,
		Recipient:       recipient,
		RecipientAmount: lnwire.MilliSatoshi(r.RecipientAmount),
		Details:         details,
		Status:          &payments.PendingStatus{},
		CreatedAt:       r.CreatedAt,
	}
	if r.StatusType != "" {
		completedAt := completionTime(r.CompletedAt, r.CreatedAt)
		if p.Status, err = codec.DecodeStatus(codec.Tag(r.StatusType), r.StatusBlob, completedAt); err != nil {
			return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
		}
	}

	for _, pr := range partRows {
		part, err := convertOutgoingPart(pr)
		if err != nil {
			return nil, fmt.Errorf("outgoing payment %s: %w", id, err)
		}
		p.Parts = append(p.Parts, part)
	}
	return p, nil
}

func convertOutgoingPart(r outgoingPartRow) (payments.OutgoingPart, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return payments.OutgoingPart{}, fmt.Errorf("part %q: %w", r.ID, err)
	}
	hops, err := legacy.DecodeRouteV0(r.Route)
	if err != nil {
		return payments.OutgoingPart{}, fmt.Errorf("part %s: %w", id, err)
	}

	part := payments.OutgoingPart{
		ID:        id,
		Amount:    lnwire.MilliSatoshi(r.Amount),
		Route:     hops,
		CreatedAt: r.CreatedAt,
		Status:    &payments.PartPending{},
	}
	if r.StatusType != "" {
		completedAt := completionTime(r.CompletedAt, r.CreatedAt)
		if part.Status, err = codec.DecodePartStatus(codec.Tag(r.StatusType), r.StatusBlob, completedAt); err != nil {
			return payments.OutgoingPart{}, fmt.Errorf("part %s: %w", id, err)
		}
	}
	return part, nil
}

// completionTime falls back to the creation time for terminal rows written
// without a completion time.
func completionTime(completedAt *time.Time, createdAt time.Time) time.Time {
	if completedAt != nil {
		return *completedAt
	}
	return createdAt
}

// convertOnChain rebuilds an on-chain payment of r.Kind.
func convertOnChain(r onChainRow) (payments.OnChainPayment, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", r.Kind, r.ID, err)
	}
	if len(r.ChannelID) != 32 {
		return nil, fmt.Errorf("%s %s: invalid channel id length %d", r.Kind, id, len(r.ChannelID))
	}
	txID, err := chainhash.NewHash(r.TxID)
	if err != nil {
		return nil, fmt.Errorf("%s %s: tx id: %w", r.Kind, id, err)
	}

	state := payments.OnChainState{
		ID:          id,
		MiningFee:   btcutil.Amount(r.MiningFee),
		ChannelID:   lnwire.ChannelID(r.ChannelID),
		TxID:        *txID,
		CreatedAt:   r.CreatedAt,
		ConfirmedAt: r.ConfirmedAt,
		LockedAt:    r.LockedAt,
	}

	switch r.Kind {
	case payments.KindSpliceOutgoing:
		return &payments.SpliceOutgoingPayment{
			OnChainState:    state,
			RecipientAmount: btcutil.Amount(r.RecipientAmount),
			Address:         r.Address,
		}, nil

	case payments.KindChannelCloseOutgoing:
		closing, err := codec.ClosingInfos.Decode(codec.Tag(r.ClosingInfoType), r.ClosingInfoBlob)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.Kind, id, err)
		}
		return &payments.ChannelCloseOutgoingPayment{
			OnChainState:           state,
			RecipientAmount:        btcutil.Amount(r.RecipientAmount),
			Address:                r.Address,
			IsSentToDefaultAddress: r.IsDefaultAddress,
			ClosingType:            closing,
		}, nil

	case payments.KindSpliceCpfpOutgoing:
		return &payments.SpliceCpfpOutgoingPayment{OnChainState: state}, nil

	case payments.KindInboundLiquidityOutgoing:
		purchase, err := codec.Purchases.Decode(codec.Tag(r.PurchaseType), r.PurchaseBlob)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.Kind, id, err)
		}
		return &payments.InboundLiquidityOutgoingPayment{OnChainState: state, Purchase: purchase}, nil
	}
	return nil, fmt.Errorf("%w: %s is not an on-chain kind", payments.ErrInvalidIdentity, r.Kind)
}

// convertLink re-keys a legacy link: incoming ids were the payment hash in
// hex, outgoing ids UUID text.
func convertLink(r linkRow) (payments.TxLink, error) {
	txID, err := chainhash.NewHash(r.TxID)
	if err != nil {
		return payments.TxLink{}, fmt.Errorf("tx link: %w", err)
	}
	id, err := payments.Parse(r.Type, []byte(r.ID))
	if err != nil {
		return payments.TxLink{}, fmt.Errorf("tx link %s: %w", txID, err)
	}
	return payments.TxLink{
		TxID:        *txID,
		Identity:    id,
		ConfirmedAt: r.ConfirmedAt,
		LockedAt:    r.LockedAt,
	}, nil
}

func convertMetadata(r metadataRow) (payments.Metadata, error) {
	id, err := payments.Parse(r.Type, []byte(r.ID))
	if err != nil {
		return payments.Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	return payments.Metadata{
		Identity:   id,
		ExternalID: r.ExternalID,
		WebhookURL: r.WebhookURL,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// upgradePurchase reinterprets a v1 lease as a v2 purchase encoding.
func upgradePurchase(tag string, blob []byte) (codec.Tag, []byte, error) {
	purchase, err := codec.Purchases.Decode(codec.Tag(tag), blob)
	if err != nil {
		return "", nil, err
	}
	return codec.Purchases.Encode(purchase)
}
