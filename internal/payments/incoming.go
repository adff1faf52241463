// ABOUTME: Incoming payment aggregate: header, origin variants and settlement parts
// ABOUTME: Parts are append-only; a payment is received once it has parts and a received time

package payments

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
)

// DefaultInvoiceExpiry applies to invoices whose origin carries no expiry.
const DefaultInvoiceExpiry = time.Hour

// IncomingOrigin describes how an incoming payment was requested.
//
// Implementations: *InvoiceOrigin, *OfferOrigin, *OnChainOrigin.
type IncomingOrigin interface {
	isIncomingOrigin()
}

// InvoiceOrigin is a payment requested through a BOLT11 invoice.
type InvoiceOrigin struct {
	PaymentRequest string
	ExpiresAt      *time.Time
}

// OfferOrigin is a payment requested through a BOLT12 offer.
type OfferOrigin struct {
	OfferID   [32]byte
	PayerKey  route.Vertex
	PayerNote string
	Quantity  uint64
}

// OnChainOrigin is a swap-in style payment funded by an on-chain transaction.
type OnChainOrigin struct {
	TxID      chainhash.Hash
	Outpoints []wire.OutPoint
}

func (*InvoiceOrigin) isIncomingOrigin() {}
func (*OfferOrigin) isIncomingOrigin()   {}
func (*OnChainOrigin) isIncomingOrigin() {}

// IncomingPart is one settlement unit of an incoming payment.
//
// Implementations: *HtlcPart, *FeeCreditPart, *NewChannelPart, *SpliceInPart.
type IncomingPart interface {
	PartAmount() lnwire.MilliSatoshi
	PartFees() lnwire.MilliSatoshi
	PartTime() time.Time
	isIncomingPart()
}

// HtlcPart is an HTLC received over an existing channel.
type HtlcPart struct {
	Amount     lnwire.MilliSatoshi
	ChannelID  lnwire.ChannelID
	HtlcID     uint64
	FundingFee lnwire.MilliSatoshi
	ReceivedAt time.Time
}

// FeeCreditPart is an amount too small to be settled on-chain that was added
// to the fee credit instead of the balance.
type FeeCreditPart struct {
	Amount     lnwire.MilliSatoshi
	ReceivedAt time.Time
}

// NewChannelPart is a legacy pay-to-open: the payment funded a new channel.
type NewChannelPart struct {
	Amount     lnwire.MilliSatoshi
	ServiceFee lnwire.MilliSatoshi
	MiningFee  btcutil.Amount
	ChannelID  lnwire.ChannelID
	TxID       chainhash.Hash
	ReceivedAt time.Time
}

// SpliceInPart is a legacy swap-in: the payment was spliced into a channel.
type SpliceInPart struct {
	Amount     lnwire.MilliSatoshi
	ServiceFee lnwire.MilliSatoshi
	MiningFee  btcutil.Amount
	ChannelID  lnwire.ChannelID
	TxID       chainhash.Hash
	ReceivedAt time.Time
}

func (p *HtlcPart) PartAmount() lnwire.MilliSatoshi { return p.Amount }
func (p *HtlcPart) PartFees() lnwire.MilliSatoshi   { return p.FundingFee }
func (p *HtlcPart) PartTime() time.Time             { return p.ReceivedAt }
func (*HtlcPart) isIncomingPart()                   {}

func (p *FeeCreditPart) PartAmount() lnwire.MilliSatoshi { return p.Amount }
func (p *FeeCreditPart) PartFees() lnwire.MilliSatoshi   { return 0 }
func (p *FeeCreditPart) PartTime() time.Time             { return p.ReceivedAt }
func (*FeeCreditPart) isIncomingPart()                   {}

func (p *NewChannelPart) PartAmount() lnwire.MilliSatoshi { return p.Amount }
func (p *NewChannelPart) PartFees() lnwire.MilliSatoshi {
	return p.ServiceFee + lnwire.NewMSatFromSatoshis(p.MiningFee)
}
func (p *NewChannelPart) PartTime() time.Time { return p.ReceivedAt }
func (*NewChannelPart) isIncomingPart()       {}

func (p *SpliceInPart) PartAmount() lnwire.MilliSatoshi { return p.Amount }
func (p *SpliceInPart) PartFees() lnwire.MilliSatoshi {
	return p.ServiceFee + lnwire.NewMSatFromSatoshis(p.MiningFee)
}
func (p *SpliceInPart) PartTime() time.Time { return p.ReceivedAt }
func (*SpliceInPart) isIncomingPart()       {}

// IncomingPayment aggregates an incoming payment header with its parts.
type IncomingPayment struct {
	PaymentHash lntypes.Hash
	Preimage    lntypes.Preimage
	Origin      IncomingOrigin
	Parts       []IncomingPart
	CreatedAt   time.Time
	ReceivedAt  *time.Time

	// Denormalized from the transaction link for on-chain origins.
	ConfirmedAt *time.Time
	LockedAt    *time.Time
}

// NewIncomingPayment creates an unpaid incoming payment whose hash is
// derived from preimage.
func NewIncomingPayment(preimage lntypes.Preimage, origin IncomingOrigin, createdAt time.Time) *IncomingPayment {
	return &IncomingPayment{
		PaymentHash: preimage.Hash(),
		Preimage:    preimage,
		Origin:      origin,
		CreatedAt:   createdAt,
	}
}

// Identity returns the incoming identity derived from the payment hash.
func (p *IncomingPayment) Identity() Identity {
	return IncomingID(p.PaymentHash)
}

func (p *IncomingPayment) CreatedTime() time.Time { return p.CreatedAt }

func (p *IncomingPayment) CompletedTime() *time.Time { return p.ReceivedAt }

// IsReceived reports whether at least one part settled.
func (p *IncomingPayment) IsReceived() bool {
	return len(p.Parts) > 0 && p.ReceivedAt != nil
}

// Amount is the sum of all received parts.
func (p *IncomingPayment) Amount() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, part := range p.Parts {
		total += part.PartAmount()
	}
	return total
}

// Fees is the sum of fees paid by all received parts.
func (p *IncomingPayment) Fees() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, part := range p.Parts {
		total += part.PartFees()
	}
	return total
}

// ExpiresAt returns the invoice expiry, or nil for origins that never expire.
func (p *IncomingPayment) ExpiresAt() *time.Time {
	inv, ok := p.Origin.(*InvoiceOrigin)
	if !ok {
		return nil
	}
	if inv.ExpiresAt != nil {
		t := *inv.ExpiresAt
		return &t
	}
	t := p.CreatedAt.Add(DefaultInvoiceExpiry)
	return &t
}

// IsExpired reports whether the payment is an unpaid invoice past expiry.
func (p *IncomingPayment) IsExpired(now time.Time) bool {
	exp := p.ExpiresAt()
	return exp != nil && !p.IsReceived() && now.After(*exp)
}

// LatestPartTime returns the max of t and every part timestamp.
func LatestPartTime(t *time.Time, parts []IncomingPart) *time.Time {
	latest := t
	for _, part := range parts {
		pt := part.PartTime()
		if latest == nil || pt.After(*latest) {
			latest = &pt
		}
	}
	return latest
}
