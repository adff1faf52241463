// ABOUTME: Outgoing Lightning payment aggregate with route parts, details and statuses
// ABOUTME: Part statuses are monotonic; the parent status is set explicitly by the caller

package payments

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
)

// Payment is the view shared by every payment variant.
type Payment interface {
	Identity() Identity
	CreatedTime() time.Time
	CompletedTime() *time.Time
}

// OutgoingPayment is implemented by *LightningOutgoingPayment and the
// on-chain variants in onchain.go.
type OutgoingPayment interface {
	Payment
	isOutgoingPayment()
}

// OutgoingDetails describes what a Lightning payment paid for.
//
// Implementations: *NormalDetails, *SwapOutDetails, *BlindedDetails.
type OutgoingDetails interface {
	isOutgoingDetails()
}

// NormalDetails is a payment of a BOLT11 invoice.
type NormalDetails struct {
	PaymentRequest string
}

// SwapOutDetails is a legacy swap-out: an invoice paid to a swap server that
// sends the funds on-chain.
type SwapOutDetails struct {
	Address        string
	PaymentRequest string
	SwapOutFee     btcutil.Amount
}

// BlindedDetails is a payment of a BOLT12 invoice.
type BlindedDetails struct {
	OfferID   [32]byte
	PayerKey  route.Vertex
	PayerNote string
}

func (*NormalDetails) isOutgoingDetails()  {}
func (*SwapOutDetails) isOutgoingDetails() {}
func (*BlindedDetails) isOutgoingDetails() {}

// FailureReason is the final failure of an outgoing payment. Values are
// persisted by the current status encoding and must not be renumbered.
type FailureReason uint8

const (
	FailureUnknown FailureReason = iota
	FailureInvalidAmount
	FailureInsufficientBalance
	FailureNoAvailableChannels
	FailureRecipientUnreachable
	FailureRetryExhausted
	FailureWalletRestarted
	FailureChannelClosing
)

var failureNames = map[FailureReason]string{
	FailureUnknown:              "unknown_error",
	FailureInvalidAmount:        "invalid_amount",
	FailureInsufficientBalance:  "insufficient_balance",
	FailureNoAvailableChannels:  "no_available_channels",
	FailureRecipientUnreachable: "recipient_unreachable",
	FailureRetryExhausted:       "retry_exhausted",
	FailureWalletRestarted:      "wallet_restarted",
	FailureChannelClosing:       "channel_closing",
}

func (r FailureReason) String() string {
	if name, ok := failureNames[r]; ok {
		return name
	}
	return failureNames[FailureUnknown]
}

// OutgoingStatus is the overall status of a Lightning payment.
//
// Implementations: *PendingStatus, *SucceededStatus, *FailedStatus.
type OutgoingStatus interface {
	isOutgoingStatus()
}

type PendingStatus struct{}

type SucceededStatus struct {
	Preimage    lntypes.Preimage
	CompletedAt time.Time
}

type FailedStatus struct {
	Reason      FailureReason
	CompletedAt time.Time
}

func (*PendingStatus) isOutgoingStatus()   {}
func (*SucceededStatus) isOutgoingStatus() {}
func (*FailedStatus) isOutgoingStatus()    {}

// PartStatus is the status of one route part.
//
// Implementations: *PartPending, *PartSucceeded, *PartFailed.
type PartStatus interface {
	isPartStatus()
}

type PartPending struct{}

type PartSucceeded struct {
	Preimage    lntypes.Preimage
	CompletedAt time.Time
}

type PartFailed struct {
	RemoteFailureCode *int
	Details           string
	CompletedAt       time.Time
}

func (*PartPending) isPartStatus()   {}
func (*PartSucceeded) isPartStatus() {}
func (*PartFailed) isPartStatus()    {}

// Hop is one channel hop of a route.
type Hop struct {
	NodeID         route.Vertex
	NextNodeID     route.Vertex
	ShortChannelID lnwire.ShortChannelID
}

// OutgoingPart is one HTLC sent for a Lightning payment.
type OutgoingPart struct {
	ID        uuid.UUID
	Amount    lnwire.MilliSatoshi
	Route     []Hop
	CreatedAt time.Time
	Status    PartStatus
}

// IsPending reports whether the part has not reached a terminal status.
func (p *OutgoingPart) IsPending() bool {
	switch p.Status.(type) {
	case nil, *PartPending:
		return true
	}
	return false
}

// LightningOutgoingPayment is a payment sent over Lightning.
type LightningOutgoingPayment struct {
	ID              uuid.UUID
	PaymentHash     lntypes.Hash
	Recipient       route.Vertex
	RecipientAmount lnwire.MilliSatoshi
	Details         OutgoingDetails
	Parts           []OutgoingPart
	Status          OutgoingStatus
	CreatedAt       time.Time
}

func (p *LightningOutgoingPayment) Identity() Identity {
	return Identity{Kind: KindLightningOutgoing, ID: p.ID}
}

func (p *LightningOutgoingPayment) CreatedTime() time.Time { return p.CreatedAt }

func (p *LightningOutgoingPayment) CompletedTime() *time.Time {
	switch s := p.Status.(type) {
	case *SucceededStatus:
		t := s.CompletedAt
		return &t
	case *FailedStatus:
		t := s.CompletedAt
		return &t
	}
	return nil
}

func (*LightningOutgoingPayment) isOutgoingPayment() {}

// IsSucceeded reports whether the payment completed successfully.
func (p *LightningOutgoingPayment) IsSucceeded() bool {
	_, ok := p.Status.(*SucceededStatus)
	return ok
}

// SentAmount sums the succeeded parts, fees included.
func (p *LightningOutgoingPayment) SentAmount() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for i := range p.Parts {
		if _, ok := p.Parts[i].Status.(*PartSucceeded); ok {
			total += p.Parts[i].Amount
		}
	}
	return total
}

// RoutingFee is what was paid on top of the recipient amount. It is zero
// until at least the recipient amount has been sent.
func (p *LightningOutgoingPayment) RoutingFee() lnwire.MilliSatoshi {
	sent := p.SentAmount()
	if sent <= p.RecipientAmount {
		return 0
	}
	return sent - p.RecipientAmount
}

// ParseFailureReason maps a failure name back to its reason. Unknown names
// map to FailureUnknown.
func ParseFailureReason(name string) FailureReason {
	for r, n := range failureNames {
		if n == name {
			return r
		}
	}
	return FailureUnknown
}
