// ABOUTME: On-chain outgoing payment variants: splice-out, channel close, CPFP, liquidity
// ABOUTME: Each is keyed by a generated id and settled by exactly one transaction

package payments

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lnwire"
)

// OnChainPayment is implemented by every outgoing payment settled by a
// single on-chain transaction.
type OnChainPayment interface {
	OutgoingPayment
	TransactionID() chainhash.Hash
	MiningFees() btcutil.Amount
	Confirmation() (confirmedAt, lockedAt *time.Time)
	SetConfirmation(confirmedAt, lockedAt *time.Time)
}

// OnChainState holds the fields shared by on-chain variants.
type OnChainState struct {
	ID          uuid.UUID
	MiningFee   btcutil.Amount
	ChannelID   lnwire.ChannelID
	TxID        chainhash.Hash
	CreatedAt   time.Time
	ConfirmedAt *time.Time
	LockedAt    *time.Time
}

func (s *OnChainState) TransactionID() chainhash.Hash { return s.TxID }
func (s *OnChainState) MiningFees() btcutil.Amount    { return s.MiningFee }
func (s *OnChainState) CreatedTime() time.Time        { return s.CreatedAt }

// CompletedTime is the lock time: on-chain payments are final once locked.
func (s *OnChainState) CompletedTime() *time.Time { return s.LockedAt }

func (s *OnChainState) Confirmation() (*time.Time, *time.Time) {
	return s.ConfirmedAt, s.LockedAt
}

func (s *OnChainState) SetConfirmation(confirmedAt, lockedAt *time.Time) {
	s.ConfirmedAt = confirmedAt
	s.LockedAt = lockedAt
}

// SpliceOutgoingPayment sends funds from a channel to an on-chain address.
type SpliceOutgoingPayment struct {
	OnChainState
	RecipientAmount btcutil.Amount
	Address         string
}

func (p *SpliceOutgoingPayment) Identity() Identity {
	return Identity{Kind: KindSpliceOutgoing, ID: p.ID}
}
func (*SpliceOutgoingPayment) isOutgoingPayment() {}

// ClosingType is how a channel was closed.
type ClosingType uint8

const (
	ClosingMutual ClosingType = iota
	ClosingLocal
	ClosingRemote
	ClosingRevoked
	ClosingOther
)

var closingNames = map[ClosingType]string{
	ClosingMutual:  "mutual",
	ClosingLocal:   "local",
	ClosingRemote:  "remote",
	ClosingRevoked: "revoked",
	ClosingOther:   "other",
}

func (c ClosingType) String() string {
	if name, ok := closingNames[c]; ok {
		return name
	}
	return closingNames[ClosingOther]
}

// ParseClosingType maps a closing type name, falling back to ClosingOther.
func ParseClosingType(name string) ClosingType {
	for c, n := range closingNames {
		if n == name {
			return c
		}
	}
	return ClosingOther
}

// ChannelCloseOutgoingPayment moves a channel balance on-chain when the
// channel closes.
type ChannelCloseOutgoingPayment struct {
	OnChainState
	RecipientAmount        btcutil.Amount
	Address                string
	IsSentToDefaultAddress bool
	ClosingType            ClosingType
}

func (p *ChannelCloseOutgoingPayment) Identity() Identity {
	return Identity{Kind: KindChannelCloseOutgoing, ID: p.ID}
}
func (*ChannelCloseOutgoingPayment) isOutgoingPayment() {}

// SpliceCpfpOutgoingPayment bumps the fee of an unconfirmed splice.
type SpliceCpfpOutgoingPayment struct {
	OnChainState
}

func (p *SpliceCpfpOutgoingPayment) Identity() Identity {
	return Identity{Kind: KindSpliceCpfpOutgoing, ID: p.ID}
}
func (*SpliceCpfpOutgoingPayment) isOutgoingPayment() {}

// LiquidityPurchase describes inbound liquidity bought from the peer.
//
// Implementations: *StandardPurchase, *FeeCreditPurchase.
type LiquidityPurchase interface {
	PurchasedAmount() btcutil.Amount
	PurchaseFees() (mining, service btcutil.Amount)
	isLiquidityPurchase()
}

// StandardPurchase is paid from the channel balance.
type StandardPurchase struct {
	Amount     btcutil.Amount
	MiningFee  btcutil.Amount
	ServiceFee btcutil.Amount
}

// FeeCreditPurchase is paid partly with fee credit.
type FeeCreditPurchase struct {
	Amount        btcutil.Amount
	MiningFee     btcutil.Amount
	ServiceFee    btcutil.Amount
	FeeCreditUsed lnwire.MilliSatoshi
}

func (p *StandardPurchase) PurchasedAmount() btcutil.Amount { return p.Amount }
func (p *StandardPurchase) PurchaseFees() (btcutil.Amount, btcutil.Amount) {
	return p.MiningFee, p.ServiceFee
}
func (*StandardPurchase) isLiquidityPurchase() {}

func (p *FeeCreditPurchase) PurchasedAmount() btcutil.Amount { return p.Amount }
func (p *FeeCreditPurchase) PurchaseFees() (btcutil.Amount, btcutil.Amount) {
	return p.MiningFee, p.ServiceFee
}
func (*FeeCreditPurchase) isLiquidityPurchase() {}

// InboundLiquidityOutgoingPayment pays for an inbound liquidity purchase.
type InboundLiquidityOutgoingPayment struct {
	OnChainState
	Purchase LiquidityPurchase
}

func (p *InboundLiquidityOutgoingPayment) Identity() Identity {
	return Identity{Kind: KindInboundLiquidityOutgoing, ID: p.ID}
}
func (*InboundLiquidityOutgoingPayment) isOutgoingPayment() {}

// Compile-time checks.
var (
	_ OnChainPayment  = (*SpliceOutgoingPayment)(nil)
	_ OnChainPayment  = (*ChannelCloseOutgoingPayment)(nil)
	_ OnChainPayment  = (*SpliceCpfpOutgoingPayment)(nil)
	_ OnChainPayment  = (*InboundLiquidityOutgoingPayment)(nil)
	_ OutgoingPayment = (*LightningOutgoingPayment)(nil)
	_ Payment         = (*IncomingPayment)(nil)
)
