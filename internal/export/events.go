// ABOUTME: Flattens payments into signed settlement events, one per balance movement
// ABOUTME: Amount and fee credit deltas are signed so that their sums give the wallet balances

package export

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/2389/lnledger/internal/payments"
)

// EventType names a settlement event in exports.
type EventType string

const (
	EventLightningReceived   EventType = "lightning_received"
	EventFeeCreditReceived   EventType = "fee_credit_received"
	EventChannelOpenReceived EventType = "channel_open_received"
	EventSpliceInReceived    EventType = "splice_in_received"
	EventLightningSent       EventType = "lightning_sent"
	EventSpliceOut           EventType = "splice_out"
	EventChannelClose        EventType = "channel_close"
	EventSpliceCpfp          EventType = "splice_cpfp"
	EventLiquidityPurchase   EventType = "liquidity_purchase"
)

// EventTypes lists every event type in the order totals are reported.
var EventTypes = []EventType{
	EventLightningReceived,
	EventFeeCreditReceived,
	EventChannelOpenReceived,
	EventSpliceInReceived,
	EventLightningSent,
	EventSpliceOut,
	EventChannelClose,
	EventSpliceCpfp,
	EventLiquidityPurchase,
}

// Event is one settlement of value. Amount and FeeCredit are signed
// millisatoshi deltas: positive when received, negative when spent.
type Event struct {
	Identity    payments.Identity
	Time        time.Time
	Type        EventType
	Amount      int64
	FeeCredit   int64
	MiningFee   btcutil.Amount
	ServiceFee  lnwire.MilliSatoshi
	PaymentHash *lntypes.Hash
	TxID        *chainhash.Hash
}

func msat(sat btcutil.Amount) int64 {
	return int64(lnwire.NewMSatFromSatoshis(sat))
}

// Events returns the settlement events of a successful payment. An
// incoming payment yields one event per part, stamped with the part's
// own time rather than the payment's received time. Payments that have not
// completed yield none.
func Events(p payments.Payment) []Event {
	completed := p.CompletedTime()
	if completed == nil {
		return nil
	}
	id := p.Identity()

	switch p := p.(type) {
	case *payments.IncomingPayment:
		return incomingEvents(id, p)

	case *payments.LightningOutgoingPayment:
		if !p.IsSucceeded() {
			return nil
		}
		hash := p.PaymentHash
		return []Event{{
			Identity:    id,
			Time:        *completed,
			Type:        EventLightningSent,
			Amount:      -int64(p.SentAmount()),
			PaymentHash: &hash,
		}}

	case payments.OnChainPayment:
		return []Event{onChainEvent(id, *completed, p)}
	}
	return nil
}

func incomingEvents(id payments.Identity, p *payments.IncomingPayment) []Event {
	hash := p.PaymentHash
	events := make([]Event, 0, len(p.Parts))
	for _, part := range p.Parts {
		e := Event{
			Identity:    id,
			Time:        part.PartTime(),
			PaymentHash: &hash,
		}
		switch part := part.(type) {
		case *payments.HtlcPart:
			e.Type = EventLightningReceived
			e.Amount = int64(part.Amount)
			e.ServiceFee = part.FundingFee
		case *payments.FeeCreditPart:
			e.Type = EventFeeCreditReceived
			e.FeeCredit = int64(part.Amount)
		case *payments.NewChannelPart:
			txID := part.TxID
			e.Type = EventChannelOpenReceived
			e.Amount = int64(part.Amount)
			e.MiningFee = part.MiningFee
			e.ServiceFee = part.ServiceFee
			e.TxID = &txID
		case *payments.SpliceInPart:
			txID := part.TxID
			e.Type = EventSpliceInReceived
			e.Amount = int64(part.Amount)
			e.MiningFee = part.MiningFee
			e.ServiceFee = part.ServiceFee
			e.TxID = &txID
		default:
			continue
		}
		events = append(events, e)
	}
	return events
}

func onChainEvent(id payments.Identity, at time.Time, p payments.OnChainPayment) Event {
	txID := p.TransactionID()
	e := Event{
		Identity:  id,
		Time:      at,
		MiningFee: p.MiningFees(),
		TxID:      &txID,
	}

	switch p := p.(type) {
	case *payments.SpliceOutgoingPayment:
		e.Type = EventSpliceOut
		e.Amount = -msat(p.RecipientAmount + p.MiningFee)
	case *payments.ChannelCloseOutgoingPayment:
		e.Type = EventChannelClose
		e.Amount = -msat(p.RecipientAmount + p.MiningFee)
	case *payments.SpliceCpfpOutgoingPayment:
		e.Type = EventSpliceCpfp
		e.Amount = -msat(p.MiningFee)
	case *payments.InboundLiquidityOutgoingPayment:
		// Local mining fees for our own inputs add to the purchase fees.
		mining, service := p.Purchase.PurchaseFees()
		mining += p.MiningFee
		e.Type = EventLiquidityPurchase
		e.MiningFee = mining
		e.ServiceFee = lnwire.NewMSatFromSatoshis(service)
		e.Amount = -msat(mining + service)
		if fc, ok := p.Purchase.(*payments.FeeCreditPurchase); ok {
			// Fees covered by fee credit do not reduce the balance.
			e.Amount += int64(fc.FeeCreditUsed)
			e.FeeCredit = -int64(fc.FeeCreditUsed)
		}
	}
	return e
}
