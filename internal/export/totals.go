// ABOUTME: Aggregation of settlement events into per-type counts and wallet totals
// ABOUTME: Millisatoshi sums are kept exact and rendered in BTC with decimal arithmetic

package export

import (
	"github.com/shopspring/decimal"
)

var msatPerBTC = decimal.New(1, 11)

// TypeTotals accumulates the events of one type.
type TypeTotals struct {
	Count      int
	Amount     int64
	FeeCredit  int64
	MiningFee  int64
	ServiceFee int64
}

// Totals accumulates events. The zero value is ready to use.
type Totals struct {
	ByType     map[EventType]*TypeTotals
	Events     int
	Balance    int64
	FeeCredit  int64
	MiningFee  int64
	ServiceFee int64
}

// Add accumulates one event.
func (t *Totals) Add(e Event) {
	if t.ByType == nil {
		t.ByType = make(map[EventType]*TypeTotals)
	}
	tt, ok := t.ByType[e.Type]
	if !ok {
		tt = &TypeTotals{}
		t.ByType[e.Type] = tt
	}

	tt.Count++
	tt.Amount += e.Amount
	tt.FeeCredit += e.FeeCredit
	tt.MiningFee += int64(e.MiningFee)
	tt.ServiceFee += int64(e.ServiceFee)

	t.Events++
	t.Balance += e.Amount
	t.FeeCredit += e.FeeCredit
	t.MiningFee += int64(e.MiningFee)
	t.ServiceFee += int64(e.ServiceFee)
}

// Aggregate sums a set of events.
func Aggregate(events []Event) Totals {
	var t Totals
	for _, e := range events {
		t.Add(e)
	}
	return t
}

// BTC renders a millisatoshi amount in bitcoin with full precision.
func BTC(msat int64) decimal.Decimal {
	return decimal.NewFromInt(msat).Div(msatPerBTC)
}

// BalanceBTC is the net balance change in bitcoin.
func (t Totals) BalanceBTC() decimal.Decimal { return BTC(t.Balance) }

// FeeCreditBTC is the net fee credit change in bitcoin.
func (t Totals) FeeCreditBTC() decimal.Decimal { return BTC(t.FeeCredit) }

// MiningFeeBTC is the total mining fee, tracked in satoshi, in bitcoin.
func (t Totals) MiningFeeBTC() decimal.Decimal {
	return decimal.NewFromInt(t.MiningFee).Shift(-8)
}
