// ABOUTME: Legacy on-chain sub-objects: liquidity leases and channel closing info
// ABOUTME: A lease is reinterpreted as a standard purchase; its seller signature is dropped

package legacy

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/2389/lnledger/internal/payments"
)

type leaseV0 struct {
	Amount     int64  `json:"amount"`
	MiningFee  int64  `json:"miningFee"`
	ServiceFee int64  `json:"serviceFee"`
	SellerSig  string `json:"sellerSig"`
}

func DecodeLeaseV0(payload []byte) (payments.LiquidityPurchase, error) {
	var v leaseV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.StandardPurchase{
		Amount:     btcutil.Amount(v.Amount),
		MiningFee:  btcutil.Amount(v.MiningFee),
		ServiceFee: btcutil.Amount(v.ServiceFee),
	}, nil
}

type closeInfoV0 struct {
	ClosingType string `json:"closingType"`
}

// DecodeCloseInfoV0 reads a closing type stored by its capitalised name,
// for example "Mutual".
func DecodeCloseInfoV0(payload []byte) (payments.ClosingType, error) {
	var v closeInfoV0
	if err := unmarshal(payload, &v); err != nil {
		return payments.ClosingOther, err
	}
	return payments.ParseClosingType(strings.ToLower(v.ClosingType)), nil
}
