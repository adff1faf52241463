// ABOUTME: Legacy incoming origin payloads (invoice, keysend, swap-in, on-chain) in JSON
// ABOUTME: Keysend and swap-in upgrade to the invoice and on-chain origins respectively

package legacy

import (
	"github.com/2389/lnledger/internal/payments"
)

type invoiceOriginV0 struct {
	PaymentRequest string `json:"paymentRequest"`
}

// DecodeInvoiceOriginV0 reads an invoice origin. The old shape has no
// expiry, which then defaults to the BOLT11 one hour.
func DecodeInvoiceOriginV0(payload []byte) (payments.IncomingOrigin, error) {
	var v invoiceOriginV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.InvoiceOrigin{PaymentRequest: v.PaymentRequest}, nil
}

// DecodeKeysendOriginV0 reads a spontaneous payment. Keysend is no longer a
// variant of its own: it becomes an invoice origin without a request.
func DecodeKeysendOriginV0(payload []byte) (payments.IncomingOrigin, error) {
	var v struct{}
	if len(payload) > 0 {
		if err := unmarshal(payload, &v); err != nil {
			return nil, err
		}
	}
	return &payments.InvoiceOrigin{}, nil
}

type swapInOriginV0 struct {
	Address string `json:"address"`
}

// DecodeSwapInOriginV0 reads a swap-in origin, which only recorded the
// deposit address. It becomes an on-chain origin with an unknown funding tx.
func DecodeSwapInOriginV0(payload []byte) (payments.IncomingOrigin, error) {
	var v swapInOriginV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.OnChainOrigin{}, nil
}

type onChainOriginV0 struct {
	TxID      string   `json:"txId"`
	Outpoints []string `json:"outpoints"`
}

func DecodeOnChainOriginV0(payload []byte) (payments.IncomingOrigin, error) {
	var v onChainOriginV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	txID, err := parseTxID(v.TxID)
	if err != nil {
		return nil, err
	}
	origin := &payments.OnChainOrigin{TxID: txID}
	for _, s := range v.Outpoints {
		op, err := parseOutpoint(s)
		if err != nil {
			return nil, err
		}
		origin.Outpoints = append(origin.Outpoints, op)
	}
	return origin, nil
}
