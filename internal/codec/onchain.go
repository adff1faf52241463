// ABOUTME: Codecs for on-chain sub-objects: liquidity purchases and channel closing info
// ABOUTME: Legacy leases decode as standard purchases

package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

const (
	TagLeaseV0 Tag = "LEASE_V0"

	TagStandardPurchaseV1  Tag = "PURCHASE_STANDARD_V1"
	TagFeeCreditPurchaseV1 Tag = "PURCHASE_FEE_CREDIT_V1"

	TagCloseInfoV0 Tag = "CLOSE_INFO_V0"
	TagCloseInfoV1 Tag = "CLOSE_INFO_V1"
)

// Purchases encodes the liquidity purchase of an inbound liquidity payment.
var Purchases = newCodec("liquidity purchase", encodePurchase).
	register(TagLeaseV0, false, legacy.DecodeLeaseV0).
	register(TagStandardPurchaseV1, true, decodeStandardPurchaseV1).
	register(TagFeeCreditPurchaseV1, true, decodeFeeCreditPurchaseV1)

// ClosingInfos encodes how a channel was closed.
var ClosingInfos = newCodec("closing info", encodeClosingInfo).
	register(TagCloseInfoV0, false, legacy.DecodeCloseInfoV0).
	register(TagCloseInfoV1, true, decodeCloseInfoV1)

func encodePurchase(p payments.LiquidityPurchase) (Tag, []byte, error) {
	var m message
	switch p := p.(type) {
	case *payments.StandardPurchase:
		m.sat(1, p.Amount)
		m.sat(2, p.MiningFee)
		m.sat(3, p.ServiceFee)
		return TagStandardPurchaseV1, m.payload(), nil
	case *payments.FeeCreditPurchase:
		m.sat(1, p.Amount)
		m.sat(2, p.MiningFee)
		m.sat(3, p.ServiceFee)
		m.uint(4, uint64(p.FeeCreditUsed))
		return TagFeeCreditPurchaseV1, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, p)
}

func decodeStandardPurchaseV1(b []byte) (payments.LiquidityPurchase, error) {
	p := &payments.StandardPurchase{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.sat(v)
		case 2:
			p.MiningFee = r.sat(v)
		case 3:
			p.ServiceFee = r.sat(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeFeeCreditPurchaseV1(b []byte) (payments.LiquidityPurchase, error) {
	p := &payments.FeeCreditPurchase{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.sat(v)
		case 2:
			p.MiningFee = r.sat(v)
		case 3:
			p.ServiceFee = r.sat(v)
		case 4:
			p.FeeCreditUsed = r.msat(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func encodeClosingInfo(c payments.ClosingType) (Tag, []byte, error) {
	var m message
	m.uint(1, uint64(c))
	return TagCloseInfoV1, m.payload(), nil
}

func decodeCloseInfoV1(b []byte) (payments.ClosingType, error) {
	c := payments.ClosingOther
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		if num == 1 {
			c = payments.ClosingType(r.uint(v))
		}
	})
	if err != nil {
		return payments.ClosingOther, err
	}
	return c, nil
}
