// ABOUTME: Outgoing details codec: what a Lightning payment paid for
// ABOUTME: Normal invoices, legacy swap-outs and blinded (offer) payments

package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

const (
	TagNormalDetailsV0  Tag = "NORMAL_V0"
	TagKeysendDetailsV0 Tag = "KEYSEND_V0"
	TagSwapOutDetailsV0 Tag = "SWAPOUT_V0"

	TagNormalDetailsV1  Tag = "NORMAL_V1"
	TagSwapOutDetailsV1 Tag = "SWAPOUT_V1"
	TagBlindedDetailsV1 Tag = "BLINDED_V1"
)

// OutgoingDetails encodes the details of a Lightning outgoing payment.
var OutgoingDetails = newCodec("outgoing details", encodeDetails).
	register(TagNormalDetailsV0, false, legacy.DecodeNormalDetailsV0).
	register(TagKeysendDetailsV0, false, legacy.DecodeKeysendDetailsV0).
	register(TagSwapOutDetailsV0, false, legacy.DecodeSwapOutDetailsV0).
	register(TagNormalDetailsV1, true, decodeNormalDetailsV1).
	register(TagSwapOutDetailsV1, true, decodeSwapOutDetailsV1).
	register(TagBlindedDetailsV1, true, decodeBlindedDetailsV1)

func encodeDetails(d payments.OutgoingDetails) (Tag, []byte, error) {
	var m message
	switch d := d.(type) {
	case *payments.NormalDetails:
		m.string(1, d.PaymentRequest)
		return TagNormalDetailsV1, m.payload(), nil

	case *payments.SwapOutDetails:
		m.string(1, d.PaymentRequest)
		m.string(2, d.Address)
		m.sat(3, d.SwapOutFee)
		return TagSwapOutDetailsV1, m.payload(), nil

	case *payments.BlindedDetails:
		m.bytes(1, d.OfferID[:])
		m.bytes(2, d.PayerKey[:])
		m.string(3, d.PayerNote)
		return TagBlindedDetailsV1, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, d)
}

func decodeNormalDetailsV1(b []byte) (payments.OutgoingDetails, error) {
	d := &payments.NormalDetails{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		if num == 1 {
			d.PaymentRequest = r.string(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func decodeSwapOutDetailsV1(b []byte) (payments.OutgoingDetails, error) {
	d := &payments.SwapOutDetails{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			d.PaymentRequest = r.string(v)
		case 2:
			d.Address = r.string(v)
		case 3:
			d.SwapOutFee = r.sat(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func decodeBlindedDetailsV1(b []byte) (payments.OutgoingDetails, error) {
	d := &payments.BlindedDetails{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			d.OfferID = r.bytes32(v)
		case 2:
			d.PayerKey = r.vertex(v)
		case 3:
			d.PayerNote = r.string(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
