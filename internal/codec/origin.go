// ABOUTME: Incoming origin codec: invoice, offer and on-chain origins
// ABOUTME: Registers the current protowire generation and the legacy JSON generation

package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

const (
	TagInvoiceOriginV0 Tag = "INVOICE_V0"
	TagKeysendOriginV0 Tag = "KEYSEND_V0"
	TagSwapInOriginV0  Tag = "SWAPIN_V0"
	TagOnChainOriginV0 Tag = "ONCHAIN_V0"

	TagInvoiceOriginV1 Tag = "INVOICE_V1"
	TagOfferOriginV1   Tag = "OFFER_V1"
	TagOnChainOriginV1 Tag = "ONCHAIN_V1"
)

// Origins encodes how an incoming payment was requested.
var Origins = newCodec("incoming origin", encodeOrigin).
	register(TagInvoiceOriginV0, false, legacy.DecodeInvoiceOriginV0).
	register(TagKeysendOriginV0, false, legacy.DecodeKeysendOriginV0).
	register(TagSwapInOriginV0, false, legacy.DecodeSwapInOriginV0).
	register(TagOnChainOriginV0, false, legacy.DecodeOnChainOriginV0).
	register(TagInvoiceOriginV1, true, decodeInvoiceOriginV1).
	register(TagOfferOriginV1, true, decodeOfferOriginV1).
	register(TagOnChainOriginV1, true, decodeOnChainOriginV1)

func encodeOrigin(o payments.IncomingOrigin) (Tag, []byte, error) {
	var m message
	switch o := o.(type) {
	case *payments.InvoiceOrigin:
		m.string(1, o.PaymentRequest)
		m.optTime(2, o.ExpiresAt)
		return TagInvoiceOriginV1, m.payload(), nil

	case *payments.OfferOrigin:
		m.bytes(1, o.OfferID[:])
		m.bytes(2, o.PayerKey[:])
		m.string(3, o.PayerNote)
		if o.Quantity > 0 {
			m.uint(4, o.Quantity)
		}
		return TagOfferOriginV1, m.payload(), nil

	case *payments.OnChainOrigin:
		m.bytes(1, o.TxID[:])
		for _, op := range o.Outpoints {
			m.bytes(2, outpointBytes(op))
		}
		return TagOnChainOriginV1, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, o)
}

func decodeInvoiceOriginV1(b []byte) (payments.IncomingOrigin, error) {
	o := &payments.InvoiceOrigin{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			o.PaymentRequest = r.string(v)
		case 2:
			t := r.time(v)
			o.ExpiresAt = &t
		}
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func decodeOfferOriginV1(b []byte) (payments.IncomingOrigin, error) {
	o := &payments.OfferOrigin{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			o.OfferID = r.bytes32(v)
		case 2:
			o.PayerKey = r.vertex(v)
		case 3:
			o.PayerNote = r.string(v)
		case 4:
			o.Quantity = r.uint(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func decodeOnChainOriginV1(b []byte) (payments.IncomingOrigin, error) {
	o := &payments.OnChainOrigin{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			o.TxID = r.txid(v)
		case 2:
			o.Outpoints = append(o.Outpoints, r.outpoint(v))
		}
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// outpointBytes is the 32 byte tx hash followed by the little-endian index.
func outpointBytes(op wire.OutPoint) []byte {
	b := make([]byte, chainhash.HashSize+4)
	copy(b, op.Hash[:])
	binary.LittleEndian.PutUint32(b[chainhash.HashSize:], op.Index)
	return b
}

func (r *reader) outpoint(v value) wire.OutPoint {
	b := r.fixed(v, chainhash.HashSize+4)
	var op wire.OutPoint
	copy(op.Hash[:], b[:chainhash.HashSize])
	op.Index = binary.LittleEndian.Uint32(b[chainhash.HashSize:])
	return op
}
