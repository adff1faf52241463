// ABOUTME: Incoming settlement part codec, one tagged row per part
// ABOUTME: Also decodes the legacy multipart blobs that held every part in one column

package codec

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

const (
	TagMultipartsV0 Tag = "MULTIPARTS_V0"
	TagMultipartsV1 Tag = "MULTIPARTS_V1"

	TagHtlcPartV2       Tag = "HTLC_V2"
	TagFeeCreditPartV2  Tag = "FEE_CREDIT_V2"
	TagNewChannelPartV2 Tag = "NEW_CHANNEL_V2"
	TagSpliceInPartV2   Tag = "SPLICE_IN_V2"
)

// IncomingParts encodes one settlement part of an incoming payment.
var IncomingParts = newCodec("incoming part", encodeIncomingPart).
	register(TagHtlcPartV2, true, decodeHtlcPartV2).
	register(TagFeeCreditPartV2, true, decodeFeeCreditPartV2).
	register(TagNewChannelPartV2, true, decodeNewChannelPartV2).
	register(TagSpliceInPartV2, true, decodeSpliceInPartV2)

// DecodeReceivedWith decodes a legacy multipart blob. The blob format has no
// per-part timestamps, so every part is stamped with receivedAt.
func DecodeReceivedWith(tag Tag, payload []byte, receivedAt time.Time) ([]payments.IncomingPart, error) {
	var (
		parts []payments.IncomingPart
		err   error
	)
	switch tag {
	case TagMultipartsV0:
		parts, err = legacy.DecodeMultipartsV0(payload, receivedAt)
	case TagMultipartsV1:
		parts, err = legacy.DecodeMultipartsV1(payload, receivedAt)
	default:
		err = ErrUnrecognizedTag
	}
	if err != nil {
		return nil, &DecodeError{Type: "received with", Tag: tag, Err: err}
	}
	return parts, nil
}

func encodeIncomingPart(p payments.IncomingPart) (Tag, []byte, error) {
	var m message
	switch p := p.(type) {
	case *payments.HtlcPart:
		m.uint(1, uint64(p.Amount))
		m.bytes(2, p.ChannelID[:])
		m.uint(3, p.HtlcID)
		m.uint(4, uint64(p.FundingFee))
		m.time(5, p.ReceivedAt)
		return TagHtlcPartV2, m.payload(), nil

	case *payments.FeeCreditPart:
		m.uint(1, uint64(p.Amount))
		m.time(5, p.ReceivedAt)
		return TagFeeCreditPartV2, m.payload(), nil

	case *payments.NewChannelPart:
		encodeChannelPart(&m, p.Amount, p.ServiceFee, p.MiningFee, p.ChannelID[:], p.TxID[:], p.ReceivedAt)
		return TagNewChannelPartV2, m.payload(), nil

	case *payments.SpliceInPart:
		encodeChannelPart(&m, p.Amount, p.ServiceFee, p.MiningFee, p.ChannelID[:], p.TxID[:], p.ReceivedAt)
		return TagSpliceInPartV2, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, p)
}

func encodeChannelPart(m *message, amount, serviceFee lnwire.MilliSatoshi, miningFee btcutil.Amount, channelID, txID []byte, at time.Time) {
	m.uint(1, uint64(amount))
	m.bytes(2, channelID)
	m.uint(3, uint64(serviceFee))
	m.sat(4, miningFee)
	m.time(5, at)
	m.bytes(6, txID)
}

func decodeHtlcPartV2(b []byte) (payments.IncomingPart, error) {
	p := &payments.HtlcPart{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.msat(v)
		case 2:
			p.ChannelID = r.channelID(v)
		case 3:
			p.HtlcID = r.uint(v)
		case 4:
			p.FundingFee = r.msat(v)
		case 5:
			p.ReceivedAt = r.time(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeFeeCreditPartV2(b []byte) (payments.IncomingPart, error) {
	p := &payments.FeeCreditPart{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.msat(v)
		case 5:
			p.ReceivedAt = r.time(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeNewChannelPartV2(b []byte) (payments.IncomingPart, error) {
	p := &payments.NewChannelPart{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.msat(v)
		case 2:
			p.ChannelID = r.channelID(v)
		case 3:
			p.ServiceFee = r.msat(v)
		case 4:
			p.MiningFee = r.sat(v)
		case 5:
			p.ReceivedAt = r.time(v)
		case 6:
			p.TxID = r.txid(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeSpliceInPartV2(b []byte) (payments.IncomingPart, error) {
	p := &payments.SpliceInPart{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			p.Amount = r.msat(v)
		case 2:
			p.ChannelID = r.channelID(v)
		case 3:
			p.ServiceFee = r.msat(v)
		case 4:
			p.MiningFee = r.sat(v)
		case 5:
			p.ReceivedAt = r.time(v)
		case 6:
			p.TxID = r.txid(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
