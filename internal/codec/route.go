// ABOUTME: Untagged route encoding for outgoing parts
// ABOUTME: Each hop is an embedded message of node, next node and short channel id

package codec

import (
	"fmt"

	"github.com/lightningnetwork/lnd/lnwire"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/payments"
)

// EncodeRoute serializes the hops of a part's route.
func EncodeRoute(hops []payments.Hop) []byte {
	var m message
	for _, h := range hops {
		var hop message
		hop.bytes(1, h.NodeID[:])
		hop.bytes(2, h.NextNodeID[:])
		hop.uint(3, h.ShortChannelID.ToUint64())
		m.bytes(1, hop.payload())
	}
	return m.payload()
}

// DecodeRoute is the inverse of EncodeRoute. An empty payload yields no hops.
func DecodeRoute(payload []byte) ([]payments.Hop, error) {
	var hops []payments.Hop
	var hopErr error
	err := decodeWith(payload, func(r *reader, num protowire.Number, v value) {
		if num != 1 {
			return
		}
		var h payments.Hop
		err := decodeWith(r.bytes(v), func(r *reader, num protowire.Number, v value) {
			switch num {
			case 1:
				h.NodeID = r.vertex(v)
			case 2:
				h.NextNodeID = r.vertex(v)
			case 3:
				h.ShortChannelID = lnwire.NewShortChanIDFromInt(r.uint(v))
			}
		})
		if err != nil && hopErr == nil {
			hopErr = fmt.Errorf("hop %d: %w", len(hops), err)
		}
		hops = append(hops, h)
	})
	if err == nil {
		err = hopErr
	}
	if err != nil {
		return nil, fmt.Errorf("decoding route: %w", err)
	}
	return hops, nil
}
