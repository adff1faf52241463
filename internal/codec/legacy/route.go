// ABOUTME: Legacy text route column: hops separated by ';', fields separated by ','
// ABOUTME: Each hop is "<node hex>,<next node hex>,<short channel id as uint64>"

package legacy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"

	"github.com/2389/lnledger/internal/payments"
)

// DecodeRouteV0 parses a route stored as text. An empty string is an empty
// route.
func DecodeRouteV0(s string) ([]payments.Hop, error) {
	if s == "" {
		return nil, nil
	}

	var hops []payments.Hop
	for i, raw := range strings.Split(s, ";") {
		fields := strings.Split(raw, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("decoding route: hop %d: want 3 fields, got %d", i, len(fields))
		}
		node, err := route.NewVertexFromStr(fields[0])
		if err != nil {
			return nil, fmt.Errorf("decoding route: hop %d: node: %w", i, err)
		}
		next, err := route.NewVertexFromStr(fields[1])
		if err != nil {
			return nil, fmt.Errorf("decoding route: hop %d: next node: %w", i, err)
		}
		scid, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decoding route: hop %d: channel: %w", i, err)
		}
		hops = append(hops, payments.Hop{
			NodeID:         node,
			NextNodeID:     next,
			ShortChannelID: lnwire.NewShortChanIDFromInt(scid),
		})
	}
	return hops, nil
}
