// ABOUTME: Tests for legacy payload decoders that are not covered through the codec registry
// ABOUTME: Covers text routes, failure reason names and malformed JSON handling

package legacy

import (
	"fmt"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/payments"
)

func vertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x03
	v[32] = b
	return v
}

func TestDecodeRouteV0(t *testing.T) {
	a, b, c := vertex(1), vertex(2), vertex(3)
	s := fmt.Sprintf("%s,%s,%d;%s,%s,%d", a, b, uint64(42), b, c, uint64(7<<40|1<<16))

	hops, err := DecodeRouteV0(s)
	require.NoError(t, err)
	assert.Equal(t, []payments.Hop{
		{NodeID: a, NextNodeID: b, ShortChannelID: lnwire.NewShortChanIDFromInt(42)},
		{NodeID: b, NextNodeID: c, ShortChannelID: lnwire.NewShortChanIDFromInt(7<<40 | 1<<16)},
	}, hops)

	hops, err = DecodeRouteV0("")
	require.NoError(t, err)
	assert.Empty(t, hops)
}

func TestDecodeRouteV0_Malformed(t *testing.T) {
	a := vertex(1)
	tests := []struct {
		name  string
		route string
	}{
		{"missing field", a.String() + "," + a.String()},
		{"bad node", "zz," + a.String() + ",1"},
		{"bad channel", a.String() + "," + a.String() + ",x"},
		{"trailing separator", a.String() + "," + a.String() + ",1;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRouteV0(tt.route)
			assert.Error(t, err)
		})
	}
}

func TestFailureReasonV0(t *testing.T) {
	assert.Equal(t, payments.FailureInsufficientBalance, FailureReasonV0("InsufficientBalance"))
	assert.Equal(t, payments.FailureRecipientUnreachable, FailureReasonV0("RecipientUnreachable"))
	assert.Equal(t, payments.FailureRetryExhausted, FailureReasonV0("retry_exhausted"))
	assert.Equal(t, payments.FailureUnknown, FailureReasonV0("SomethingNew"))
}

func TestDecodeCloseInfoV0(t *testing.T) {
	got, err := DecodeCloseInfoV0([]byte(`{"closingType":"Revoked"}`))
	require.NoError(t, err)
	assert.Equal(t, payments.ClosingRevoked, got)

	got, err = DecodeCloseInfoV0([]byte(`{"closingType":"Unheard"}`))
	require.NoError(t, err)
	assert.Equal(t, payments.ClosingOther, got)
}

func TestMalformedJSON(t *testing.T) {
	_, err := DecodeLeaseV0([]byte(`{"amount":`))
	assert.Error(t, err)

	_, err = DecodeMultipartsV1([]byte(`[{"type":"teleport"}]`), time.Time{})
	assert.Error(t, err)
}
