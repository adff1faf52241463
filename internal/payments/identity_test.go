// ABOUTME: Tests for payment identities: derivation, key forms and string round trips
// ABOUTME: Legacy key shapes must resolve to the same identity as the current 16 byte key

package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHash(seed string) lntypes.Hash {
	return lntypes.Hash(sha256.Sum256([]byte(seed)))
}

func TestDeriveID(t *testing.T) {
	hash := testHash("derive")
	id := DeriveID(hash)

	assert.Equal(t, hash[:16], id[:])
	assert.Equal(t, id, DeriveID(hash), "derivation is deterministic")
	assert.NotEqual(t, id, DeriveID(testHash("other")))
}

func TestIncomingAndOutgoingIdentitiesDiffer(t *testing.T) {
	hash := testHash("same-bytes")
	id := DeriveID(hash)

	incoming := IncomingID(hash)
	outgoing := NewIdentity(KindLightningOutgoing, id)

	assert.Equal(t, incoming.ID, outgoing.ID)
	assert.NotEqual(t, incoming, outgoing, "kind disambiguates equal ids")
}

func TestParse_KeyForms(t *testing.T) {
	hash := testHash("parse")
	want := IncomingID(hash)
	id := uuid.New()

	tests := []struct {
		name string
		code int64
		key  []byte
		want Identity
	}{
		{"16 byte id", 1, want.Key(), want},
		{"32 byte hash", 1, hash[:], want},
		{"hex hash", 1, []byte(hex.EncodeToString(hash[:])), want},
		{"uuid text", 2, []byte(id.String()), NewIdentity(KindLightningOutgoing, id)},
		{"16 byte outgoing", 6, id[:], NewIdentity(KindInboundLiquidityOutgoing, id)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.code, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	hash := testHash("invalid")

	tests := []struct {
		name string
		code int64
		key  []byte
	}{
		{"unknown kind", 7, hash[:16]},
		{"zero kind", 0, hash[:16]},
		{"negative kind", -1, hash[:16]},
		{"hash for outgoing", 2, hash[:]},
		{"hex hash for splice", 4, []byte(hex.EncodeToString(hash[:]))},
		{"bad hex", 1, []byte(hex.EncodeToString(hash[:])[:62] + "zz")},
		{"bad uuid text", 2, []byte("zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz")},
		{"short key", 1, hash[:8]},
		{"empty key", 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.code, tt.key)
			assert.ErrorIs(t, err, ErrInvalidIdentity)
		})
	}
}

func TestIdentity_StringRoundTrip(t *testing.T) {
	for _, kind := range AllKinds {
		id := NewIdentity(kind, uuid.New())
		got, err := ParseIdentity(id.String())
		require.NoError(t, err, kind.String())
		assert.Equal(t, id, got)
	}

	_, err := ParseIdentity("incoming")
	assert.ErrorIs(t, err, ErrInvalidIdentity)
	_, err = ParseIdentity("bogus:" + uuid.NewString())
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "splice_cpfp_outgoing", KindSpliceCpfpOutgoing.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
	assert.False(t, Kind(9).Valid())

	assert.False(t, KindIncoming.IsOnChain())
	assert.False(t, KindLightningOutgoing.IsOnChain())
	for _, k := range AllKinds[2:] {
		assert.True(t, k.IsOnChain(), k.String())
	}

	k, err := ParseKind("channel_close_outgoing")
	require.NoError(t, err)
	assert.Equal(t, KindChannelCloseOutgoing, k)
}

func TestIdentity_KeyIsCopy(t *testing.T) {
	id := NewIdentity(KindSpliceOutgoing, uuid.New())
	key := id.Key()
	key[0] ^= 0xff
	assert.NotEqual(t, key, id.Key())
	assert.False(t, id.IsZero())
	assert.True(t, Identity{}.IsZero())
}
