// ABOUTME: Payment identities addressing rows across incoming, outgoing and on-chain tables
// ABOUTME: Kind-tagged UUID keys, derivation from payment hashes, and the inverse parsers

package payments

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
)

// ErrInvalidIdentity is returned when a kind code or raw key cannot be parsed.
var ErrInvalidIdentity = errors.New("invalid payment identity")

// Kind discriminates the table family a payment lives in. The numeric values
// are persisted in foreign-key tables and must never be renumbered.
type Kind uint8

const (
	KindIncoming                 Kind = 1
	KindLightningOutgoing        Kind = 2
	KindChannelCloseOutgoing     Kind = 3
	KindSpliceOutgoing           Kind = 4
	KindSpliceCpfpOutgoing       Kind = 5
	KindInboundLiquidityOutgoing Kind = 6
)

var kindNames = map[Kind]string{
	KindIncoming:                 "incoming",
	KindLightningOutgoing:        "lightning_outgoing",
	KindChannelCloseOutgoing:     "channel_close_outgoing",
	KindSpliceOutgoing:           "splice_outgoing",
	KindSpliceCpfpOutgoing:       "splice_cpfp_outgoing",
	KindInboundLiquidityOutgoing: "inbound_liquidity_outgoing",
}

// AllKinds lists every kind in code order.
var AllKinds = []Kind{
	KindIncoming,
	KindLightningOutgoing,
	KindChannelCloseOutgoing,
	KindSpliceOutgoing,
	KindSpliceCpfpOutgoing,
	KindInboundLiquidityOutgoing,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsOnChain reports whether payments of this kind settle through a single
// on-chain transaction.
func (k Kind) IsOnChain() bool {
	switch k {
	case KindChannelCloseOutgoing, KindSpliceOutgoing, KindSpliceCpfpOutgoing, KindInboundLiquidityOutgoing:
		return true
	}
	return false
}

// KindFromCode converts a persisted kind code.
func KindFromCode(code int64) (Kind, error) {
	if code <= 0 || code > 255 || !Kind(code).Valid() {
		return 0, fmt.Errorf("%w: unknown kind code %d", ErrInvalidIdentity, code)
	}
	return Kind(code), nil
}

// ParseKind converts a kind name as produced by Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidIdentity, name)
}

// Identity uniquely addresses a payment row. It is comparable and can be
// used as a map key.
type Identity struct {
	Kind Kind
	ID   uuid.UUID
}

// DeriveID maps a payment hash to the fixed-size id of its incoming payment:
// the first 16 bytes of the hash, reinterpreted as a UUID. No version or
// variant bits are set. External references created before ids existed
// depend on this exact mapping.
func DeriveID(hash lntypes.Hash) uuid.UUID {
	var id uuid.UUID
	copy(id[:], hash[:16])
	return id
}

// IncomingID returns the identity of the incoming payment for hash.
func IncomingID(hash lntypes.Hash) Identity {
	return Identity{Kind: KindIncoming, ID: DeriveID(hash)}
}

// NewIdentity builds an identity for a UUID-keyed kind.
func NewIdentity(kind Kind, id uuid.UUID) Identity {
	return Identity{Kind: kind, ID: id}
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.Kind == 0 && i.ID == uuid.Nil
}

// Key returns the byte form of the identity key used in foreign-key columns.
func (i Identity) Key() []byte {
	key := make([]byte, len(i.ID))
	copy(key, i.ID[:])
	return key
}

// String renders the identity as "<kind>:<uuid>".
func (i Identity) String() string {
	return i.Kind.String() + ":" + i.ID.String()
}

// Parse rebuilds an identity from a persisted kind code and raw key. The raw
// key may be a 16-byte id, a 32-byte payment hash (incoming only), a
// canonical UUID string, or a 64 character hex payment hash (incoming only).
func Parse(code int64, rawKey []byte) (Identity, error) {
	kind, err := KindFromCode(code)
	if err != nil {
		return Identity{}, err
	}

	switch len(rawKey) {
	case 16:
		id, err := uuid.FromBytes(rawKey)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return Identity{Kind: kind, ID: id}, nil

	case 32:
		if kind != KindIncoming {
			return Identity{}, fmt.Errorf("%w: %s cannot be keyed by a payment hash", ErrInvalidIdentity, kind)
		}
		hash, err := lntypes.MakeHash(rawKey)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return IncomingID(hash), nil

	case 36:
		id, err := uuid.ParseBytes(rawKey)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return Identity{Kind: kind, ID: id}, nil

	case 64:
		if kind != KindIncoming {
			return Identity{}, fmt.Errorf("%w: %s cannot be keyed by a payment hash", ErrInvalidIdentity, kind)
		}
		raw, err := hex.DecodeString(string(rawKey))
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		hash, err := lntypes.MakeHash(raw)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return IncomingID(hash), nil
	}

	return Identity{}, fmt.Errorf("%w: unexpected key length %d", ErrInvalidIdentity, len(rawKey))
}

// ParseIdentity is the inverse of Identity.String.
func ParseIdentity(s string) (Identity, error) {
	name, key, ok := strings.Cut(s, ":")
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing kind separator in %q", ErrInvalidIdentity, s)
	}
	kind, err := ParseKind(name)
	if err != nil {
		return Identity{}, err
	}
	return Parse(int64(kind), []byte(key))
}
