// ABOUTME: Protobuf wire-format helpers used by the current payload generation
// ABOUTME: Fields are written by number; unknown fields are skipped when reading

package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"google.golang.org/protobuf/encoding/protowire"
)

var errWireType = errors.New("unexpected wire type")

// message accumulates fields of one payload.
type message struct {
	b []byte
}

func (m *message) uint(num protowire.Number, v uint64) {
	m.b = protowire.AppendTag(m.b, num, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, v)
}

func (m *message) bytes(num protowire.Number, v []byte) {
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, v)
}

func (m *message) string(num protowire.Number, s string) {
	if s == "" {
		return
	}
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendString(m.b, s)
}

// sat writes a signed satoshi amount.
func (m *message) sat(num protowire.Number, a btcutil.Amount) {
	m.uint(num, protowire.EncodeZigZag(int64(a)))
}

func (m *message) time(num protowire.Number, t time.Time) {
	m.uint(num, protowire.EncodeZigZag(t.UnixMilli()))
}

func (m *message) optTime(num protowire.Number, t *time.Time) {
	if t != nil {
		m.time(num, *t)
	}
}

func (m *message) payload() []byte {
	if m.b == nil {
		return []byte{}
	}
	return m.b
}

// value is one decoded field.
type value struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

// walk calls fn for every field of b. Groups and fixed-width fields are not
// produced by this package and are rejected.
func walk(b []byte, fn func(num protowire.Number, v value)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, value{typ: typ, v: v})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, value{typ: typ, b: v})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// reader converts field values, keeping the first conversion error.
type reader struct {
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) uint(v value) uint64 {
	if v.typ != protowire.VarintType {
		r.fail(fmt.Errorf("%w: want varint, got %d", errWireType, v.typ))
		return 0
	}
	return v.v
}

func (r *reader) bytes(v value) []byte {
	if v.typ != protowire.BytesType {
		r.fail(fmt.Errorf("%w: want bytes, got %d", errWireType, v.typ))
		return nil
	}
	return append([]byte(nil), v.b...)
}

func (r *reader) string(v value) string {
	return string(r.bytes(v))
}

func (r *reader) time(v value) time.Time {
	return time.UnixMilli(protowire.DecodeZigZag(r.uint(v)))
}

func (r *reader) fixed(v value, size int) []byte {
	b := r.bytes(v)
	if len(b) != size {
		r.fail(fmt.Errorf("want %d bytes, got %d", size, len(b)))
		return make([]byte, size)
	}
	return b
}

func (r *reader) bytes32(v value) [32]byte {
	var out [32]byte
	copy(out[:], r.fixed(v, 32))
	return out
}

func (r *reader) hash(v value) lntypes.Hash {
	return lntypes.Hash(r.bytes32(v))
}

func (r *reader) preimage(v value) lntypes.Preimage {
	return lntypes.Preimage(r.bytes32(v))
}

func (r *reader) txid(v value) chainhash.Hash {
	return chainhash.Hash(r.bytes32(v))
}

func (r *reader) channelID(v value) lnwire.ChannelID {
	return lnwire.ChannelID(r.bytes32(v))
}

func (r *reader) vertex(v value) route.Vertex {
	var out route.Vertex
	copy(out[:], r.fixed(v, len(out)))
	return out
}

func (r *reader) msat(v value) lnwire.MilliSatoshi {
	return lnwire.MilliSatoshi(r.uint(v))
}

func (r *reader) sat(v value) btcutil.Amount {
	return btcutil.Amount(protowire.DecodeZigZag(r.uint(v)))
}

// decodeWith walks payload with fn and returns the first wire or conversion
// error.
func decodeWith(payload []byte, fn func(r *reader, num protowire.Number, v value)) error {
	var r reader
	if err := walk(payload, func(num protowire.Number, v value) { fn(&r, num, v) }); err != nil {
		return err
	}
	return r.err
}
