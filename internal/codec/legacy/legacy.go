// ABOUTME: Historical JSON payload decoders kept only so old rows stay readable
// ABOUTME: Nothing here encodes; upgrades fill fields the old shapes did not carry

// Package legacy decodes payload generations that are no longer written.
//
// Early releases persisted sub-objects as JSON documents. Each exported
// Decode function reads one such shape and returns the current in-memory
// representation, filling fields that did not exist yet with defaults. The
// functions are registered against their tags by package codec and are
// never reachable from an encode path.
package legacy

import (
	"encoding/hex"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

func unmarshal(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("parsing legacy payload: %w", err)
	}
	return nil
}

// parseTxID reads a transaction id in its usual display (byte-reversed) form.
// An empty string yields the zero hash.
func parseTxID(s string) (chainhash.Hash, error) {
	if s == "" {
		return chainhash.Hash{}, nil
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("parsing tx id %q: %w", s, err)
	}
	return *h, nil
}

func parseChannelID(s string) (lnwire.ChannelID, error) {
	var id lnwire.ChannelID
	if s == "" {
		return id, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parsing channel id: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("parsing channel id: want %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func parsePreimage(s string) (lntypes.Preimage, error) {
	p, err := lntypes.MakePreimageFromStr(s)
	if err != nil {
		return lntypes.Preimage{}, fmt.Errorf("parsing preimage: %w", err)
	}
	return p, nil
}

func parseOutpoint(s string) (wire.OutPoint, error) {
	op, err := wire.NewOutPointFromString(s)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("parsing outpoint %q: %w", s, err)
	}
	return *op, nil
}
