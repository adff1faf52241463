// ABOUTME: Transaction links and payment metadata, both addressed by payment identity
// ABOUTME: Link timestamps are write-once and mirrored onto every linked payment row

package payments

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxLink ties an on-chain transaction to a payment it settles. One
// transaction may settle several payments.
type TxLink struct {
	TxID        chainhash.Hash
	Identity    Identity
	ConfirmedAt *time.Time
	LockedAt    *time.Time
}

// Metadata is an optional annotation supplied when a payment is created.
type Metadata struct {
	Identity   Identity
	ExternalID string
	WebhookURL string
	CreatedAt  time.Time
}

// Completion locates a successful payment in completion order. Ordering is
// by CompletedAt, then kind code, then id bytes.
type Completion struct {
	CompletedAt time.Time
	Identity    Identity
}
