// ABOUTME: Store interfaces, sentinel errors and list types for payment persistence
// ABOUTME: SQLiteStore implements every interface; callers depend on the narrow ones

package store

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/2389/lnledger/internal/payments"
)

// ErrNotFound is returned when a requested payment does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdentity is returned when creating a payment or part whose
// identity is already stored. Creation is never an upsert.
var ErrDuplicateIdentity = errors.New("payment identity already exists")

// ErrUnknownParent is returned when adding parts, links or metadata to a
// payment that does not exist
var ErrUnknownParent = errors.New("unknown parent payment")

// ErrPartAlreadyCompleted is returned when completing a part that already
// reached a terminal status
var ErrPartAlreadyCompleted = errors.New("part already completed")

// ErrNotTerminal is returned when a completion carries a pending status
var ErrNotTerminal = errors.New("status is not terminal")

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListParams filters and paginates payment listings. From is inclusive, To
// is exclusive; a zero To means no upper bound.
type ListParams struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int

	// OnlyReceived restricts incoming listings to received payments.
	OnlyReceived bool
	// OnlySucceeded restricts outgoing listings to successful payments.
	OnlySucceeded bool
	// ExternalID restricts listings to payments with this metadata value.
	ExternalID string
}

// IncomingWithMetadata is one row of an incoming listing.
type IncomingWithMetadata struct {
	Payment    *payments.IncomingPayment
	ExternalID string
}

// OutgoingWithMetadata is one row of an outgoing listing.
type OutgoingWithMetadata struct {
	Payment    payments.OutgoingPayment
	ExternalID string
}

// IncomingStore persists incoming payments and their settlement parts
type IncomingStore interface {
	AddIncomingPayment(ctx context.Context, p *payments.IncomingPayment, meta *payments.Metadata) error
	AddIncomingParts(ctx context.Context, hash lntypes.Hash, parts []payments.IncomingPart) error
	GetIncomingPayment(ctx context.Context, hash lntypes.Hash) (*payments.IncomingPayment, error)
	GetIncomingPaymentByID(ctx context.Context, id uuid.UUID) (*payments.IncomingPayment, error)
	ListExpiredPayments(ctx context.Context, from, to time.Time) ([]*payments.IncomingPayment, error)
	RemoveIncomingPayment(ctx context.Context, hash lntypes.Hash) (bool, error)
	ListIncomingPayments(ctx context.Context, params ListParams) ([]IncomingWithMetadata, error)
	SumReceived(ctx context.Context) (lnwire.MilliSatoshi, error)
}

// OutgoingStore persists Lightning and on-chain outgoing payments
type OutgoingStore interface {
	AddOutgoingPayment(ctx context.Context, p payments.OutgoingPayment, meta *payments.Metadata) error
	AddLightningParts(ctx context.Context, parentID uuid.UUID, parts []payments.OutgoingPart) error
	CompleteOffchain(ctx context.Context, id uuid.UUID, status payments.OutgoingStatus) error
	CompletePart(ctx context.Context, partID uuid.UUID, status payments.PartStatus) error
	GetLightningOutgoingPayment(ctx context.Context, id uuid.UUID) (*payments.LightningOutgoingPayment, error)
	GetLightningOutgoingPaymentFromPartID(ctx context.Context, partID uuid.UUID) (*payments.LightningOutgoingPayment, error)
	ListLightningOutgoingPaymentsForHash(ctx context.Context, hash lntypes.Hash) ([]*payments.LightningOutgoingPayment, error)
	GetOnChainOutgoingPayment(ctx context.Context, id payments.Identity) (payments.OnChainPayment, error)
	GetOutgoingPaymentByTxID(ctx context.Context, txID chainhash.Hash) (payments.OnChainPayment, error)
	ListOutgoingPayments(ctx context.Context, params ListParams) ([]OutgoingWithMetadata, error)
}

// TxLinkStore maps on-chain transactions to the payments they settle
type TxLinkStore interface {
	LinkTx(ctx context.Context, txID chainhash.Hash, ids ...payments.Identity) error
	SetConfirmed(ctx context.Context, txID chainhash.Hash, at time.Time) error
	SetLocked(ctx context.Context, txID chainhash.Hash, at time.Time) error
	ListLinkedIdentities(ctx context.Context, txID chainhash.Hash) ([]payments.Identity, error)
	ListTxLinks(ctx context.Context, txID chainhash.Hash) ([]payments.TxLink, error)
	ListUnconfirmedTxs(ctx context.Context) ([]chainhash.Hash, error)
}

// MetadataStore holds optional user annotations per payment
type MetadataStore interface {
	InsertMetadata(ctx context.Context, m payments.Metadata) error
	GetMetadata(ctx context.Context, id payments.Identity) (*payments.Metadata, error)
}

// Store is the full payment persistence surface
type Store interface {
	IncomingStore
	OutgoingStore
	TxLinkStore
	MetadataStore

	// GetPayment resolves any identity to its payment.
	GetPayment(ctx context.Context, id payments.Identity) (payments.Payment, error)
	// ListCompletedPayments pages through successful payments in
	// completion order, strictly after the given cursor when it is set.
	ListCompletedPayments(ctx context.Context, from, to time.Time, after *payments.Completion, limit int) ([]payments.Completion, error)

	// Close releases any resources held by the store
	Close() error
}
