// Package store persists incoming and outgoing Lightning payments in SQLite.
//
// # Architecture
//
// The store package exposes narrow interfaces for each concern:
//
//   - IncomingStore: Invoices, offers and on-chain receipts with their settlement parts
//   - OutgoingStore: Lightning payments with route parts, and the on-chain variants
//   - TxLinkStore: Which on-chain transaction settles which payments
//   - MetadataStore: Optional external id and webhook url per payment
//
// Store composes them and adds GetPayment and ListCompletedPayments, which
// the export pipeline pages through. SQLiteStore implements all of them in a
// single struct.
//
// # Identities
//
// Every payment row is addressed by a payments.Identity: a kind code plus a
// 16 byte id. Incoming ids are derived from the payment hash, so link and
// metadata rows use the same key shape for every kind:
//
//	link_tx_to_payments(tx_id, type, id)
//	payments_metadata(type, id)
//
// # Encodings
//
// Variant sub-objects (origins, parts, details, statuses, closing info,
// liquidity purchases) are stored as a type tag column plus a payload blob
// produced by the codec package. Reads accept every registered tag, so rows
// written by older releases still decode.
//
// # SQLite Configuration
//
// The store uses one connection with WAL mode and foreign keys:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Every mutation runs in a single transaction. Reads that touch several
// rows (a header and its parts, a listing) run in a read transaction so they
// see one snapshot.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested payment, part or metadata does not exist
//   - ErrDuplicateIdentity: Payment or part id already stored
//   - ErrUnknownParent: Parts, links or metadata for a missing payment
//   - ErrPartAlreadyCompleted: Part already reached a terminal status
//
// Decoding failures wrap codec.ErrUnrecognizedTag or a *codec.DecodeError.
//
// # Migrations
//
// NewSQLiteStore runs the migrate package before returning. A database
// written by an older release is rewritten to the current layout in place;
// a failed step rolls back and the constructor returns the error.
package store
