// Package payments defines the domain model persisted by the ledger.
//
// Payments are sum types expressed as sealed interfaces: every variant
// implements an unexported marker method, and consumers switch on the
// concrete type. The same shape is persisted by package codec as a
// (type tag, payload) pair per sub-object.
//
// # Identities
//
// Every payment is addressed by an Identity, a Kind plus a 16-byte id:
//
//   - incoming payments: the first 16 bytes of the payment hash (DeriveID)
//   - Lightning outgoing payments: the parent payment id
//   - on-chain outgoing payments: a locally generated UUID
//
// Identities are the join key of the transaction-link and metadata tables.
package payments
