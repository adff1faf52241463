// Package export walks successful payments for bookkeeping.
//
// ForEachSuccessfulPayment pages through a Source in completion order
// using a keyset cursor, so the result does not depend on the batch size
// and memory stays bounded to one batch. Events flattens a payment into
// signed settlement events: one per incoming part, one per outgoing
// payment. CSVWriter renders them and Totals aggregates them.
//
// Amounts are signed millisatoshi. Summing amount_msat over a full export
// yields the wallet balance and summing fee_credit_msat yields the fee
// credit.
package export
