// Package codec serializes payment sub-objects as (tag, payload) pairs.
//
// # Tags
//
// A Tag names both the variant of a sub-object and the generation of its
// payload shape, for example NEW_CHANNEL_V2. Decoding dispatches on the tag
// alone and never inspects the payload to guess its shape. Encoding always
// emits the newest tag of a variant.
//
// The tag space is append-only. Once a tag has been written to disk its
// decoder stays registered, so rows written years ago still decode:
//
//   - Origins: INVOICE_V0, KEYSEND_V0, SWAPIN_V0, ONCHAIN_V0 (legacy);
//     INVOICE_V1, OFFER_V1, ONCHAIN_V1 (current)
//   - IncomingParts: HTLC_V2, FEE_CREDIT_V2, NEW_CHANNEL_V2, SPLICE_IN_V2;
//     the legacy MULTIPARTS_V0 and MULTIPARTS_V1 blobs held every part of a
//     payment and are read with DecodeReceivedWith
//   - OutgoingDetails: NORMAL_V0, KEYSEND_V0, SWAPOUT_V0 (legacy);
//     NORMAL_V1, SWAPOUT_V1, BLINDED_V1 (current)
//   - OutgoingStatuses: SUCCEEDED_OFFCHAIN_V0, FAILED_V0 (legacy);
//     SUCCEEDED_V1, FAILED_V1 (current)
//   - PartStatuses: PART_SUCCEEDED_V0, PART_FAILED_V0 (legacy);
//     PART_SUCCEEDED_V1, PART_FAILED_V1 (current)
//   - Purchases: LEASE_V0 (legacy); PURCHASE_STANDARD_V1,
//     PURCHASE_FEE_CREDIT_V1 (current)
//   - ClosingInfos: CLOSE_INFO_V0 (legacy); CLOSE_INFO_V1 (current)
//
// # Payloads
//
// Current payloads use the protobuf wire format, written field by field with
// protowire. Timestamps are zigzag millisecond varints and empty strings are
// omitted. Unknown field numbers are skipped, so a field can be added without
// a new tag as long as its absence decodes to the right default.
//
// Legacy payloads are JSON documents decoded by package legacy. That package
// upgrades each old shape to the current in-memory type; it is never reached
// from an encode path.
//
// # Errors
//
// An unknown tag yields a *DecodeError wrapping ErrUnrecognizedTag. It means
// the row is corrupt or was written by a newer release, and callers must
// surface it rather than skip the row.
package codec
