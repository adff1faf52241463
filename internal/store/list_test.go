// ABOUTME: Tests for payment listings and completion-ordered paging
// ABOUTME: Covers ordering, received/succeeded filters, external id filters and keyset cursors

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/payments"
)

func TestListIncomingPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var all []*payments.IncomingPayment
	for i, seed := range []string{"a", "b", "c", "d"} {
		p := newInvoicePayment(seed, at(int64(i)*1_000))
		var meta *payments.Metadata
		if seed == "c" {
			meta = &payments.Metadata{ExternalID: "order-c"}
		}
		require.NoError(t, store.AddIncomingPayment(ctx, p, meta))
		all = append(all, p)
	}
	require.NoError(t, store.AddIncomingParts(ctx, all[1].PaymentHash, []payments.IncomingPart{htlcPart(100, at(1_500))}))

	got, err := store.ListIncomingPayments(ctx, ListParams{From: at(0)})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, all[3].PaymentHash, got[0].Payment.PaymentHash, "newest first")
	assert.Equal(t, all[0].PaymentHash, got[3].Payment.PaymentHash)
	assert.Equal(t, "order-c", got[1].ExternalID)
	assert.Len(t, got[2].Payment.Parts, 1)

	got, err = store.ListIncomingPayments(ctx, ListParams{From: at(0), OnlyReceived: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, all[1].PaymentHash, got[0].Payment.PaymentHash)

	got, err = store.ListIncomingPayments(ctx, ListParams{From: at(0), ExternalID: "order-c"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, all[2].PaymentHash, got[0].Payment.PaymentHash)

	got, err = store.ListIncomingPayments(ctx, ListParams{From: at(1_000), To: at(3_000)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = store.ListIncomingPayments(ctx, ListParams{From: at(0), Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, all[2].PaymentHash, got[0].Payment.PaymentHash)
}

func TestListOutgoingPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	succeeded := newLightningPayment("succeeded", at(0))
	pending := newLightningPayment("pending", at(1_000))
	splice := newSplicePayment("listed", at(2_000))
	require.NoError(t, store.AddOutgoingPayment(ctx, succeeded, &payments.Metadata{ExternalID: "ext-1"}))
	require.NoError(t, store.AddOutgoingPayment(ctx, pending, nil))
	require.NoError(t, store.AddOutgoingPayment(ctx, splice, nil))
	require.NoError(t, store.CompleteOffchain(ctx, succeeded.ID, &payments.SucceededStatus{
		Preimage: testPreimage("succeeded"), CompletedAt: at(500),
	}))

	got, err := store.ListOutgoingPayments(ctx, ListParams{From: at(0)})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, splice.Identity(), got[0].Payment.Identity())
	assert.Equal(t, pending.Identity(), got[1].Payment.Identity())
	assert.Equal(t, succeeded.Identity(), got[2].Payment.Identity())
	assert.Equal(t, "ext-1", got[2].ExternalID)

	got, err = store.ListOutgoingPayments(ctx, ListParams{From: at(0), OnlySucceeded: true})
	require.NoError(t, err)
	require.Len(t, got, 1, "unlocked on-chain and pending payments are excluded")
	assert.Equal(t, succeeded.Identity(), got[0].Payment.Identity())

	require.NoError(t, store.SetLocked(ctx, splice.TxID, at(3_000)))
	got, err = store.ListOutgoingPayments(ctx, ListParams{From: at(0), OnlySucceeded: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.ListOutgoingPayments(ctx, ListParams{From: at(0), ExternalID: "ext-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, succeeded.Identity(), got[0].Payment.Identity())
}

func TestListCompletedPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incoming := newInvoicePayment("completed", at(0))
	require.NoError(t, store.AddIncomingPayment(ctx, incoming, nil))
	require.NoError(t, store.AddIncomingParts(ctx, incoming.PaymentHash, []payments.IncomingPart{htlcPart(1_000, at(2_000))}))

	lightning := newLightningPayment("completed", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, lightning, nil))
	require.NoError(t, store.CompleteOffchain(ctx, lightning.ID, &payments.SucceededStatus{
		Preimage: testPreimage("completed"), CompletedAt: at(2_000),
	}))

	failed := newLightningPayment("failed", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, failed, nil))
	require.NoError(t, store.CompleteOffchain(ctx, failed.ID, &payments.FailedStatus{CompletedAt: at(1_000)}))

	splice := newSplicePayment("completed", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, splice, nil))
	require.NoError(t, store.SetLocked(ctx, splice.TxID, at(1_000)))

	unpaid := newInvoicePayment("unpaid", at(0))
	require.NoError(t, store.AddIncomingPayment(ctx, unpaid, nil))

	page, err := store.ListCompletedPayments(ctx, at(0), at(10_000), nil, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, splice.Identity(), page[0].Identity)
	assert.Equal(t, incoming.Identity(), page[1].Identity, "ties break on kind code")
	assert.Equal(t, lightning.Identity(), page[2].Identity)
	assert.True(t, page[1].CompletedAt.Equal(at(2_000)))

	rest, err := store.ListCompletedPayments(ctx, at(0), at(10_000), &page[0], 10)
	require.NoError(t, err)
	assert.Equal(t, page[1:], rest)

	first, err := store.ListCompletedPayments(ctx, at(0), at(10_000), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, page[:1], first)

	none, err := store.ListCompletedPayments(ctx, at(0), at(1_000), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, none, "upper bound is exclusive")
}
