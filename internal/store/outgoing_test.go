// ABOUTME: Tests for outgoing Lightning and on-chain payment store operations
// ABOUTME: Covers part completion monotonicity, explicit parent completion and variant round trips

package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/payments"
)

func TestOutgoingStore_PartsDoNotCompleteParent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newLightningPayment("scenario", at(0))
	first := routePart(30_000, at(10))
	second := routePart(21_000, at(20))
	p.Parts = []payments.OutgoingPart{first, second}
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

	preimage := testPreimage("scenario")
	require.NoError(t, store.CompletePart(ctx, first.ID, &payments.PartSucceeded{Preimage: preimage, CompletedAt: at(100)}))
	code := 15
	require.NoError(t, store.CompletePart(ctx, second.ID, &payments.PartFailed{RemoteFailureCode: &code, Details: "temporary channel failure", CompletedAt: at(110)}))

	got, err := store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.IsType(t, &payments.PendingStatus{}, got.Status)
	assert.Nil(t, got.CompletedTime())
	require.Len(t, got.Parts, 2)
	assert.IsType(t, &payments.PartSucceeded{}, got.Parts[0].Status)
	assert.IsType(t, &payments.PartFailed{}, got.Parts[1].Status)

	status := &payments.SucceededStatus{Preimage: preimage, CompletedAt: at(200)}
	require.NoError(t, store.CompleteOffchain(ctx, p.ID, status))

	got, err = store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, status, got.Status)
	assert.True(t, got.IsSucceeded())
	assert.EqualValues(t, 30_000, got.SentAmount())
}

func TestOutgoingStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newLightningPayment("roundtrip", at(0))
	p.Details = &payments.SwapOutDetails{Address: "bc1qswapout", PaymentRequest: "lnbc1swap", SwapOutFee: 1_200}
	p.Parts = []payments.OutgoingPart{routePart(50_000, at(5))}
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

	got, err := store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	byPart, err := store.GetLightningOutgoingPaymentFromPartID(ctx, p.Parts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, p, byPart)

	_, err = store.GetLightningOutgoingPayment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetLightningOutgoingPaymentFromPartID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutgoingStore_CompletePartIsMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newLightningPayment("monotonic", at(0))
	part := routePart(10_000, at(1))
	p.Parts = []payments.OutgoingPart{part}
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

	require.NoError(t, store.CompletePart(ctx, part.ID, &payments.PartFailed{Details: "no route", CompletedAt: at(5)}))

	err := store.CompletePart(ctx, part.ID, &payments.PartSucceeded{Preimage: testPreimage("monotonic"), CompletedAt: at(6)})
	assert.ErrorIs(t, err, ErrPartAlreadyCompleted)

	err = store.CompletePart(ctx, uuid.New(), &payments.PartFailed{CompletedAt: at(6)})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.CompletePart(ctx, part.ID, &payments.PartPending{})
	assert.ErrorIs(t, err, ErrNotTerminal)

	got, err := store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	failed, ok := got.Parts[0].Status.(*payments.PartFailed)
	require.True(t, ok)
	assert.Equal(t, "no route", failed.Details)
	assert.True(t, failed.CompletedAt.Equal(at(5)))
}

func TestOutgoingStore_CompleteOffchain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CompleteOffchain(ctx, uuid.New(), &payments.FailedStatus{Reason: payments.FailureRetryExhausted, CompletedAt: at(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	p := newLightningPayment("offchain", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

	err = store.CompleteOffchain(ctx, p.ID, &payments.PendingStatus{})
	assert.ErrorIs(t, err, ErrNotTerminal)

	status := &payments.FailedStatus{Reason: payments.FailureRecipientUnreachable, CompletedAt: at(9)}
	require.NoError(t, store.CompleteOffchain(ctx, p.ID, status))

	got, err := store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, status, got.Status)
	require.NotNil(t, got.CompletedTime())
	assert.True(t, got.CompletedTime().Equal(at(9)))

	// A completed payment cannot be moved back to pending.
	err = store.CompleteOffchain(ctx, p.ID, &payments.PendingStatus{})
	assert.ErrorIs(t, err, ErrNotTerminal)
	got, err = store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, status, got.Status)
}

func TestOutgoingStore_AddLightningParts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.AddLightningParts(ctx, uuid.New(), []payments.OutgoingPart{routePart(1, at(0))})
	assert.ErrorIs(t, err, ErrUnknownParent)

	p := newLightningPayment("parts", at(0))
	first := routePart(1_000, at(1))
	p.Parts = []payments.OutgoingPart{first}
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

	second := routePart(2_000, at(2))
	require.NoError(t, store.AddLightningParts(ctx, p.ID, []payments.OutgoingPart{second}))

	err = store.AddLightningParts(ctx, p.ID, []payments.OutgoingPart{routePart(3_000, at(3)), first})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	got, err := store.GetLightningOutgoingPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Parts, 2, "a failed batch writes nothing")
	assert.Equal(t, first.ID, got.Parts[0].ID)
	assert.Equal(t, second.ID, got.Parts[1].ID)
}

func TestOutgoingStore_DuplicateIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newLightningPayment("dup", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))
	assert.ErrorIs(t, store.AddOutgoingPayment(ctx, p, nil), ErrDuplicateIdentity)

	s := newSplicePayment("dup", at(0))
	require.NoError(t, store.AddOutgoingPayment(ctx, s, nil))
	assert.ErrorIs(t, store.AddOutgoingPayment(ctx, s, nil), ErrDuplicateIdentity)
}

func TestOutgoingStore_ListForHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newLightningPayment("retry", at(0))
	second := newLightningPayment("retry", at(100))
	other := newLightningPayment("other", at(50))
	for _, p := range []*payments.LightningOutgoingPayment{second, other, first} {
		require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))
	}

	got, err := store.ListLightningOutgoingPaymentsForHash(ctx, first.PaymentHash)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestOutgoingStore_OnChainVariants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	variants := []payments.OnChainPayment{
		newSplicePayment("splice", at(0)),
		&payments.ChannelCloseOutgoingPayment{
			OnChainState: payments.OnChainState{
				ID: uuid.New(), MiningFee: 900, ChannelID: testChannelID("close"),
				TxID: testTxID("close"), CreatedAt: at(1),
			},
			RecipientAmount:        800_000,
			Address:                "bc1qclose",
			IsSentToDefaultAddress: true,
			ClosingType:            payments.ClosingRemote,
		},
		&payments.SpliceCpfpOutgoingPayment{
			OnChainState: payments.OnChainState{
				ID: uuid.New(), MiningFee: 1_500, ChannelID: testChannelID("cpfp"),
				TxID: testTxID("cpfp"), CreatedAt: at(2),
			},
		},
		&payments.InboundLiquidityOutgoingPayment{
			OnChainState: payments.OnChainState{
				ID: uuid.New(), MiningFee: 400, ChannelID: testChannelID("liquidity"),
				TxID: testTxID("liquidity"), CreatedAt: at(3),
			},
			Purchase: &payments.FeeCreditPurchase{
				Amount: 1_000_000, MiningFee: 400, ServiceFee: 10_000, FeeCreditUsed: lnwire.MilliSatoshi(2_500_000),
			},
		},
	}

	for _, p := range variants {
		t.Run(p.Identity().Kind.String(), func(t *testing.T) {
			require.NoError(t, store.AddOutgoingPayment(ctx, p, nil))

			got, err := store.GetOnChainOutgoingPayment(ctx, p.Identity())
			require.NoError(t, err)
			assert.Equal(t, p, got)

			byTx, err := store.GetOutgoingPaymentByTxID(ctx, p.TransactionID())
			require.NoError(t, err)
			assert.Equal(t, p.Identity(), byTx.Identity())

			generic, err := store.GetPayment(ctx, p.Identity())
			require.NoError(t, err)
			assert.Equal(t, p, generic)
		})
	}

	_, err := store.GetOnChainOutgoingPayment(ctx, payments.NewIdentity(payments.KindSpliceOutgoing, uuid.New()))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetOutgoingPaymentByTxID(ctx, testTxID("nothing"))
	assert.ErrorIs(t, err, ErrNotFound)
}
