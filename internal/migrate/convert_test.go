// ABOUTME: Tests for the legacy row converters and step statistics
// ABOUTME: Rows are built in memory; no database is involved

package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/codec"
	"github.com/2389/lnledger/internal/payments"
)

func at(ms int64) time.Time {
	return time.UnixMilli(1_700_000_000_000 + ms)
}

func ptr(t time.Time) *time.Time { return &t }

func vertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x02
	v[32] = b
	return v
}

func TestConvertIncoming_SplitsParts(t *testing.T) {
	preimage := lntypes.Preimage(sha256.Sum256([]byte("convert")))
	hash := preimage.Hash()
	channel := sha256.Sum256([]byte("channel"))

	row := incomingRow{
		PaymentHash:      hash[:],
		Preimage:         preimage[:],
		OriginType:       string(codec.TagInvoiceOriginV0),
		OriginBlob:       []byte(`{"paymentRequest":"lnbc1convert"}`),
		ReceivedAt:       ptr(at(500)),
		ReceivedWithType: string(codec.TagMultipartsV0),
		ReceivedWithBlob: []byte(fmt.Sprintf(
			`[{"type":"lightning","amount":1000,"channelId":"%x","htlcId":3},`+
				`{"type":"new_channel","amount":9000,"channelId":"%x","fees":250}]`,
			channel, channel)),
		CreatedAt: at(0),
	}

	p, err := convertIncoming(row)
	require.NoError(t, err)
	assert.Equal(t, hash, p.PaymentHash)
	assert.Equal(t, &payments.InvoiceOrigin{PaymentRequest: "lnbc1convert"}, p.Origin)
	require.NotNil(t, p.ReceivedAt)
	assert.Equal(t, at(500), *p.ReceivedAt)

	require.Len(t, p.Parts, 2)
	assert.Equal(t, &payments.HtlcPart{
		Amount:     1000,
		ChannelID:  lnwire.ChannelID(channel),
		HtlcID:     3,
		ReceivedAt: at(500),
	}, p.Parts[0])
	assert.Equal(t, &payments.NewChannelPart{
		Amount:     9000,
		ServiceFee: 250,
		ChannelID:  lnwire.ChannelID(channel),
		ReceivedAt: at(500),
	}, p.Parts[1])
}

func TestConvertIncoming_PartsFallBackToCreationTime(t *testing.T) {
	preimage := lntypes.Preimage(sha256.Sum256([]byte("no-received-at")))
	hash := preimage.Hash()

	row := incomingRow{
		PaymentHash:      hash[:],
		Preimage:         preimage[:],
		OriginType:       string(codec.TagKeysendOriginV0),
		ReceivedWithType: string(codec.TagMultipartsV1),
		ReceivedWithBlob: []byte(`[{"type":"fee_credit","amountMsat":700}]`),
		CreatedAt:        at(42),
	}

	p, err := convertIncoming(row)
	require.NoError(t, err)
	assert.Equal(t, &payments.InvoiceOrigin{}, p.Origin)
	require.Len(t, p.Parts, 1)
	assert.Equal(t, at(42), p.Parts[0].PartTime())
}

func TestConvertIncoming_Unpaid(t *testing.T) {
	preimage := lntypes.Preimage(sha256.Sum256([]byte("unpaid")))
	hash := preimage.Hash()

	p, err := convertIncoming(incomingRow{
		PaymentHash: hash[:],
		Preimage:    preimage[:],
		OriginType:  string(codec.TagInvoiceOriginV0),
		OriginBlob:  []byte(`{"paymentRequest":"lnbc1unpaid"}`),
		CreatedAt:   at(0),
	})
	require.NoError(t, err)
	assert.Empty(t, p.Parts)
	assert.Nil(t, p.ReceivedAt)
}

func TestConvertIncoming_UnknownTag(t *testing.T) {
	preimage := lntypes.Preimage(sha256.Sum256([]byte("unknown")))
	hash := preimage.Hash()

	_, err := convertIncoming(incomingRow{
		PaymentHash: hash[:],
		Preimage:    preimage[:],
		OriginType:  "INVOICE_V9",
		OriginBlob:  []byte(`{}`),
		CreatedAt:   at(0),
	})
	assert.ErrorIs(t, err, codec.ErrUnrecognizedTag)
}

func TestConvertOutgoing(t *testing.T) {
	id := uuid.New()
	partID := uuid.New()
	preimage := lntypes.Preimage(sha256.Sum256([]byte("outgoing")))
	hash := preimage.Hash()
	a, b := vertex(1), vertex(2)

	row := outgoingRow{
		ID:              id.String(),
		RecipientAmount: 50_000,
		RecipientNodeID: b.String(),
		PaymentHash:     hash[:],
		DetailsType:     string(codec.TagNormalDetailsV0),
		DetailsBlob:     []byte(`{"paymentRequest":"lnbc1out"}`),
		CreatedAt:       at(0),
		CompletedAt:     ptr(at(900)),
		StatusType:      string(codec.TagSucceededOffchainV0),
		StatusBlob:      []byte(fmt.Sprintf(`{"preimage":"%s"}`, preimage)),
	}
	parts := []outgoingPartRow{{
		ID:          partID.String(),
		Amount:      50_100,
		Route:       fmt.Sprintf("%s,%s,%d", a, b, uint64(77)),
		CreatedAt:   at(10),
		CompletedAt: ptr(at(800)),
		StatusType:  string(codec.TagPartSucceededV0),
		StatusBlob:  []byte(fmt.Sprintf(`{"preimage":"%s"}`, preimage)),
	}}

	p, err := convertOutgoing(row, parts)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, b, p.Recipient)
	assert.Equal(t, lnwire.MilliSatoshi(50_000), p.RecipientAmount)
	assert.Equal(t, &payments.NormalDetails{PaymentRequest: "lnbc1out"}, p.Details)
	assert.Equal(t, &payments.SucceededStatus{Preimage: preimage, CompletedAt: at(900)}, p.Status)

	require.Len(t, p.Parts, 1)
	assert.Equal(t, partID, p.Parts[0].ID)
	assert.Equal(t, []payments.Hop{{NodeID: a, NextNodeID: b, ShortChannelID: lnwire.NewShortChanIDFromInt(77)}}, p.Parts[0].Route)
	assert.Equal(t, &payments.PartSucceeded{Preimage: preimage, CompletedAt: at(800)}, p.Parts[0].Status)
}

func TestConvertOutgoing_PendingAndMissingCompletion(t *testing.T) {
	id := uuid.New()
	hash := lntypes.Hash(sha256.Sum256([]byte("pending")))
	base := outgoingRow{
		ID:              id.String(),
		RecipientAmount: 1,
		RecipientNodeID: vertex(9).String(),
		PaymentHash:     hash[:],
		DetailsType:     string(codec.TagKeysendDetailsV0),
		CreatedAt:       at(5),
	}

	p, err := convertOutgoing(base, nil)
	require.NoError(t, err)
	assert.Equal(t, &payments.PendingStatus{}, p.Status)

	failed := base
	failed.StatusType = string(codec.TagFailedV0)
	failed.StatusBlob = []byte(`{"reason":"RecipientUnreachable"}`)
	p, err = convertOutgoing(failed, nil)
	require.NoError(t, err)
	assert.Equal(t, &payments.FailedStatus{Reason: payments.FailureRecipientUnreachable, CompletedAt: at(5)}, p.Status)
}

func TestConvertOutgoing_Malformed(t *testing.T) {
	hash := lntypes.Hash(sha256.Sum256([]byte("malformed")))
	good := outgoingRow{
		ID:              uuid.NewString(),
		RecipientNodeID: vertex(1).String(),
		PaymentHash:     hash[:],
		DetailsType:     string(codec.TagNormalDetailsV0),
		DetailsBlob:     []byte(`{"paymentRequest":"x"}`),
		CreatedAt:       at(0),
	}

	tests := []struct {
		name   string
		mutate func(r *outgoingRow)
		parts  []outgoingPartRow
	}{
		{"bad id", func(r *outgoingRow) { r.ID = "not-a-uuid" }, nil},
		{"bad recipient", func(r *outgoingRow) { r.RecipientNodeID = "zz" }, nil},
		{"bad hash", func(r *outgoingRow) { r.PaymentHash = []byte{1, 2} }, nil},
		{"unknown details", func(r *outgoingRow) { r.DetailsType = "NORMAL_V9" }, nil},
		{"bad route", func(r *outgoingRow) {}, []outgoingPartRow{{ID: uuid.NewString(), Route: "a,b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			tt.mutate(&r)
			_, err := convertOutgoing(r, tt.parts)
			assert.Error(t, err)
		})
	}
}

func TestConvertOnChain(t *testing.T) {
	id := uuid.New()
	channel := sha256.Sum256([]byte("close"))
	tx := sha256.Sum256([]byte("close-tx"))

	row := onChainRow{
		Kind:             payments.KindChannelCloseOutgoing,
		ID:               id.String(),
		RecipientAmount:  120_000,
		Address:          "bc1qclose",
		IsDefaultAddress: true,
		MiningFee:        300,
		ChannelID:        channel[:],
		TxID:             tx[:],
		ClosingInfoType:  string(codec.TagCloseInfoV0),
		ClosingInfoBlob:  []byte(`{"closingType":"Mutual"}`),
		CreatedAt:        at(0),
		ConfirmedAt:      ptr(at(60)),
	}

	p, err := convertOnChain(row)
	require.NoError(t, err)
	closing, ok := p.(*payments.ChannelCloseOutgoingPayment)
	require.True(t, ok)
	assert.Equal(t, id, closing.ID)
	assert.Equal(t, btcutil.Amount(120_000), closing.RecipientAmount)
	assert.True(t, closing.IsSentToDefaultAddress)
	assert.Equal(t, payments.ClosingMutual, closing.ClosingType)
	assert.Equal(t, chainhash.Hash(tx), closing.TxID)
	assert.Equal(t, lnwire.ChannelID(channel), closing.ChannelID)
	require.NotNil(t, closing.ConfirmedAt)
	assert.Equal(t, at(60), *closing.ConfirmedAt)
	assert.Nil(t, closing.LockedAt)
}

func TestConvertOnChain_Liquidity(t *testing.T) {
	channel := sha256.Sum256([]byte("liquidity"))
	tx := sha256.Sum256([]byte("liquidity-tx"))
	purchase := &payments.StandardPurchase{Amount: 100_000, MiningFee: 400, ServiceFee: 1_000}
	tag, blob, err := codec.Purchases.Encode(purchase)
	require.NoError(t, err)

	p, err := convertOnChain(onChainRow{
		Kind:         payments.KindInboundLiquidityOutgoing,
		ID:           uuid.NewString(),
		MiningFee:    400,
		ChannelID:    channel[:],
		TxID:         tx[:],
		PurchaseType: string(tag),
		PurchaseBlob: blob,
		CreatedAt:    at(0),
	})
	require.NoError(t, err)
	liquidity, ok := p.(*payments.InboundLiquidityOutgoingPayment)
	require.True(t, ok)
	assert.Equal(t, purchase, liquidity.Purchase)
}

func TestConvertOnChain_Invalid(t *testing.T) {
	channel := sha256.Sum256([]byte("c"))
	tx := sha256.Sum256([]byte("t"))
	good := onChainRow{
		Kind:      payments.KindSpliceCpfpOutgoing,
		ID:        uuid.NewString(),
		ChannelID: channel[:],
		TxID:      tx[:],
		CreatedAt: at(0),
	}

	_, err := convertOnChain(good)
	require.NoError(t, err)

	short := good
	short.ChannelID = channel[:31]
	_, err = convertOnChain(short)
	assert.Error(t, err)

	badTx := good
	badTx.TxID = tx[:8]
	_, err = convertOnChain(badTx)
	assert.Error(t, err)

	wrongKind := good
	wrongKind.Kind = payments.KindIncoming
	_, err = convertOnChain(wrongKind)
	assert.ErrorIs(t, err, payments.ErrInvalidIdentity)
}

func TestConvertLink_RekeysIdentities(t *testing.T) {
	tx := sha256.Sum256([]byte("link"))
	hash := lntypes.Hash(sha256.Sum256([]byte("incoming")))
	id := uuid.New()

	incoming, err := convertLink(linkRow{
		TxID:        tx[:],
		Type:        int64(payments.KindIncoming),
		ID:          hex.EncodeToString(hash[:]),
		ConfirmedAt: ptr(at(7)),
	})
	require.NoError(t, err)
	assert.Equal(t, payments.IncomingID(hash), incoming.Identity)
	assert.Equal(t, chainhash.Hash(tx), incoming.TxID)
	require.NotNil(t, incoming.ConfirmedAt)
	assert.Equal(t, at(7), *incoming.ConfirmedAt)

	splice, err := convertLink(linkRow{
		TxID: tx[:],
		Type: int64(payments.KindSpliceOutgoing),
		ID:   id.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, payments.NewIdentity(payments.KindSpliceOutgoing, id), splice.Identity)

	_, err = convertLink(linkRow{TxID: tx[:], Type: 99, ID: id.String()})
	assert.ErrorIs(t, err, payments.ErrInvalidIdentity)
}

func TestConvertMetadata(t *testing.T) {
	id := uuid.New()
	m, err := convertMetadata(metadataRow{
		Type:       int64(payments.KindLightningOutgoing),
		ID:         id.String(),
		ExternalID: "order-1",
		WebhookURL: "https://example.com/hook",
		CreatedAt:  at(3),
	})
	require.NoError(t, err)
	assert.Equal(t, payments.Metadata{
		Identity:   payments.NewIdentity(payments.KindLightningOutgoing, id),
		ExternalID: "order-1",
		WebhookURL: "https://example.com/hook",
		CreatedAt:  at(3),
	}, m)
}

func TestUpgradePurchase(t *testing.T) {
	tag, blob, err := upgradePurchase(string(codec.TagLeaseV0),
		[]byte(`{"amount":200000,"miningFee":500,"serviceFee":2000,"sellerSig":"00ff"}`))
	require.NoError(t, err)
	assert.Equal(t, codec.TagStandardPurchaseV1, tag)

	purchase, err := codec.Purchases.Decode(tag, blob)
	require.NoError(t, err)
	assert.Equal(t, &payments.StandardPurchase{Amount: 200_000, MiningFee: 500, ServiceFee: 2_000}, purchase)

	_, _, err = upgradePurchase("LEASE_V9", nil)
	assert.ErrorIs(t, err, codec.ErrUnrecognizedTag)
}

func TestStats_Tables(t *testing.T) {
	s := newStats(2, 3)
	s.read("outgoing_payments", 4)
	s.written("outgoing_payments", 4)
	s.written("incoming_payment_parts", 9)
	s.read("incoming_payments", 3)

	assert.Equal(t, []string{"incoming_payment_parts", "incoming_payments", "outgoing_payments"}, s.Tables())
	assert.Equal(t, 4, s.Read["outgoing_payments"])
	assert.Equal(t, 0, s.Read["incoming_payment_parts"])
}
