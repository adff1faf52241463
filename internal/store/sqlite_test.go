// ABOUTME: Tests for SQLite store setup and shared fixtures for the store test suite
// ABOUTME: Covers database creation, schema version, and helpers that build sample payments

package store

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/migrate"
	"github.com/2389/lnledger/internal/payments"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(context.Background(), dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// at returns a millisecond precision timestamp, matching what the store reads back.
func at(ms int64) time.Time {
	return time.UnixMilli(1_700_000_000_000 + ms)
}

func testPreimage(seed string) lntypes.Preimage {
	return lntypes.Preimage(sha256.Sum256([]byte(seed)))
}

func testHash(seed string) lntypes.Hash {
	p := testPreimage(seed)
	return p.Hash()
}

func testTxID(seed string) chainhash.Hash {
	return chainhash.Hash(sha256.Sum256([]byte("tx-" + seed)))
}

func testChannelID(seed string) lnwire.ChannelID {
	return lnwire.ChannelID(sha256.Sum256([]byte("chan-" + seed)))
}

func testVertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x02
	for i := 1; i < len(v); i++ {
		v[i] = b
	}
	return v
}

func newInvoicePayment(seed string, createdAt time.Time) *payments.IncomingPayment {
	return payments.NewIncomingPayment(testPreimage(seed), &payments.InvoiceOrigin{
		PaymentRequest: "lnbc1" + seed,
	}, createdAt)
}

func htlcPart(amount lnwire.MilliSatoshi, receivedAt time.Time) *payments.HtlcPart {
	return &payments.HtlcPart{
		Amount:     amount,
		ChannelID:  testChannelID("htlc"),
		HtlcID:     uint64(amount),
		ReceivedAt: receivedAt,
	}
}

func newLightningPayment(seed string, createdAt time.Time) *payments.LightningOutgoingPayment {
	return &payments.LightningOutgoingPayment{
		ID:              uuid.New(),
		PaymentHash:     testHash(seed),
		Recipient:       testVertex(0xaa),
		RecipientAmount: 50_000,
		Details:         &payments.NormalDetails{PaymentRequest: "lnbc500n1" + seed},
		Status:          &payments.PendingStatus{},
		CreatedAt:       createdAt,
	}
}

func routePart(amount lnwire.MilliSatoshi, createdAt time.Time) payments.OutgoingPart {
	return payments.OutgoingPart{
		ID:     uuid.New(),
		Amount: amount,
		Route: []payments.Hop{
			{NodeID: testVertex(0x01), NextNodeID: testVertex(0x02), ShortChannelID: lnwire.NewShortChanIDFromInt(700_000<<40 | 12<<16 | 1)},
			{NodeID: testVertex(0x02), NextNodeID: testVertex(0xaa), ShortChannelID: lnwire.NewShortChanIDFromInt(710_000<<40 | 3<<16)},
		},
		CreatedAt: createdAt,
		Status:    &payments.PartPending{},
	}
}

func newSplicePayment(seed string, createdAt time.Time) *payments.SpliceOutgoingPayment {
	return &payments.SpliceOutgoingPayment{
		OnChainState: payments.OnChainState{
			ID:        uuid.New(),
			MiningFee: 350,
			ChannelID: testChannelID(seed),
			TxID:      testTxID(seed),
			CreatedAt: createdAt,
		},
		RecipientAmount: 120_000,
		Address:         "bc1qsplice" + seed,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file was not created")

	version, err := migrate.Version(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, migrate.CurrentVersion, version)
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(ctx, dbPath)
	require.NoError(t, err)
	p := newInvoicePayment("reopen", at(0))
	require.NoError(t, store.AddIncomingPayment(ctx, p, nil))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetIncomingPayment(ctx, p.PaymentHash)
	require.NoError(t, err)
	assert.Equal(t, p.PaymentHash, got.PaymentHash)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, defaultListLimit, clampLimit(-5))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxListLimit, clampLimit(maxListLimit+1))
}
