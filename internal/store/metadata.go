// ABOUTME: Payment metadata: external id and webhook url keyed by payment identity
// ABOUTME: Inserts are idempotent; the first annotation written for a payment wins

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/2389/lnledger/internal/payments"
)

// InsertMetadata annotates an existing payment. A second insert for the same
// identity is ignored. Returns ErrUnknownParent if the payment is missing.
func (s *SQLiteStore) InsertMetadata(ctx context.Context, m payments.Metadata) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := identityExists(ctx, tx, m.Identity)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownParent, m.Identity)
		}
		return insertMetadata(ctx, tx, m)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("inserted metadata", "id", m.Identity, "external_id", m.ExternalID)
	return nil
}

func insertMetadata(ctx context.Context, q querier, m payments.Metadata) error {
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO payments_metadata (type, id, external_id, webhook_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		int64(m.Identity.Kind),
		m.Identity.Key(),
		nullString(m.ExternalID),
		nullString(m.WebhookURL),
		toMillis(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting metadata: %w", err)
	}
	return nil
}

// insertMetadataFor stores meta for a payment being created in the same
// transaction, defaulting its creation time to the payment's.
func insertMetadataFor(ctx context.Context, q querier, id payments.Identity, createdAt time.Time, meta *payments.Metadata) error {
	m := *meta
	m.Identity = id
	if m.CreatedAt.IsZero() {
		m.CreatedAt = createdAt
	}
	return insertMetadata(ctx, q, m)
}

// GetMetadata returns the annotation of a payment, or ErrNotFound.
func (s *SQLiteStore) GetMetadata(ctx context.Context, id payments.Identity) (*payments.Metadata, error) {
	var (
		externalID sql.NullString
		webhookURL sql.NullString
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id, webhook_url, created_at FROM payments_metadata
		WHERE type = ? AND id = ?
	`, int64(id.Kind), id.Key()).Scan(&externalID, &webhookURL, &createdAt)
	if err != nil {
		return nil, notFound(err, "metadata")
	}

	return &payments.Metadata{
		Identity:   id,
		ExternalID: externalID.String,
		WebhookURL: webhookURL.String,
		CreatedAt:  fromMillis(createdAt),
	}, nil
}
