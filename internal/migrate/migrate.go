// ABOUTME: Versioned schema migration engine driven by PRAGMA user_version
// ABOUTME: Each step runs in one transaction with its version bump; any failure rolls the step back

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/lnledger/internal/payments"
)

// CurrentVersion is the schema version written by this release.
const CurrentVersion = 3

// ErrMigrationAborted matches every error returned by a failed step.
var ErrMigrationAborted = errors.New("migration aborted")

// ErrSchemaTooNew is returned when the database was written by a newer
// release. Opening it would risk misreading rows.
var ErrSchemaTooNew = errors.New("database schema is newer than this release")

// MigrationError reports the step that failed. It matches
// ErrMigrationAborted and unwraps to the underlying cause.
type MigrationError struct {
	From int
	To   int
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrating schema from v%d to v%d: %v", e.From, e.To, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool { return target == ErrMigrationAborted }

// Writer writes rows in the current layout. The store implements it so
// migrated rows go through the same encoders as live writes.
type Writer interface {
	CreateSchema(ctx context.Context, tx *sql.Tx) error
	WriteIncoming(ctx context.Context, tx *sql.Tx, p *payments.IncomingPayment) error
	WriteOutgoing(ctx context.Context, tx *sql.Tx, p payments.OutgoingPayment) error
	WriteTxLink(ctx context.Context, tx *sql.Tx, link payments.TxLink) error
	WriteMetadata(ctx context.Context, tx *sql.Tx, m payments.Metadata) error
}

// step upgrades the schema from one version to the next.
type step struct {
	from  int
	to    int
	name  string
	apply func(ctx context.Context, tx *sql.Tx, w Writer, stats *Stats) error
}

var steps = []step{
	{from: 1, to: 2, name: "liquidity leases to purchases", apply: migrateV1ToV2},
	{from: 2, to: 3, name: "identity keyed payment tables", apply: migrateV2ToV3},
}

// Version returns the schema version of db. A database created before
// versioning has user_version 0 but holds payment tables; it reports 1. An
// empty database reports 0.
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if version > 0 {
		return version, nil
	}

	var tables int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'incoming_payments'`,
	).Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("inspecting schema: %w", err)
	}
	if tables > 0 {
		return 1, nil
	}
	return 0, nil
}

// Pending lists the steps Run would apply, as "vN -> vM: name".
func Pending(ctx context.Context, db *sql.DB) ([]string, error) {
	version, err := Version(ctx, db)
	if err != nil {
		return nil, err
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("%w: v%d > v%d", ErrSchemaTooNew, version, CurrentVersion)
	}
	if version == 0 {
		return []string{fmt.Sprintf("create schema v%d", CurrentVersion)}, nil
	}

	var pending []string
	for _, s := range steps {
		if s.from >= version {
			pending = append(pending, fmt.Sprintf("v%d -> v%d: %s", s.from, s.to, s.name))
		}
	}
	return pending, nil
}

// Run brings db to CurrentVersion. An empty database gets the current
// schema directly; an older one is upgraded step by step. Each step commits
// on its own, so a failure leaves the database at the last completed
// version and returns a *MigrationError.
func Run(ctx context.Context, db *sql.DB, w Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("subsystem", "migrate")

	version, err := Version(ctx, db)
	if err != nil {
		return err
	}
	if version > CurrentVersion {
		return fmt.Errorf("%w: v%d > v%d", ErrSchemaTooNew, version, CurrentVersion)
	}

	if version == 0 {
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if err := w.CreateSchema(ctx, tx); err != nil {
				return err
			}
			return setVersion(ctx, tx, CurrentVersion)
		})
		if err != nil {
			return &MigrationError{From: 0, To: CurrentVersion, Err: err}
		}
		logger.Info("created schema", "version", CurrentVersion)
		return nil
	}

	for _, s := range steps {
		if s.from < version {
			continue
		}
		if s.from != version {
			return &MigrationError{From: version, To: s.to, Err: fmt.Errorf("no step from v%d", version)}
		}

		stats := newStats(s.from, s.to)
		start := time.Now()
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if err := s.apply(ctx, tx, w, stats); err != nil {
				return err
			}
			return setVersion(ctx, tx, s.to)
		})
		if err != nil {
			logger.Error("migration failed", "from", s.from, "to", s.to, "error", err)
			return &MigrationError{From: s.from, To: s.to, Err: err}
		}
		stats.Duration = time.Since(start)
		stats.log(logger, s.name)
		version = s.to
	}

	if version != CurrentVersion {
		return &MigrationError{From: version, To: CurrentVersion, Err: errors.New("no migration path")}
	}
	return nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func setVersion(ctx context.Context, tx *sql.Tx, version int) error {
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}
