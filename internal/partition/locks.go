package partition

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// Advisory lock scheme:
//   - every append takes the chunk lock SHARED, so independent series write
//     in parallel within a chunk;
//   - compression takes the chunk lock EXCLUSIVE, so it never races a write
//     into the chunk (reads are unaffected — they take no lock);
//   - every append additionally takes an EXCLUSIVE per-key lock, so
//     revisions of one (series, observation_date) are linearized.
// All locks are transaction-scoped and release on commit/rollback.

func advisoryKey(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

func chunkLockKey(domain contracts.Domain, chunkStart time.Time) int64 {
	return advisoryKey("chunk", string(domain), chunkStart.UTC().Format("2006-01-02"))
}

func appendLockKey(domain contracts.Domain, seriesID int64, date time.Time) int64 {
	return advisoryKey("append", string(domain),
		fmt.Sprintf("%d", seriesID), date.UTC().Format("2006-01-02"))
}

// LockChunkShared takes the chunk lock in shared mode for an append.
func LockChunkShared(ctx context.Context, tx pgx.Tx, domain contracts.Domain, chunkStart time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, chunkLockKey(domain, chunkStart))
	if err != nil {
		return fmt.Errorf("failed to take shared chunk lock: %w", err)
	}
	return nil
}

// LockChunkExclusive takes the chunk lock exclusively for compression.
func LockChunkExclusive(ctx context.Context, tx pgx.Tx, domain contracts.Domain, chunkStart time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chunkLockKey(domain, chunkStart))
	if err != nil {
		return fmt.Errorf("failed to take exclusive chunk lock: %w", err)
	}
	return nil
}

// LockAppendKey linearizes appends to one (series, observation_date).
func LockAppendKey(ctx context.Context, tx pgx.Tx, domain contracts.Domain, seriesID int64, date time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey(domain, seriesID, date))
	if err != nil {
		return fmt.Errorf("failed to take append key lock: %w", err)
	}
	return nil
}
