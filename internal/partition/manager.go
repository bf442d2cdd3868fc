package partition

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// Manager runs the compression cycle: it finds chunks older than their
// domain's compression delay and moves their rows into compressed segments.
type Manager struct {
	pool *pgxpool.Pool
	log  *logger.Logger

	// maxChunksPerCycle bounds a cycle so it finishes before the next
	// scheduled run.
	maxChunksPerCycle int
}

// NewManager creates a compression manager.
func NewManager(pool *pgxpool.Pool, log *logger.Logger, maxChunksPerCycle int) *Manager {
	return &Manager{
		pool:              pool,
		log:               log,
		maxChunksPerCycle: maxChunksPerCycle,
	}
}

// CycleResult summarizes one compression cycle.
type CycleResult struct {
	ChunksCompressed int
	RowsCompressed   int64
}

// RunCycle compresses due chunks across every domain, oldest first, up to
// the per-cycle budget. The cycle stops between chunks when ctx is done.
func (m *Manager) RunCycle(ctx context.Context) (*CycleResult, error) {
	now := time.Now().UTC()
	result := &CycleResult{}
	budget := m.maxChunksPerCycle

	for _, domain := range contracts.Domains {
		if budget <= 0 {
			break
		}

		policy, err := PolicyFor(domain)
		if err != nil {
			return result, err
		}

		starts, err := ListCompressible(ctx, m.pool, policy, now, budget)
		if err != nil {
			return result, err
		}

		for _, chunkStart := range starts {
			if err := ctx.Err(); err != nil {
				m.log.Warn("compression cycle aborted")
				return result, err
			}

			rows, err := m.CompressChunk(ctx, domain, chunkStart)
			if err != nil {
				return result, fmt.Errorf("compress %s chunk %s: %w",
					domain, chunkStart.Format("2006-01-02"), err)
			}
			result.ChunksCompressed++
			result.RowsCompressed += rows
			budget--
		}
	}

	m.log.WithFields(map[string]interface{}{
		"chunks": result.ChunksCompressed,
		"rows":   result.RowsCompressed,
	}).Info("Compression cycle finished")

	return result, nil
}

// CompressChunk moves one chunk's live rows into per-series segments. The
// chunk lock is held exclusively for the duration, so no append lands in
// the chunk mid-compression; reads are not blocked.
func (m *Manager) CompressChunk(ctx context.Context, domain contracts.Domain, chunkStart time.Time) (int64, error) {
	policy, err := PolicyFor(domain)
	if err != nil {
		return 0, err
	}
	chunkEnd := policy.Width.End(chunkStart)

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := LockChunkExclusive(ctx, tx, domain, chunkStart); err != nil {
		return 0, err
	}

	// A concurrent cycle may have won the lock first.
	chunk, err := GetChunk(ctx, tx, domain, chunkStart)
	if err != nil {
		return 0, err
	}
	if chunk == nil || chunk.Compressed() {
		return 0, nil
	}

	rows, err := m.liveRowsBySeries(ctx, tx, domain, chunkStart, chunkEnd)
	if err != nil {
		return 0, err
	}

	var total int64
	for seriesID, obs := range rows {
		// Merge with any segment left behind by an earlier late-revision
		// decompress-append path.
		existing, err := SegmentRowsForUpdate(ctx, tx, domain, seriesID, chunkStart)
		if err != nil {
			return 0, err
		}
		merged := append(existing, obs...)

		if err := WriteSegment(ctx, tx, domain, seriesID, chunkStart, merged); err != nil {
			return 0, err
		}
		total += int64(len(obs))
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM %s WHERE observation_date >= $1 AND observation_date < $2`,
		Table(domain))
	if _, err := tx.Exec(ctx, deleteQuery, chunkStart, chunkEnd); err != nil {
		return 0, fmt.Errorf("failed to delete live rows: %w", err)
	}

	if err := MarkCompressed(ctx, tx, domain, chunkStart); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit compression: %w", err)
	}

	m.log.WithFields(map[string]interface{}{
		"domain": domain,
		"chunk":  chunkStart.Format("2006-01-02"),
		"rows":   total,
	}).Debug("Chunk compressed")

	return total, nil
}

// liveRowsBySeries reads a chunk's live rows grouped by series.
func (m *Manager) liveRowsBySeries(ctx context.Context, q Querier, domain contracts.Domain, chunkStart, chunkEnd time.Time) (map[int64][]contracts.Observation, error) {
	query := fmt.Sprintf(`
		SELECT series_id, observation_date, value, release_time, revision, source
		FROM %s
		WHERE observation_date >= $1 AND observation_date < $2
		ORDER BY series_id, observation_date DESC, revision DESC
	`, Table(domain))

	rows, err := q.Query(ctx, query, chunkStart, chunkEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk rows: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]contracts.Observation)
	for rows.Next() {
		var o contracts.Observation
		if err := rows.Scan(
			&o.SeriesID, &o.ObservationDate, &o.Value, &o.ReleaseTime, &o.Revision, &o.Source,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		out[o.SeriesID] = append(out[o.SeriesID], o)
	}
	return out, rows.Err()
}
