package partition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
// Chunk bookkeeping runs inside the caller's transaction when the caller has
// one (appends), and against the pool otherwise (reads).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Chunk is one row of obs.chunks.
type Chunk struct {
	Domain       contracts.Domain
	ChunkStart   time.Time
	ChunkEnd     time.Time
	RowCount     int64
	CompressedAt *time.Time
}

// Compressed reports whether the chunk's rows live in obs.segments.
func (c *Chunk) Compressed() bool {
	return c != nil && c.CompressedAt != nil
}

// GetChunk returns the chunk registry row, or nil when the chunk has never
// been written.
func GetChunk(ctx context.Context, q Querier, domain contracts.Domain, chunkStart time.Time) (*Chunk, error) {
	query := `
		SELECT domain, chunk_start, chunk_end, row_count, compressed_at
		FROM obs.chunks
		WHERE domain = $1 AND chunk_start = $2
	`

	var c Chunk
	err := q.QueryRow(ctx, query, domain, chunkStart).Scan(
		&c.Domain, &c.ChunkStart, &c.ChunkEnd, &c.RowCount, &c.CompressedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &c, nil
}

// TouchChunk records one appended row against the chunk containing date,
// creating the registry row on first write.
func TouchChunk(ctx context.Context, q Querier, policy Policy, date time.Time) error {
	start := policy.Width.Start(date)
	end := policy.Width.End(start)

	query := `
		INSERT INTO obs.chunks (domain, chunk_start, chunk_end, row_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (domain, chunk_start) DO UPDATE SET
			row_count = obs.chunks.row_count + 1
	`

	if _, err := q.Exec(ctx, query, policy.Domain, start, end); err != nil {
		return fmt.Errorf("failed to touch chunk: %w", err)
	}
	return nil
}

// ListCompressible returns live chunk starts whose age exceeds the domain's
// compression delay at time now, oldest first.
func ListCompressible(ctx context.Context, q Querier, policy Policy, now time.Time, limit int) ([]time.Time, error) {
	cutoff := now.Add(-policy.CompressionDelay)

	query := `
		SELECT chunk_start
		FROM obs.chunks
		WHERE domain = $1 AND compressed_at IS NULL AND chunk_end <= $2
		ORDER BY chunk_start ASC
		LIMIT $3
	`

	rows, err := q.Query(ctx, query, policy.Domain, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list compressible chunks: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var s time.Time
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan chunk start: %w", err)
		}
		starts = append(starts, s)
	}
	return starts, rows.Err()
}

// MarkCompressed stamps the chunk as compressed.
func MarkCompressed(ctx context.Context, q Querier, domain contracts.Domain, chunkStart time.Time) error {
	query := `
		UPDATE obs.chunks
		SET compressed_at = now()
		WHERE domain = $1 AND chunk_start = $2
	`

	if _, err := q.Exec(ctx, query, domain, chunkStart); err != nil {
		return fmt.Errorf("failed to mark chunk compressed: %w", err)
	}
	return nil
}

// SegmentRowsForUpdate loads and decodes one series' segment of a chunk,
// locking the segment row against concurrent writers. Returns nil rows when
// no segment exists yet for that series.
func SegmentRowsForUpdate(ctx context.Context, tx pgx.Tx, domain contracts.Domain, seriesID int64, chunkStart time.Time) ([]contracts.Observation, error) {
	query := `
		SELECT data
		FROM obs.segments
		WHERE domain = $1 AND chunk_start = $2 AND series_id = $3
		FOR UPDATE
	`

	var blob []byte
	err := tx.QueryRow(ctx, query, domain, chunkStart, seriesID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segment: %w", err)
	}
	return decodeSegment(blob)
}

// WriteSegment re-encodes and upserts one series' segment of a chunk.
func WriteSegment(ctx context.Context, q Querier, domain contracts.Domain, seriesID int64, chunkStart time.Time, obs []contracts.Observation) error {
	blob, rawLen, err := encodeSegment(obs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO obs.segments (domain, chunk_start, series_id, row_count, uncompressed_bytes, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (domain, chunk_start, series_id) DO UPDATE SET
			row_count = EXCLUDED.row_count,
			uncompressed_bytes = EXCLUDED.uncompressed_bytes,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := q.Exec(ctx, query, domain, chunkStart, seriesID, len(obs), rawLen, blob); err != nil {
		return fmt.Errorf("failed to write segment: %w", err)
	}
	return nil
}

// SegmentRowsInRange decodes every segment of a series overlapping
// [from, to]. The caller filters to exact dates; segments are chunk-grained.
func SegmentRowsInRange(ctx context.Context, q Querier, domain contracts.Domain, seriesID int64, from, to time.Time) ([]contracts.Observation, error) {
	query := `
		SELECT s.data
		FROM obs.segments s
		JOIN obs.chunks c ON c.domain = s.domain AND c.chunk_start = s.chunk_start
		WHERE s.domain = $1 AND s.series_id = $2
		  AND c.chunk_end > $3 AND s.chunk_start <= $4
		ORDER BY s.chunk_start ASC
	`

	rows, err := q.Query(ctx, query, domain, seriesID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var out []contracts.Observation
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		decoded, err := decodeSegment(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, rows.Err()
}
