// Package obstore is the revisioned, as-of-queryable observation store.
// Observations are append-only: a correction inserts a new revision, and
// reads reconstruct either the latest state or the state as known at a
// given knowledge time.
package obstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/internal/registry"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// Store provides append and read access to every observation domain.
type Store struct {
	pool     *pgxpool.Pool
	registry *registry.Registry
	log      *logger.Logger
}

// New creates an observation store.
func New(pool *pgxpool.Pool, reg *registry.Registry, log *logger.Logger) *Store {
	return &Store{pool: pool, registry: reg, log: log}
}

// AppendRequest is one incoming observation from a connector. The connector
// has already resolved the series code to SeriesID via the registry.
type AppendRequest struct {
	SeriesID        int64     `json:"series_id"`
	ObservationDate time.Time `json:"observation_date"`
	Value           float64   `json:"value"`
	ReleaseTime     time.Time `json:"release_time"`
	Source          string    `json:"source"`
}

// Append stores a new revision for (series, observation_date), assigning
// the next revision number (0 for the first). It fails with
// ErrOutOfOrderRevision when release time regresses, ErrRevisionNotAllowed
// when the series is non-revisable and a revision exists, and
// ErrDuplicateNaturalKey when a concurrent writer won the same revision
// number. On any failure the store is unchanged.
func (s *Store) Append(ctx context.Context, domain contracts.Domain, req AppendRequest) (*contracts.Observation, error) {
	policy, err := partition.PolicyFor(domain)
	if err != nil {
		return nil, err
	}

	meta, err := s.registry.Series(ctx, req.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("series %d: %w", req.SeriesID, err)
	}

	obs := contracts.Observation{
		SeriesID:        req.SeriesID,
		ObservationDate: req.ObservationDate,
		Value:           req.Value,
		ReleaseTime:     req.ReleaseTime.UTC(),
		Source:          req.Source,
	}
	obs.ObservationDate = obs.DateKey()
	chunkStart := policy.Width.Start(obs.ObservationDate)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Linearize same-key appends; share the chunk with other series.
	if err := partition.LockAppendKey(ctx, tx, domain, obs.SeriesID, obs.ObservationDate); err != nil {
		return nil, err
	}
	if err := partition.LockChunkShared(ctx, tx, domain, chunkStart); err != nil {
		return nil, err
	}

	chunk, err := partition.GetChunk(ctx, tx, domain, chunkStart)
	if err != nil {
		return nil, err
	}

	if chunk.Compressed() {
		err = s.appendCompressed(ctx, tx, domain, chunkStart, meta, &obs)
	} else {
		err = s.appendLive(ctx, tx, domain, meta, &obs)
	}
	if err != nil {
		return nil, err
	}

	if err := partition.TouchChunk(ctx, tx, policy, obs.ObservationDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", err)
	}
	return &obs, nil
}

// appendLive inserts into the domain's live table.
func (s *Store) appendLive(ctx context.Context, tx pgx.Tx, domain contracts.Domain, meta *contracts.SeriesMetadata, obs *contracts.Observation) error {
	query := fmt.Sprintf(`
		SELECT revision, release_time
		FROM %s
		WHERE series_id = $1 AND observation_date = $2
		ORDER BY revision DESC
		LIMIT 1
	`, partition.Table(domain))

	var latest *contracts.Observation
	var rev int
	var releaseTime time.Time
	err := tx.QueryRow(ctx, query, obs.SeriesID, obs.ObservationDate).Scan(&rev, &releaseTime)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first revision
	case err != nil:
		return fmt.Errorf("failed to read latest revision: %w", err)
	default:
		latest = &contracts.Observation{Revision: rev, ReleaseTime: releaseTime}
	}

	if err := assignRevision(obs, latest, meta); err != nil {
		return err
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (series_id, observation_date, value, release_time, revision, source)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, partition.Table(domain))

	_, err = tx.Exec(ctx, insert,
		obs.SeriesID, obs.ObservationDate, obs.Value, obs.ReleaseTime, obs.Revision, obs.Source)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s series %d %s rev %d: %w", domain, obs.SeriesID,
			obs.ObservationDate.Format("2006-01-02"), obs.Revision, contracts.ErrDuplicateNaturalKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// appendCompressed handles a late revision into an already-compressed
// chunk: the series' segment is decompressed, the row merged in, and the
// segment recompressed, all inside the append transaction.
func (s *Store) appendCompressed(ctx context.Context, tx pgx.Tx, domain contracts.Domain, chunkStart time.Time, meta *contracts.SeriesMetadata, obs *contracts.Observation) error {
	rows, err := partition.SegmentRowsForUpdate(ctx, tx, domain, obs.SeriesID, chunkStart)
	if err != nil {
		return err
	}

	var latest *contracts.Observation
	for i := range rows {
		if !rows[i].ObservationDate.Equal(obs.ObservationDate) {
			continue
		}
		if latest == nil || rows[i].Revision > latest.Revision {
			latest = &rows[i]
		}
	}

	if err := assignRevision(obs, latest, meta); err != nil {
		return err
	}

	rows = append(rows, *obs)
	if err := partition.WriteSegment(ctx, tx, domain, obs.SeriesID, chunkStart, rows); err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"domain": domain,
		"series": obs.SeriesID,
		"date":   obs.ObservationDate.Format("2006-01-02"),
		"rev":    obs.Revision,
	}).Debug("Late revision merged into compressed chunk")

	return nil
}

// assignRevision validates the revision-ordering invariants against the
// latest stored revision (nil if none) and stamps the next revision number.
func assignRevision(obs *contracts.Observation, latest *contracts.Observation, meta *contracts.SeriesMetadata) error {
	if latest == nil {
		obs.Revision = 0
		return nil
	}

	if !meta.IsRevisable {
		return fmt.Errorf("series %s: %w", meta.Key(), contracts.ErrRevisionNotAllowed)
	}
	if obs.ReleaseTime.Before(latest.ReleaseTime) {
		return fmt.Errorf("release %s precedes stored %s: %w",
			obs.ReleaseTime.Format(time.RFC3339), latest.ReleaseTime.Format(time.RFC3339),
			contracts.ErrOutOfOrderRevision)
	}
	obs.Revision = latest.Revision + 1
	return nil
}

// ReadCurrent returns the highest-revision row for (series, date), or
// ErrNotFound.
func (s *Store) ReadCurrent(ctx context.Context, domain contracts.Domain, seriesID int64, date time.Time) (*contracts.Observation, error) {
	policy, err := partition.PolicyFor(domain)
	if err != nil {
		return nil, err
	}
	date = midnight(date)

	chunk, err := partition.GetChunk(ctx, s.pool, domain, policy.Width.Start(date))
	if err != nil {
		return nil, err
	}

	if chunk.Compressed() {
		rows, err := partition.SegmentRowsInRange(ctx, s.pool, domain, seriesID, date, date)
		if err != nil {
			return nil, err
		}
		best := pickCurrent(rows, date)
		if best == nil {
			return nil, contracts.ErrNotFound
		}
		return best, nil
	}

	query := fmt.Sprintf(`
		SELECT series_id, observation_date, value, release_time, revision, source
		FROM %s
		WHERE series_id = $1 AND observation_date = $2
		ORDER BY revision DESC
		LIMIT 1
	`, partition.Table(domain))

	var o contracts.Observation
	err = s.pool.QueryRow(ctx, query, seriesID, date).Scan(
		&o.SeriesID, &o.ObservationDate, &o.Value, &o.ReleaseTime, &o.Revision, &o.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current observation: %w", err)
	}
	return &o, nil
}

// ReadAsOf returns, for every observation date in [from, to], the highest
// revision released at or before knowledgeTime. Dates with no qualifying
// revision are absent from the result: a missing point means "not yet
// released", never zero. Rows are ordered by observation date ascending.
func (s *Store) ReadAsOf(ctx context.Context, domain contracts.Domain, seriesID int64, from, to, knowledgeTime time.Time) ([]contracts.Observation, error) {
	if !domain.Valid() {
		return nil, fmt.Errorf("unknown domain %q", domain)
	}
	from, to = midnight(from), midnight(to)

	// Live rows: highest qualifying revision per date.
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (observation_date)
			series_id, observation_date, value, release_time, revision, source
		FROM %s
		WHERE series_id = $1
		  AND observation_date BETWEEN $2 AND $3
		  AND release_time <= $4
		ORDER BY observation_date, revision DESC
	`, partition.Table(domain))

	rows, err := s.pool.Query(ctx, query, seriesID, from, to, knowledgeTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query as-of observations: %w", err)
	}
	defer rows.Close()

	byDate := make(map[int64]contracts.Observation)
	for rows.Next() {
		var o contracts.Observation
		if err := rows.Scan(&o.SeriesID, &o.ObservationDate, &o.Value, &o.ReleaseTime, &o.Revision, &o.Source); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		byDate[o.ObservationDate.Unix()] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Compressed rows for chunks overlapping the range.
	segRows, err := partition.SegmentRowsInRange(ctx, s.pool, domain, seriesID, from, to)
	if err != nil {
		return nil, err
	}
	for _, o := range segRows {
		if o.ObservationDate.Before(from) || o.ObservationDate.After(to) || !o.KnownAt(knowledgeTime) {
			continue
		}
		key := o.ObservationDate.Unix()
		if existing, ok := byDate[key]; !ok || o.Revision > existing.Revision {
			byDate[key] = o
		}
	}

	out := make([]contracts.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ObservationDate.Before(out[j].ObservationDate)
	})
	return out, nil
}

// pickCurrent returns the highest revision for date among rows, or nil.
func pickCurrent(rows []contracts.Observation, date time.Time) *contracts.Observation {
	var best *contracts.Observation
	for i := range rows {
		if !rows[i].ObservationDate.Equal(date) {
			continue
		}
		if best == nil || rows[i].Revision > best.Revision {
			best = &rows[i]
		}
	}
	return best
}

func midnight(d time.Time) time.Time {
	y, m, day := d.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
