// Package registry owns series and instrument reference data. Observation
// domains reference both by id only; nothing outside this package writes
// the reference tables.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// SeriesRepository handles series metadata persistence.
type SeriesRepository struct {
	pool *pgxpool.Pool
}

// NewSeriesRepository creates a new series repository.
func NewSeriesRepository(pool *pgxpool.Pool) *SeriesRepository {
	return &SeriesRepository{pool: pool}
}

const seriesColumns = `id, source, code, name, description, frequency, country, unit,
	is_revisable, release_lag_days, release_timezone, created_at`

// Create inserts a new series. The (source, code) natural key must be
// unique; a duplicate fails with ErrDuplicateNaturalKey.
func (r *SeriesRepository) Create(ctx context.Context, s *contracts.SeriesMetadata) error {
	query := `
		INSERT INTO refdata.series (
			source, code, name, description, frequency, country, unit,
			is_revisable, release_lag_days, release_timezone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		s.Source, s.Code, s.Name, s.Description, s.Frequency, s.Country, s.Unit,
		s.IsRevisable, s.ReleaseLagDays, s.ReleaseTimezone,
	).Scan(&s.ID, &s.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("series %s: %w", s.Key(), contracts.ErrDuplicateNaturalKey)
	}
	if err != nil {
		return fmt.Errorf("failed to create series: %w", err)
	}
	return nil
}

// GetByID retrieves a series by surrogate id.
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (*contracts.SeriesMetadata, error) {
	query := `SELECT ` + seriesColumns + ` FROM refdata.series WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByKey retrieves a series by its (source, code) natural key.
func (r *SeriesRepository) GetByKey(ctx context.Context, source, code string) (*contracts.SeriesMetadata, error) {
	query := `SELECT ` + seriesColumns + ` FROM refdata.series WHERE source = $1 AND code = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, source, code))
}

// List retrieves all series ordered by natural key.
func (r *SeriesRepository) List(ctx context.Context) ([]*contracts.SeriesMetadata, error) {
	query := `SELECT ` + seriesColumns + ` FROM refdata.series ORDER BY source, code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var out []*contracts.SeriesMetadata
	for rows.Next() {
		var s contracts.SeriesMetadata
		if err := rows.Scan(
			&s.ID, &s.Source, &s.Code, &s.Name, &s.Description, &s.Frequency,
			&s.Country, &s.Unit, &s.IsRevisable, &s.ReleaseLagDays,
			&s.ReleaseTimezone, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Correct applies an administrative correction. Only name and description
// are correctable; everything else is immutable after creation.
func (r *SeriesRepository) Correct(ctx context.Context, id int64, name, description string) error {
	query := `UPDATE refdata.series SET name = $1, description = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, name, description, id)
	if err != nil {
		return fmt.Errorf("failed to correct series: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("series %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

func (r *SeriesRepository) scanOne(row pgx.Row) (*contracts.SeriesMetadata, error) {
	var s contracts.SeriesMetadata
	err := row.Scan(
		&s.ID, &s.Source, &s.Code, &s.Name, &s.Description, &s.Frequency,
		&s.Country, &s.Unit, &s.IsRevisable, &s.ReleaseLagDays,
		&s.ReleaseTimezone, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return &s, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
