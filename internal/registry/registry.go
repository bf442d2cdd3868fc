package registry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rcampos/macrodesk/internal/calendar"
	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/pkg/redis"
)

// Registry is a read-through cache over the reference repositories. Series
// metadata is read on every append (for the revisability check), so lookups
// go through Redis first and fall back to Postgres. Writes invalidate.
type Registry struct {
	series      *SeriesRepository
	instruments *InstrumentRepository
	cache       *redis.Cache
	ttl         time.Duration
}

// New creates a registry facade.
func New(series *SeriesRepository, instruments *InstrumentRepository, cache *redis.Cache, ttl time.Duration) *Registry {
	return &Registry{
		series:      series,
		instruments: instruments,
		cache:       cache,
		ttl:         ttl,
	}
}

// Series returns series metadata by id, from cache when possible.
func (r *Registry) Series(ctx context.Context, id int64) (*contracts.SeriesMetadata, error) {
	key := "series:" + strconv.FormatInt(id, 10)

	var cached contracts.SeriesMetadata
	if found, _ := r.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	s, err := r.series.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, s, r.ttl)
	return s, nil
}

// SeriesByKey returns series metadata by (source, code).
func (r *Registry) SeriesByKey(ctx context.Context, source, code string) (*contracts.SeriesMetadata, error) {
	key := "series:" + source + "/" + code

	var cached contracts.SeriesMetadata
	if found, _ := r.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	s, err := r.series.GetByKey(ctx, source, code)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, s, r.ttl)
	return s, nil
}

// Instrument returns an instrument by id, from cache when possible.
func (r *Registry) Instrument(ctx context.Context, id int64) (*contracts.Instrument, error) {
	key := "instrument:" + strconv.FormatInt(id, 10)

	var cached contracts.Instrument
	if found, _ := r.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	inst, err := r.instruments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, inst, r.ttl)
	return inst, nil
}

// InstrumentByTicker returns an instrument by ticker.
func (r *Registry) InstrumentByTicker(ctx context.Context, ticker string) (*contracts.Instrument, error) {
	key := "instrument:" + ticker

	var cached contracts.Instrument
	if found, _ := r.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	inst, err := r.instruments.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, key, inst, r.ttl)
	return inst, nil
}

// CreateSeries inserts a series and primes the cache.
func (r *Registry) CreateSeries(ctx context.Context, s *contracts.SeriesMetadata) error {
	if err := r.series.Create(ctx, s); err != nil {
		return err
	}
	_ = r.cache.Set(ctx, "series:"+strconv.FormatInt(s.ID, 10), s, r.ttl)
	_ = r.cache.Set(ctx, "series:"+s.Key(), s, r.ttl)
	return nil
}

// CreateInstrument inserts an instrument and primes the cache.
func (r *Registry) CreateInstrument(ctx context.Context, inst *contracts.Instrument) error {
	if err := r.instruments.Create(ctx, inst); err != nil {
		return err
	}
	_ = r.cache.Set(ctx, "instrument:"+strconv.FormatInt(inst.ID, 10), inst, r.ttl)
	_ = r.cache.Set(ctx, "instrument:"+inst.Ticker, inst, r.ttl)
	return nil
}

// CorrectSeries applies a name/description correction and drops stale cache
// entries.
func (r *Registry) CorrectSeries(ctx context.Context, id int64, name, description string) error {
	if err := r.series.Correct(ctx, id, name, description); err != nil {
		return err
	}
	s, err := r.series.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, "series:"+strconv.FormatInt(id, 10))
	_ = r.cache.Delete(ctx, "series:"+s.Key())
	return nil
}

// ExpectedRelease returns the scheduled publication date for an observation
// date: the series' release lag in business days on the calendar of its
// country.
func ExpectedRelease(cal *calendar.Calendar, meta *contracts.SeriesMetadata, observationDate time.Time) (time.Time, error) {
	if cal == nil {
		return time.Time{}, fmt.Errorf("calendar is required")
	}
	return cal.AddBusinessDays(observationDate, meta.ReleaseLagDays), nil
}
