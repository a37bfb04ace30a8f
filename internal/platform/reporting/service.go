package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maternity/records/internal/platform/cache"
)

// Cache stores report aggregates. *cache.Cache satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

type Service struct {
	reader Reader
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewService builds the reporting service. A nil cache disables caching.
func NewService(reader Reader, c Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		reader: reader,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "reporting").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// cached serves key from the cache, computing and storing it on a miss.
// Cache failures are logged and the report is computed from the database.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil || s.ttl <= 0 {
		return load(ctx)
	}

	var hit T
	err := s.cache.GetJSON(ctx, key, &hit)
	if err == nil {
		return hit, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
	return v, nil
}

// Obstetrics builds the dashboard aggregate for r.
func (s *Service) Obstetrics(ctx context.Context, r Range) (*ObstetricsReport, error) {
	return cached(ctx, s, "report:obstetrics:"+r.key(), func(ctx context.Context) (*ObstetricsReport, error) {
		counts, err := s.reader.Counts(ctx, r)
		if err != nil {
			return nil, err
		}
		stats, err := s.reader.NewbornStats(ctx, r)
		if err != nil {
			return nil, err
		}

		rep := &ObstetricsReport{
			GeneratedAt:   s.now(),
			From:          fmtDate(r.From),
			To:            fmtDate(r.To),
			Period:        r.String(),
			Counts:        counts,
			Distributions: make([]Section, 0, len(Dimensions)),
			Stats:         stats,
		}
		for _, d := range Dimensions {
			rows, err := s.reader.Distribution(ctx, d.Dimension, r)
			if err != nil {
				return nil, fmt.Errorf("distribution %s: %w", d.Dimension, err)
			}
			if rows == nil {
				rows = []Count{}
			}
			rep.Distributions = append(rep.Distributions, Section{Dimension: d.Dimension, Title: d.Title, Rows: rows})
		}
		return rep, nil
	})
}

func (s *Service) MonthlyQuality(ctx context.Context, r Range) ([]MonthlyQuality, error) {
	return cached(ctx, s, "report:quality:"+r.key(), func(ctx context.Context) ([]MonthlyQuality, error) {
		rows, err := s.reader.MonthlyQuality(ctx, r)
		if rows == nil && err == nil {
			rows = []MonthlyQuality{}
		}
		return rows, err
	})
}

func (s *Service) MonthlyNewborns(ctx context.Context, r Range) ([]MonthlyNewborns, error) {
	return cached(ctx, s, "report:newborns:"+r.key(), func(ctx context.Context) ([]MonthlyNewborns, error) {
		rows, err := s.reader.MonthlyNewborns(ctx, r)
		if rows == nil && err == nil {
			rows = []MonthlyNewborns{}
		}
		return rows, err
	})
}
