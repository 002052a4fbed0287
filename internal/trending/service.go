package trending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"memoria/internal/config"
	"memoria/internal/core"
	"memoria/internal/visibility"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "memoria_trending_cache_lookups_total",
	Help: "Trending cache lookups by result.",
}, []string{"result"})

// Entry is one ranked memory.
type Entry struct {
	Post  *core.Post
	Score int64
}

type ranked struct {
	ID    int64 `json:"id"`
	Score int64 `json:"score"`
}

// Service ranks recent memories by engagement. Rankings are cached per
// (viewer, limit) as id lists; rows are reloaded and re-checked against the
// visibility predicate on every request, so a cache hit never bypasses policy.
type Service struct {
	Config   *config.Config
	Resolver visibility.ContextResolver
	Posts    core.PostRepository
	Cache    core.CacheStore
	Logger   *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time

	group singleflight.Group
}

func (s *Service) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "trending.Service")
	return nil
}

func (s *Service) Trending(ctx context.Context, viewerID int64, limit int) ([]Entry, error) {
	vc, err := s.Resolver.Resolve(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	ranking, err := s.ranking(ctx, vc, limit, now)
	if err != nil {
		return nil, err
	}

	posts, err := s.Posts.FindPosts(ctx, lo.Map(ranking, func(r ranked, _ int) int64 { return r.ID }), now)
	if err != nil {
		return nil, err
	}

	byID := lo.SliceToMap(posts, func(p core.Post) (int64, *core.Post) { return p.ID, &p })
	opts := visibility.Options{Now: now}

	entries := make([]Entry, 0, len(ranking))
	for _, r := range ranking {
		p, ok := byID[r.ID]
		if !ok || !visibility.Visible(p, vc, opts) {
			continue
		}
		entries = append(entries, Entry{Post: p, Score: r.Score})
	}

	return entries, nil
}

func (s *Service) ranking(ctx context.Context, vc *visibility.Context, limit int, now time.Time) ([]ranked, error) {
	key := fmt.Sprintf("trending.%d.%d", vc.ViewerID, limit)

	if cached, ok := s.lookup(ctx, key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	v, err, shared := s.group.Do(key, func() (any, error) {
		// Callers share the result, so no single caller's cancellation ends it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
			lo.CoalesceOrEmpty(s.Config.RequestTimeout, config.DefaultRequestTimeout))
		defer cancel()

		result, err := s.compute(ctx, vc, limit, now)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.Logger.Debug("Shared trending computation", "key", key)
	}

	return v.([]ranked), nil
}

// compute walks the memories of the window in score order, chunk by chunk,
// until limit of them pass the predicate or the window runs out.
func (s *Service) compute(ctx context.Context, vc *visibility.Context, limit int, now time.Time) ([]ranked, error) {
	window := lo.CoalesceOrEmpty(s.Config.TrendingWindow, config.DefaultTrendingWindow)
	since := now.Add(-window)
	chunk := lo.CoalesceOrEmpty(s.Config.TrendingCandidates, config.DefaultTrendingCandidates)
	opts := visibility.Options{Now: now}

	top := make([]ranked, 0, max(limit, 0))
	for offset := 0; len(top) < limit; offset += chunk {
		candidates, err := s.Posts.ScanPosts(ctx, core.PostQuery{
			Audience:   vc.Audience(true),
			Limit:      chunk,
			Offset:     offset,
			Now:        now,
			AllAuthors: true,
			Since:      &since,
			ByScore:    true,
		})
		if err != nil {
			return nil, err
		}

		for _, p := range candidates {
			if !visibility.Visible(&p, vc, opts) {
				continue
			}
			top = append(top, ranked{ID: p.ID, Score: p.Score()})
			if len(top) == limit {
				break
			}
		}

		if len(candidates) < chunk {
			break
		}
	}

	return top, nil
}

// lookup treats cache failures as misses.
func (s *Service) lookup(ctx context.Context, key string) ([]ranked, bool) {
	data, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.Logger.Warn("Trending cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var result []ranked
	if err := json.Unmarshal(data, &result); err != nil {
		s.Logger.Warn("Discarding undecodable trending cache entry", "key", key, "error", err)
		return nil, false
	}

	return result, true
}

func (s *Service) store(ctx context.Context, key string, result []ranked) {
	data, err := json.Marshal(result)
	if err != nil {
		s.Logger.Warn("Cannot encode trending ranking", "key", key, "error", err)
		return
	}

	ttl := lo.CoalesceOrEmpty(s.Config.TrendingTTL, config.DefaultTrendingTTL)
	if err := s.Cache.Put(ctx, key, data, ttl); err != nil {
		s.Logger.Warn("Trending cache store failed", "key", key, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
