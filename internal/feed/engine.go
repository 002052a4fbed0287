package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"memoria/internal/config"
	"memoria/internal/core"
	"memoria/internal/visibility"
)

var (
	pageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memoria_feed_page_duration_seconds",
		Help:    "Time spent assembling one feed page.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"surface"})

	pageRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memoria_feed_page_rows",
		Help:    "Rows emitted per feed page.",
		Buckets: []float64{0, 1, 5, 10, 20, 30, 50},
	}, []string{"surface"})

	refills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memoria_feed_refills_total",
		Help: "Extra source scans issued to fill short pages.",
	}, []string{"surface"})
)

// Page selects a window of a feed.
type Page struct {
	Limit int
	After *core.Cursor
}

// Engine assembles the chronological feed surfaces.
type Engine struct {
	Config   *config.Config
	Resolver visibility.ContextResolver
	Posts    core.PostRepository
	Reshares core.ReshareRepository
	Logger   *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (e *Engine) Init(_ context.Context) error {
	e.Logger = e.Logger.With("component", "feed.Engine")
	return nil
}

// Home returns the viewer's network feed: memories and reshares from
// followed users, friends and the viewer, plus memories addressed to the
// viewer's circles or to the viewer directly.
func (e *Engine) Home(ctx context.Context, viewerID int64, page Page) (Assembly, error) {
	return e.assemble(ctx, "home", viewerID, page, func() []Source {
		return []Source{
			&PostSource{Repo: e.Posts, Logger: e.Logger, MaxScanBatches: e.maxScanBatches()},
			&ReshareSource{Repo: e.Reshares, Logger: e.Logger, MaxScanBatches: e.maxScanBatches()},
		}
	})
}

// Profile returns ownerID's memories and reshares as seen by viewerID.
func (e *Engine) Profile(ctx context.Context, viewerID, ownerID int64, page Page) (Assembly, error) {
	return e.assemble(ctx, "profile", viewerID, page, func() []Source {
		return []Source{
			&PostSource{Repo: e.Posts, Logger: e.Logger, MaxScanBatches: e.maxScanBatches(), AuthorID: &ownerID},
			&ReshareSource{Repo: e.Reshares, Logger: e.Logger, MaxScanBatches: e.maxScanBatches(), ResharerID: &ownerID},
		}
	})
}

// Search returns visible memories whose body contains query.
func (e *Engine) Search(ctx context.Context, viewerID int64, query string, page Page) (Assembly, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Assembly{}, nil
	}

	return e.assemble(ctx, "search", viewerID, page, func() []Source {
		return []Source{
			&PostSource{Repo: e.Posts, Logger: e.Logger, MaxScanBatches: e.maxScanBatches(), AllAuthors: true, Text: query},
		}
	})
}

func (e *Engine) assemble(ctx context.Context, surface string, viewerID int64, page Page, build func() []Source) (Assembly, error) {
	start := time.Now()

	vc, err := e.Resolver.Resolve(ctx, viewerID)
	if err != nil {
		return Assembly{}, err
	}

	now := e.now()
	want := e.oversample() * page.Limit
	sources := build()
	batches := make([]Batch, len(sources))

	fetch := func(indexes []int, refill bool) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, i := range indexes {
			after := page.After
			if refill {
				after = batches[i].Last
			}

			g.Go(func() error {
				b, err := sources[i].Fetch(gctx, Request{Viewer: vc, After: after, Want: want, Now: now})
				if err != nil {
					return fmt.Errorf("%s feed source %d: %w", surface, i, err)
				}
				if refill {
					batches[i] = batches[i].Extend(b)
				} else {
					batches[i] = b
				}
				return nil
			})
		}
		return g.Wait()
	}

	if err := fetch(lo.Range(len(sources)), false); err != nil {
		return Assembly{}, err
	}

	result := Assemble(page.Limit, batches...)

	for attempt := 0; attempt < e.Config.FeedRefillAttempts; attempt++ {
		if len(result.Entries) >= page.Limit || !result.HasMore {
			break
		}

		pending := lo.Filter(lo.Range(len(batches)), func(i int, _ int) bool {
			return batches[i].More
		})

		refills.WithLabelValues(surface).Inc()
		e.Logger.Debug("Refilling short page", "surface", surface, "attempt", attempt+1, "rows", len(result.Entries))

		if err := fetch(pending, true); err != nil {
			return Assembly{}, err
		}
		result = Assemble(page.Limit, batches...)
	}

	pageDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
	pageRows.WithLabelValues(surface).Observe(float64(len(result.Entries)))

	return result, nil
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) oversample() int {
	return lo.CoalesceOrEmpty(e.Config.FeedOversample, config.DefaultOversample)
}

func (e *Engine) maxScanBatches() int {
	return lo.CoalesceOrEmpty(e.Config.FeedMaxScanBatches, config.DefaultMaxScanBatches)
}
