package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"memoria/internal/cursor"
	"memoria/internal/feed"
	"memoria/internal/trending"
)

const (
	defaultFeedLimit = 30
	maxFeedLimit     = 50

	defaultTrendingLimit = 10
	maxTrendingLimit     = 20
)

type Feed interface {
	Home(ctx context.Context, viewerID int64, page feed.Page) (feed.Assembly, error)
	Profile(ctx context.Context, viewerID, ownerID int64, page feed.Page) (feed.Assembly, error)
	Search(ctx context.Context, viewerID int64, query string, page feed.Page) (feed.Assembly, error)
}

type Trending interface {
	Trending(ctx context.Context, viewerID int64, limit int) ([]trending.Entry, error)
}

// Handlers serves the read endpoints. The viewer middleware has already
// authenticated every request that reaches them.
type Handlers struct {
	Feed     Feed
	Trending Trending
}

func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	a, err := h.Feed.Home(r.Context(), viewer(r.Context()), feedPage(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toFeedResponse(a))
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || ownerID <= 0 {
		respondError(w, r, http.StatusNotFound, "not_found", "unknown user")
		return
	}

	a, err := h.Feed.Profile(r.Context(), viewer(r.Context()), ownerID, feedPage(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toFeedResponse(a))
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	a, err := h.Feed.Search(r.Context(), viewer(r.Context()), r.URL.Query().Get("q"), feedPage(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toFeedResponse(a))
}

func (h *Handlers) TrendingFeed(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, defaultTrendingLimit, maxTrendingLimit)

	entries, err := h.Trending.Trending(r.Context(), viewer(r.Context()), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toTrendingResponse(entries))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func feedPage(r *http.Request) feed.Page {
	return feed.Page{
		Limit: limitParam(r, defaultFeedLimit, maxFeedLimit),
		After: cursor.DecodePtr(r.URL.Query().Get("cursor")),
	}
}

// limitParam clamps the limit query parameter to [1, maxLimit]. Missing or
// unparsable values fall back to def.
func limitParam(r *http.Request, def, maxLimit int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return def
	}
	return lo.Clamp(limit, 1, maxLimit)
}
