package visibility

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"memoria/internal/core"
)

// ContextResolver builds the visibility Context of a viewer.
type ContextResolver interface {
	Resolve(ctx context.Context, viewerID int64) (*Context, error)
}

// Resolver computes a viewer's Context from the graph collaborators.
// Nothing is cached between requests.
type Resolver struct {
	Graph core.GraphRepository
}

func (r *Resolver) Resolve(ctx context.Context, viewerID int64) (*Context, error) {
	var following, friends, circles, blocked, muted, hidden []int64

	lookups := []struct {
		name string
		dst  *[]int64
		fn   func(context.Context, int64) ([]int64, error)
	}{
		{"following", &following, r.Graph.FollowingIDs},
		{"friends", &friends, r.Graph.FriendIDs},
		{"circles", &circles, r.Graph.CircleIDs},
		{"blocked", &blocked, r.Graph.BlockedIDs},
		{"muted", &muted, r.Graph.MutedIDs},
		{"hidden", &hidden, r.Graph.HiddenPostIDs},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range lookups {
		g.Go(func() error {
			ids, err := l.fn(gctx, viewerID)
			if err != nil {
				return fmt.Errorf("resolve %s of viewer %d: %w", l.name, viewerID, err)
			}
			*l.dst = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewContext(viewerID, following, friends, circles, blocked, muted, hidden), nil
}
