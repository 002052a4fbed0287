package feed_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"memoria/internal/config"
	"memoria/internal/core"
	"memoria/internal/cursor"
	"memoria/internal/feed"
	"memoria/internal/persistence"
	"memoria/internal/persistence/graph"
	"memoria/internal/persistence/persistencetest"
	"memoria/internal/persistence/posts"
	"memoria/internal/persistence/reshares"
	"memoria/internal/visibility"
)

func newEngine(t *testing.T, db *persistence.DB, cfg *config.Config) *feed.Engine {
	t.Helper()

	engine := &feed.Engine{
		Config:   cfg,
		Resolver: &visibility.Resolver{Graph: &graph.Repository{DB: db}},
		Posts:    &posts.Repository{DB: db},
		Reshares: &reshares.Repository{DB: db},
		Logger:   discard,
		Clock:    func() time.Time { return at(1000) },
	}
	require.NoError(t, engine.Init(context.Background()))

	return engine
}

// seedNetwork stores 30 memories by user 2, who is followed by user 1 and a
// stranger to user 3, plus 10 reshares by user 2 of memories by stranger 5.
// Pairs of memories share a timestamp and every reshare ties with the memory
// of the same id on (created_at, id).
func seedNetwork(t *testing.T, db *persistence.DB) {
	t.Helper()

	persistencetest.Seed(t, db,
		&[]core.User{{ID: 1, Username: "one"}, {ID: 2, Username: "two"}, {ID: 3, Username: "three"}, {ID: 5, Username: "five"}},
		&core.Follow{FollowerID: 1, FolloweeID: 2},
	)

	var memories []core.Post
	for i := int64(1); i <= 30; i++ {
		scope := core.ScopeFollowers
		switch {
		case i%5 == 0:
			scope = core.ScopeFriends
		case i%3 == 0:
			scope = core.ScopePublic
		}
		memories = append(memories, core.Post{
			ID: i, AuthorID: 2, Scope: scope, Body: fmt.Sprintf("memory number %d", i), CreatedAt: at(int(i / 2)),
		})
	}
	memories[6].Body = "Beach day at the LAKE"

	var shares []core.Reshare
	for i := int64(1); i <= 10; i++ {
		memories = append(memories, core.Post{
			ID: 100 + i, AuthorID: 5, Scope: core.ScopePublic, Body: "elsewhere", CreatedAt: at(-100),
		})
		shares = append(shares, core.Reshare{ID: i, PostID: 100 + i, UserID: 2, CreatedAt: at(int(i / 2))})
	}

	persistencetest.Seed(t, db, &memories, &shares)
}

func pageKeys(a feed.Assembly) []core.Cursor {
	return lo.Map(a.Entries, func(e feed.Entry, _ int) core.Cursor { return e.Item.Key() })
}

func TestEngine_Home(t *testing.T) {
	t.Parallel()

	t.Run("visibility end to end", func(t *testing.T) {
		t.Parallel()

		db := persistencetest.NewDB(t)
		persistencetest.Seed(t, db,
			&[]core.User{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
			&core.Follow{FollowerID: 1, FolloweeID: 2},
			&[]core.Friendship{{UserID: 1, FriendID: 3}, {UserID: 3, FriendID: 1}},
			&core.Block{BlockerID: 1, BlockedID: 4},
			&[]core.Post{
				{ID: 11, AuthorID: 2, Scope: core.ScopeFollowers, CreatedAt: at(10)},
				{ID: 12, AuthorID: 3, Scope: core.ScopeFriends, CreatedAt: at(9)},
				{ID: 13, AuthorID: 4, Scope: core.ScopePublic, CreatedAt: at(8)},
				{ID: 14, AuthorID: 1, Scope: core.ScopePublic, CreatedAt: at(7)},
			},
		)

		got, err := newEngine(t, db, config.Default()).Home(context.Background(), 1, feed.Page{Limit: 30})
		require.NoError(t, err)

		require.Equal(t, []int64{11, 12, 14}, lo.Map(got.Entries, func(e feed.Entry, _ int) int64 {
			return e.Item.Post.ID
		}))
		require.False(t, got.HasMore)
		require.Nil(t, got.Next)
		require.NotNil(t, got.Entries[0].Item.Post.Author)
	})

	t.Run("pagination is lossless", func(t *testing.T) {
		t.Parallel()

		db := persistencetest.NewDB(t)
		seedNetwork(t, db)

		reference, err := newEngine(t, db, config.Default()).Home(context.Background(), 1, feed.Page{Limit: 50})
		require.NoError(t, err)
		// 24 visible memories and 10 reshares.
		require.Len(t, reference.Entries, 34)
		require.False(t, reference.HasMore)

		configs := []struct {
			oversample, batches, refills int
		}{
			{5, 4, 0},
			{1, 1, 0},
			{1, 2, 0},
			{2, 1, 0},
			{1, 1, 3},
		}

		for _, c := range configs {
			for _, limit := range []int{1, 2, 3, 7} {
				t.Run(fmt.Sprintf("oversample %d batches %d refills %d limit %d", c.oversample, c.batches, c.refills, limit), func(t *testing.T) {
					t.Parallel()

					cfg := config.Default()
					cfg.FeedOversample = c.oversample
					cfg.FeedMaxScanBatches = c.batches
					cfg.FeedRefillAttempts = c.refills
					engine := newEngine(t, db, cfg)

					var collected []core.Cursor
					token := ""

					for range 200 {
						got, err := engine.Home(context.Background(), 1, feed.Page{Limit: limit, After: cursor.DecodePtr(token)})
						require.NoError(t, err)
						require.LessOrEqual(t, len(got.Entries), limit)

						collected = append(collected, pageKeys(got)...)
						if !got.HasMore {
							require.Nil(t, got.Next)
							break
						}
						token = cursor.Encode(*got.Next)
					}

					require.Equal(t, pageKeys(reference), collected)
				})
			}
		}
	})

	t.Run("storage errors surface", func(t *testing.T) {
		t.Parallel()

		db := persistencetest.NewDB(t)
		unavailable := fmt.Errorf("%w: connection refused", core.ErrUnavailable)

		engine := newEngine(t, db, config.Default())
		engine.Posts = &scanRepo{err: unavailable}

		_, err := engine.Home(context.Background(), 1, feed.Page{Limit: 10})
		require.ErrorIs(t, err, core.ErrUnavailable)
	})
}

func TestEngine_Profile(t *testing.T) {
	t.Parallel()

	db := persistencetest.NewDB(t)
	seedNetwork(t, db)
	engine := newEngine(t, db, config.Default())

	t.Run("follower", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Profile(context.Background(), 1, 2, feed.Page{Limit: 50})
		require.NoError(t, err)
		require.Len(t, got.Entries, 34)
	})

	t.Run("stranger sees public memories and reshares", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Profile(context.Background(), 3, 2, feed.Page{Limit: 50})
		require.NoError(t, err)

		ids := lo.FilterMap(got.Entries, func(e feed.Entry, _ int) (int64, bool) {
			return e.Item.Post.ID, e.Item.Kind == core.KindMemory
		})
		require.Equal(t, []int64{27, 24, 21, 18, 12, 9, 6, 3}, ids)
		require.Len(t, got.Entries, 18)

		for _, e := range got.Entries {
			if e.Item.Kind == core.KindReshare {
				require.Equal(t, int64(2), e.Item.Reshare.UserID)
			}
		}
	})

	t.Run("other owners are not mixed in", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Profile(context.Background(), 1, 5, feed.Page{Limit: 50})
		require.NoError(t, err)
		require.Len(t, got.Entries, 10)
		for _, e := range got.Entries {
			require.Equal(t, int64(5), e.Item.Post.AuthorID)
		}
	})
}

func TestEngine_Search(t *testing.T) {
	t.Parallel()

	db := persistencetest.NewDB(t)
	seedNetwork(t, db)
	engine := newEngine(t, db, config.Default())

	search := func(t *testing.T, viewer int64, query string) []int64 {
		t.Helper()

		got, err := engine.Search(context.Background(), viewer, query, feed.Page{Limit: 50})
		require.NoError(t, err)
		return lo.Map(got.Entries, func(e feed.Entry, _ int) int64 { return e.Item.Post.ID })
	}

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, []int64{7}, search(t, 1, "  lake "))
	})

	t.Run("respects visibility", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, search(t, 3, "lake"))
	})

	t.Run("any author", func(t *testing.T) {
		t.Parallel()
		require.Len(t, search(t, 3, "elsewhere"), 10)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, search(t, 1, "%"))
		require.Empty(t, search(t, 1, "_"))
	})

	t.Run("blank query", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, search(t, 1, "   "))
	})
}
