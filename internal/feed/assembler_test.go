package feed_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"memoria/internal/core"
	"memoria/internal/feed"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func newPost(id, author int64, created time.Time, groupToken string) *core.Post {
	p := &core.Post{ID: id, AuthorID: author, Scope: core.ScopePublic, CreatedAt: created}
	if groupToken != "" {
		p.ClientGroupKey = &groupToken
	}
	return p
}

func newReshare(id int64, p *core.Post, user int64, created time.Time) *core.Reshare {
	return &core.Reshare{
		ID: id, PostID: p.ID, Post: p, UserID: user, CreatedAt: created,
		User: &core.User{ID: user, Username: fmt.Sprintf("u%d", user)},
	}
}

func memories(ps ...*core.Post) []feed.Item {
	return lo.Map(ps, func(p *core.Post, _ int) feed.Item { return feed.MemoryItem(p) })
}

func reshareItems(rs ...*core.Reshare) []feed.Item {
	return lo.Map(rs, func(r *core.Reshare, _ int) feed.Item { return feed.ReshareItem(r) })
}

func keys(a feed.Assembly) []string {
	return lo.Map(a.Entries, func(e feed.Entry, _ int) string {
		k := e.Item.Key()
		return fmt.Sprintf("%s:%d", k.Kind, k.ID)
	})
}

func TestAssemble_MergeOrder(t *testing.T) {
	t.Parallel()

	posts := feed.Batch{Kind: core.KindMemory, Items: memories(
		newPost(5, 1, at(10), ""),
		newPost(3, 1, at(8), ""),
		newPost(2, 1, at(8), ""),
	)}
	shares := feed.Batch{Kind: core.KindReshare, Items: reshareItems(
		newReshare(9, newPost(100, 2, at(0), ""), 7, at(9)),
		newReshare(3, newPost(101, 2, at(0), ""), 7, at(8)),
	)}

	got := feed.Assemble(10, posts, shares)

	// At equal (created_at, id) the memory ranks first.
	require.Equal(t, []string{"memory:5", "reshare:9", "memory:3", "reshare:3", "memory:2"}, keys(got))
	require.False(t, got.HasMore)
	require.Nil(t, got.Next)
}

func TestAssemble_GroupedVariants(t *testing.T) {
	t.Parallel()

	x := newPost(1, 5, at(5), "tok:circle-3")
	y := newPost(2, 5, at(5), "tok:direct-9")
	other := newPost(3, 6, at(5), "tok:circle-3")

	got := feed.Assemble(10, feed.Batch{Items: memories(x, y, other)})

	require.Equal(t, []string{"memory:3", "memory:2"}, keys(got))
	for _, e := range got.Entries {
		require.Zero(t, e.Preview.CountInWindow)
	}
}

func TestAssemble_ResharePreview(t *testing.T) {
	t.Parallel()

	z := newPost(1, 9, at(0), "")
	var rs []*core.Reshare
	for i := int64(1); i <= 6; i++ {
		// U1 reshared last.
		rs = append(rs, newReshare(i, z, 100+i, at(int(20-i))))
	}

	got := feed.Assemble(10,
		feed.Batch{Kind: core.KindMemory, Items: memories(z)},
		feed.Batch{Kind: core.KindReshare, Items: reshareItems(rs...)},
	)

	require.Len(t, got.Entries, 1)
	entry := got.Entries[0]
	require.Equal(t, core.KindReshare, entry.Item.Kind)
	require.Equal(t, int64(101), entry.Item.Reshare.UserID)

	require.Equal(t, 6, entry.Preview.CountInWindow)
	require.True(t, entry.Preview.HasMoreInWindow)
	require.Equal(t, []int64{101, 102, 103, 104, 105},
		lo.Map(entry.Preview.Users, func(u core.User, _ int) int64 { return u.ID }))
}

func TestAssemble_ResharesCountedAfterPageIsFull(t *testing.T) {
	t.Parallel()

	a := newPost(1, 1, at(10), "")
	b := newPost(2, 1, at(9), "")

	got := feed.Assemble(1,
		feed.Batch{Kind: core.KindMemory, Items: memories(a, b)},
		feed.Batch{Kind: core.KindReshare, Items: reshareItems(
			newReshare(1, a, 7, at(5)),
			newReshare(2, a, 8, at(4)),
			newReshare(3, a, 7, at(3)),
		)},
	)

	require.Equal(t, []string{"memory:1"}, keys(got))
	preview := got.Entries[0].Preview
	require.Equal(t, 3, preview.CountInWindow)
	require.Len(t, preview.Users, 2)
	require.True(t, preview.HasMoreInWindow)
}

func TestAssemble_Invariants(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			t.Parallel()

			var posts []*core.Post
			var rs []*core.Reshare
			for i := int64(1); i <= 40; i++ {
				token := ""
				if (i*seed)%3 == 0 {
					token = fmt.Sprintf("g%d:v%d", (i*seed)%4, i)
				}
				p := newPost(i, (i*seed)%3, at(int((i*seed)%17)), token)
				posts = append(posts, p)

				for j := int64(0); j < (i+seed)%9; j++ {
					rs = append(rs, newReshare(i*100+j, p, (j*seed)%11, at(int((i+j)%23))))
				}
			}

			for _, limit := range []int{1, 5, 30} {
				got := feed.Assemble(limit,
					feed.Batch{Kind: core.KindMemory, Items: memories(posts...)},
					feed.Batch{Kind: core.KindReshare, Items: reshareItems(rs...)},
				)

				require.LessOrEqual(t, len(got.Entries), limit)

				groups := lo.Map(got.Entries, func(e feed.Entry, _ int) string { return e.Item.Group() })
				require.Equal(t, lo.Uniq(groups), groups, "duplicate groups in page")

				for i, e := range got.Entries {
					require.LessOrEqual(t, len(e.Preview.Users), feed.PreviewSize)
					require.Equal(t, e.Preview.CountInWindow > len(e.Preview.Users), e.Preview.HasMoreInWindow)
					require.Len(t, lo.UniqBy(e.Preview.Users, func(u core.User) int64 { return u.ID }), len(e.Preview.Users))

					if i > 0 {
						require.True(t, got.Entries[i-1].Item.Key().Before(e.Item.Key()), "page not in feed order")
					}
				}
			}
		})
	}
}

func TestAssemble_HasMore(t *testing.T) {
	t.Parallel()

	ps := memories(newPost(3, 1, at(3), ""), newPost(2, 1, at(2), ""), newPost(1, 1, at(1), ""))

	t.Run("full page, source has more", func(t *testing.T) {
		t.Parallel()

		last := ps[2].Key()
		got := feed.Assemble(2, feed.Batch{Items: ps, More: true, Last: &last})

		require.True(t, got.HasMore)
		require.Equal(t, ps[1].Key(), *got.Next)
	})

	t.Run("full page, fetched rows left over", func(t *testing.T) {
		t.Parallel()

		got := feed.Assemble(2, feed.Batch{Items: ps})

		require.True(t, got.HasMore)
		require.Equal(t, ps[1].Key(), *got.Next)
	})

	t.Run("exactly full, everything consumed", func(t *testing.T) {
		t.Parallel()

		got := feed.Assemble(3, feed.Batch{Items: ps})

		require.False(t, got.HasMore)
		require.Nil(t, got.Next)
	})

	t.Run("short page", func(t *testing.T) {
		t.Parallel()

		got := feed.Assemble(10, feed.Batch{Items: ps}, feed.Batch{})

		require.Len(t, got.Entries, 3)
		require.False(t, got.HasMore)
		require.Nil(t, got.Next)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		got := feed.Assemble(10, feed.Batch{}, feed.Batch{})

		require.Empty(t, got.Entries)
		require.False(t, got.HasMore)
	})
}

func TestAssemble_Horizon(t *testing.T) {
	t.Parallel()

	// The memory source stopped at t=5 without running out: rows older than
	// that may still exist, so the t=3 reshare cannot be emitted yet.
	horizon := core.Cursor{CreatedAt: at(5), ID: 50, Kind: core.KindMemory}
	posts := feed.Batch{
		Kind:  core.KindMemory,
		Items: memories(newPost(60, 1, at(6), "")),
		More:  true,
		Last:  &horizon,
	}
	shares := feed.Batch{
		Kind:  core.KindReshare,
		Items: reshareItems(newReshare(1, newPost(7, 2, at(0), ""), 3, at(3))),
	}

	got := feed.Assemble(10, posts, shares)

	require.Equal(t, []string{"memory:60"}, keys(got))
	require.True(t, got.HasMore)
	require.Equal(t, horizon, *got.Next)
}

func TestAssemble_HorizonStillCountsReshares(t *testing.T) {
	t.Parallel()

	z := newPost(100, 9, at(100), "")
	ps := []*core.Post{z}
	for i := int64(99); i >= 96; i-- {
		ps = append(ps, newPost(i, 9, at(int(i)), ""))
	}
	last := feed.MemoryItem(ps[len(ps)-1]).Key()

	var rs []*core.Reshare
	for i := int64(1); i <= 5; i++ {
		rs = append(rs, newReshare(i, z, 200+i, at(int(95-i))))
	}

	got := feed.Assemble(1,
		feed.Batch{Kind: core.KindMemory, Items: memories(ps...), More: true, Last: &last},
		feed.Batch{Kind: core.KindReshare, Items: reshareItems(rs...)},
	)

	require.Equal(t, []string{"memory:100"}, keys(got))
	preview := got.Entries[0].Preview
	require.Equal(t, 5, preview.CountInWindow)
	require.False(t, preview.HasMoreInWindow)
	require.Equal(t, []int64{201, 202, 203, 204, 205},
		lo.Map(preview.Users, func(u core.User, _ int) int64 { return u.ID }))
	require.True(t, got.HasMore)
	require.Equal(t, feed.MemoryItem(z).Key(), *got.Next)
}
