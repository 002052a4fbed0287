package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"
	"resty.dev/v3"

	"memoria/internal/cmd/flags"
	"memoria/pkg/feedclient"
)

var errUnknownSurface = errors.New("unknown feed surface")

var feedCmd = &cli.Command{
	Name:      "feed",
	Usage:     "Page through a feed of a running server as the given viewer",
	ArgsUsage: "home|profile|trending|search",
	Flags: []cli.Flag{
		flags.FeedServer,
		&cli.IntFlag{Name: "viewer", Usage: "Viewer id sent as X-Viewer-ID", Required: true},
		&cli.IntFlag{Name: "user", Usage: "Profile owner for the profile surface"},
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search text for the search surface"},
		&cli.IntFlag{Name: "limit", Usage: "Page size, the server default when 0"},
		&cli.IntFlag{Name: "pages", Value: 1, Usage: "How many pages to follow, 0 for all"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print whole rows"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		client := feedclient.NewClient(c.String(flags.FeedServer.Name), int64(c.Int("viewer")), &feedclient.ClientConfig{
			TransportSettings: feedclient.DefaultConfig.TransportSettings,

			ResponseMiddlewares: []resty.ResponseMiddleware{func(_ *resty.Client, response *resty.Response) error {
				reqURL, err := url.Parse(response.Request.URL)
				if err != nil {
					return err
				}

				slog.Debug("request", "method", response.Request.Method, "path", reqURL.Path,
					"status", response.Status(), "duration", response.Duration())
				return nil
			}},
		})
		defer client.Close()

		fetch, err := surface(client, c)
		if err != nil {
			return err
		}

		query := feedclient.Query{Limit: int(c.Int("limit"))}
		for row, err := range feedclient.Rows(ctx, fetch, query, int(c.Int("pages"))) {
			if err != nil {
				return err
			}

			if c.Bool("pretty") {
				pp.Println(row)
				continue
			}
			printRow(row)
		}

		return nil
	},
}

func surface(client *feedclient.Client, c *cli.Command) (feedclient.Fetch, error) {
	switch name := c.Args().First(); name {
	case "", "home":
		return client.Home, nil
	case "trending":
		return client.Trending, nil
	case "profile":
		owner := int64(c.Int("user"))
		return func(ctx context.Context, q feedclient.Query) (*feedclient.Page, error) {
			return client.Profile(ctx, owner, q)
		}, nil
	case "search":
		text := c.String("query")
		return func(ctx context.Context, q feedclient.Query) (*feedclient.Page, error) {
			return client.Search(ctx, text, q)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSurface, name)
	}
}

func printRow(row feedclient.Row) {
	line := fmt.Sprintf("%s  %-7s #%d by %d [%s]", row.CreatedAt.Format("2006-01-02 15:04"), row.FeedType, row.ID, row.AuthorID, row.Scope)
	if row.Reshare != nil {
		line += fmt.Sprintf(" reshared by %d", row.Reshare.User.ID)
	}
	if n := row.ResharePreview.CountInWindow; n > 0 {
		line += fmt.Sprintf(" (+%d reshares)", n)
	}
	if row.Score != nil {
		line += fmt.Sprintf(" score=%d", *row.Score)
	}
	fmt.Println(line, row.Body)
}
