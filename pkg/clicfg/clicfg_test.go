package clicfg_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"memoria/pkg/clicfg"
)

type Base struct {
	Name string `flag:"name"`
}

type target struct {
	Base

	Count   int           `flag:"count"`
	Enabled bool          `flag:"enabled"`
	Timeout time.Duration `flag:"timeout"`
	Ignored string
}

func runWith(t *testing.T, args []string, dst any) error {
	t.Helper()

	var parseErr error
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "default"},
			&cli.IntFlag{Name: "count", Value: 3},
			&cli.BoolFlag{Name: "enabled"},
			&cli.DurationFlag{Name: "timeout", Value: time.Second},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			parseErr = clicfg.ParseFlags(c, dst)
			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return parseErr
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var cfg target
		require.NoError(t, runWith(t, nil, &cfg))

		require.Equal(t, "default", cfg.Name)
		require.Equal(t, 3, cfg.Count)
		require.False(t, cfg.Enabled)
		require.Equal(t, time.Second, cfg.Timeout)
		require.Empty(t, cfg.Ignored)
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Parallel()

		var cfg target
		require.NoError(t, runWith(t, []string{"--name=x", "--count=7", "--enabled", "--timeout=250ms"}, &cfg))

		require.Equal(t, "x", cfg.Name)
		require.Equal(t, 7, cfg.Count)
		require.True(t, cfg.Enabled)
		require.Equal(t, 250*time.Millisecond, cfg.Timeout)
	})

	t.Run("non pointer", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, runWith(t, nil, target{}), clicfg.ErrCannotParseFlags)
	})

	t.Run("pointer to non struct", func(t *testing.T) {
		t.Parallel()
		n := 1
		require.ErrorIs(t, runWith(t, nil, &n), clicfg.ErrCannotParseFlags)
	})
}
