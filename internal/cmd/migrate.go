package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"memoria/internal/cmd/flags"
	"memoria/internal/core"
	"memoria/internal/persistence"
)

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Manage the database schema",
	Flags: []cli.Flag{
		flags.DatabaseURL,
		flags.DBStatementTimeout,
	},
	Commands: []*cli.Command{
		{
			Name:  "up",
			Usage: "Create or update the feed tables",
			Action: func(ctx context.Context, c *cli.Command) error {
				return migrate(ctx, c, pal.Provide[*persistence.MigrationUpRunner, persistence.MigrationUpRunner]())
			},
		},
		{
			Name:  "down",
			Usage: "Drop the feed tables",
			Action: func(ctx context.Context, c *cli.Command) error {
				return migrate(ctx, c, pal.Provide[*persistence.MigrationDownRunner, persistence.MigrationDownRunner]())
			},
		},
	},
}

func migrate(ctx context.Context, c *cli.Command, runner pal.ServiceImpl) error {
	return run(ctx, c, migrateServices(runner)...)
}

func migrateServices(runner pal.ServiceImpl) []pal.ServiceImpl {
	return []pal.ServiceImpl{
		pal.Provide[core.DB, persistence.DB](),
		pal.Provide[core.Migrator, persistence.Migrator](),
		runner,
	}
}
