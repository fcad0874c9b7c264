package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/safe4337/pkg/common/pathutil"
	"github.com/luxfi/safe4337/pkg/logger"
)

func passkeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "passkey",
		Usage: "Inspect and back up the local passkey public key store",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored passkeys, optionally for one relying party",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := newEnv(c, true)
					if err != nil {
						return err
					}
					defer e.Close()
					records, err := e.store.List(e.cfg.Passkey.RPID)
					if err != nil {
						return err
					}
					return printJSON(records)
				},
			},
			{
				Name:      "backup",
				Usage:     "Write a backup of the store",
				ArgsUsage: "[dir]",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := newEnv(c, true)
					if err != nil {
						return err
					}
					defer e.Close()
					dir := c.Args().First()
					if dir == "" {
						if dir, err = pathutil.Join(e.cfg.DataDir, "backups"); err != nil {
							return err
						}
					}
					path, err := e.kv.Backup(dir)
					if err != nil {
						return err
					}
					fmt.Println(path)
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Load a backup into the store",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := newEnv(c, true)
					if err != nil {
						return err
					}
					defer e.Close()
					if err := e.kv.Restore(c.Args().First()); err != nil {
						return err
					}
					logger.Info("Passkey store restored", "from", c.Args().First())
					return nil
				},
			},
		},
	}
}
