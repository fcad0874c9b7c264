package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/safe4337/pkg/bridge"
	"github.com/luxfi/safe4337/pkg/recovery"
)

func delayFlag() cli.Flag {
	return &cli.StringFlag{Name: "delay", Usage: "Delay module address (default: predicted for this Safe)"}
}

// recoveryConfig merges the recovery section of the config with flag overrides.
func recoveryConfig(c *cli.Command, e *env) recovery.Config {
	rc := e.cfg.Recovery
	if c.IsSet("cooldown") {
		rc.RecoveryCooldown = c.Uint("cooldown")
	}
	if c.IsSet("expiration") {
		rc.RecoveryExpiration = c.Uint("expiration")
	}
	return rc
}

func recoveryCommand() *cli.Command {
	moduleFlags := []cli.Flag{
		&cli.UintFlag{Name: "cooldown", Usage: "Seconds before a queued recovery can execute"},
		&cli.UintFlag{Name: "expiration", Usage: "Seconds a queued recovery stays executable"},
	}
	return &cli.Command{
		Name:  "recovery",
		Usage: "Manage the delay module used for social recovery",
		Commands: []*cli.Command{
			{
				Name:  "address",
				Usage: "Print the predicted delay module address",
				Flags: moduleFlags,
				Action: func(ctx context.Context, c *cli.Command) error {
					return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
						addr, err := e.bridge.PredictDelayModuleAddress(ctx, p, recoveryConfig(c, e))
						if err != nil {
							return err
						}
						fmt.Println(addr)
						return nil
					})
				},
			},
			{
				Name:      "enable",
				Usage:     "Deploy and enable the delay module with a guardian",
				ArgsUsage: "<guardian>",
				Flags:     append(moduleFlags, waitFlag()),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
						hash, err := e.bridge.EnableRecoveryModule(ctx, p, c.Args().First(), recoveryConfig(c, e))
						if err != nil {
							return err
						}
						return submitted(ctx, c, e, p, hash)
					})
				},
			},
			{
				Name:  "guardian",
				Usage: "Print the current guardian",
				Flags: []cli.Flag{delayFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
						g, err := e.bridge.GetCurrentGuardian(ctx, p, c.String("delay"))
						if err != nil {
							return err
						}
						if g == "" {
							g = "none"
						}
						fmt.Println(g)
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "Report whether a recovery is queued",
				Flags: []cli.Flag{delayFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
						started, err := e.bridge.IsRecoveryStarted(ctx, p, c.String("delay"))
						if err != nil {
							return err
						}
						fmt.Println(started)
						return nil
					})
				},
			},
			{
				Name:  "cancel",
				Usage: "Invalidate every queued recovery",
				Flags: []cli.Flag{delayFlag(), waitFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
						hash, err := e.bridge.CancelRecovery(ctx, p, c.String("delay"))
						if err != nil {
							return err
						}
						return submitted(ctx, c, e, p, hash)
					})
				},
			},
		},
	}
}
