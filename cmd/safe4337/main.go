package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/safe4337/pkg/bridge"
	"github.com/luxfi/safe4337/pkg/logger"
)

const Version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:    "safe4337",
		Usage:   "Safe smart account client for ERC-4337 bundlers",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (default: ./config.yaml or ~/.safe4337/config.yaml)",
			},
			&cli.UintFlag{
				Name:  "chain-id",
				Usage: "Chain id, overrides chain_id",
			},
			&cli.StringFlag{
				Name:  "rpc-url",
				Usage: "Execution node URL, overrides rpc_url",
			},
			&cli.StringFlag{
				Name:  "bundler-url",
				Usage: "Bundler URL, overrides bundler_url",
			},
			&cli.StringFlag{
				Name:  "paymaster-url",
				Usage: "Paymaster URL, overrides paymaster_url",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Safe address (default: predicted from the signer)",
			},
			&cli.BoolFlag{
				Name:    "prompt-key",
				Aliases: []string{"p"},
				Usage:   "Prompt for the owner private key instead of reading SAFE4337_PRIVATE_KEY",
			},
			&cli.StringFlag{
				Name:  "rp-id",
				Usage: "Use the stored passkey of this relying party instead of a private key (address prediction and reads only; signing needs a platform authenticator)",
			},
			&cli.StringFlag{
				Name:  "user-name",
				Usage: "Passkey user name, used with --rp-id",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			predictAddressCommand(),
			prepareCommand(),
			sendCommand(),
			sendMultiCommand(),
			receiptCommand(),
			userOpCommand(),
			ownersCommand(),
			deployedCommand(),
			addOwnerCommand(),
			signMessageCommand(),
			verifyMessageCommand(),
			recoveryCommand(),
			connectCommand(),
			passkeyCommand(),
			{
				Name:  "version",
				Usage: "Display version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("safe4337 version %s\n", Version)
					return nil
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		printFailure(err)
		os.Exit(1)
	}
}

// printJSON writes v to stdout the way every command reports results.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFailure(err error) {
	f := bridge.FailureOf(err)
	out, mErr := json.Marshal(f)
	if mErr != nil {
		logger.Error("Command failed", err)
		return
	}
	fmt.Fprintln(os.Stderr, string(out))
}
