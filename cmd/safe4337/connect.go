package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/safe4337/pkg/bridge"
	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/connect"
)

func connectParams(c *cli.Command) (*env, bridge.ConnectParams, error) {
	e, err := newEnv(c, false)
	if err != nil {
		return nil, bridge.ConnectParams{}, err
	}
	if e.cfg.Connect.APIKey == "" {
		e.Close()
		return nil, bridge.ConnectParams{}, errors.Invalid("connect", errors.ErrInvalidConfig, "connect.api_key is required")
	}
	return e, bridge.ConnectParams{
		ChainID: e.cfg.ChainID,
		APIKey:  e.cfg.Connect.APIKey,
		BaseURL: e.cfg.Connect.BaseURL,
	}, nil
}

func connectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Call the Connect wallet API",
		Commands: []*cli.Command{
			{
				Name:      "init-wallet",
				Usage:     "Register a wallet with its initiating owner",
				ArgsUsage: "<wallet> <initiator>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "public-key-id", Usage: "Passkey credential id"},
					&cli.StringFlag{Name: "public-key-x", Usage: "Passkey x coordinate"},
					&cli.StringFlag{Name: "public-key-y", Usage: "Passkey y coordinate"},
					&cli.StringFlag{Name: "browser"},
					&cli.StringFlag{Name: "os"},
					&cli.StringFlag{Name: "platform"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					e, p, err := connectParams(c)
					if err != nil {
						return err
					}
					defer e.Close()
					res, err := e.bridge.ConnectInitWallet(ctx, p, connect.InitWalletRequest{
						WalletAddress:    c.Args().Get(0),
						InitiatorAddress: c.Args().Get(1),
						PublicKeyID:      c.String("public-key-id"),
						PublicKeyX:       c.String("public-key-x"),
						PublicKeyY:       c.String("public-key-y"),
						DeviceData:       &connect.DeviceData{Browser: c.String("browser"), OS: c.String("os"), Platform: c.String("platform")},
					})
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "register-signer",
				Usage:     "Register the stored passkey of --rp-id/--user-name as a wallet signer",
				ArgsUsage: "<wallet>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "browser", Required: true},
					&cli.StringFlag{Name: "os", Required: true},
					&cli.StringFlag{Name: "platform", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					e, p, err := connectParams(c)
					if err != nil {
						return err
					}
					defer e.Close()
					if e.store == nil {
						return errors.Invalid("connect register-signer", errors.ErrInvalidSigner, "--rp-id and --user-name are required")
					}
					pk, err := e.store.Load(e.cfg.Passkey.RPID, e.cfg.Passkey.UserName)
					if err != nil {
						return err
					}
					res, err := e.bridge.ConnectCreateWebAuthnSigner(ctx, p, connect.CreateWebAuthnSignerRequest{
						WalletAddress: c.Args().First(),
						PublicKeyID:   codec.BytesToHex(pk.CredentialID),
						PublicKeyX:    codec.BigToHex(pk.X),
						PublicKeyY:    codec.BigToHex(pk.Y),
						DeviceData:    connect.DeviceData{Browser: c.String("browser"), OS: c.String("os"), Platform: c.String("platform")},
						SignerAddress: e.cfg.Safe.SafeWebAuthnSharedSignerAddress,
					})
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "signers",
				Usage:     "List passkey signers registered for a wallet",
				ArgsUsage: "<wallet>",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, p, err := connectParams(c)
					if err != nil {
						return err
					}
					defer e.Close()
					res, err := e.bridge.ConnectGetPasskeySignersByWalletAddress(ctx, p, c.Args().First())
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify a wallet signature through the API, deployed or not",
				ArgsUsage: "<wallet> <message> <signature>",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, p, err := connectParams(c)
					if err != nil {
						return err
					}
					defer e.Close()
					res, err := e.bridge.ConnectIsValidSignature(ctx, p, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
		},
	}
}
