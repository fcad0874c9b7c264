package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/safe4337/pkg/bridge"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/signer"
	"github.com/luxfi/safe4337/pkg/userop"
)

func txFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "Call target", Required: true},
		&cli.StringFlag{Name: "value", Usage: "Wei to send, hex", Value: "0x0"},
		&cli.StringFlag{Name: "data", Usage: "Call data, hex", Value: "0x"},
		&cli.BoolFlag{Name: "delegate-call", Usage: "Execute as DELEGATECALL"},
	}
}

func txFromFlags(c *cli.Command) userop.TransactionParams {
	return userop.TransactionParams{
		To:           c.String("to"),
		Value:        c.String("value"),
		Data:         c.String("data"),
		DelegateCall: c.Bool("delegate-call"),
	}
}

// parseTx reads "to[,value[,data[,delegatecall]]]".
func parseTx(s string) (userop.TransactionParams, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 4 || parts[0] == "" {
		return userop.TransactionParams{}, errors.Invalid("parseTx", errors.ErrInvalidTransactionParams, "expected to[,value[,data[,delegatecall]]], got %q", s)
	}
	tx := userop.TransactionParams{To: parts[0]}
	if len(parts) > 1 {
		tx.Value = parts[1]
	}
	if len(parts) > 2 {
		tx.Data = parts[2]
	}
	if len(parts) > 3 {
		switch parts[3] {
		case "delegatecall", "true":
			tx.DelegateCall = true
		case "call", "false", "":
		default:
			return userop.TransactionParams{}, errors.Invalid("parseTx", errors.ErrInvalidTransactionParams, "unknown operation %q", parts[3])
		}
	}
	tx = tx.WithDefaults()
	return tx, tx.Validate()
}

func predictAddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict-address",
		Usage: "Print the counterfactual Safe address of the signer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "passkey-x", Usage: "Passkey public key x coordinate, hex"},
			&cli.StringFlag{Name: "passkey-y", Usage: "Passkey public key y coordinate, hex"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := newEnv(c, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.cfg.ChainID == 0 {
				return errors.Invalid("predict-address", errors.ErrInvalidConfig, "chain_id is required")
			}
			var desc signer.Descriptor
			if x, y := c.String("passkey-x"), c.String("passkey-y"); x != "" || y != "" {
				desc = signer.Descriptor{RPID: e.cfg.Passkey.RPID, UserName: e.cfg.Passkey.UserName, PasskeyX: x, PasskeyY: y}
			} else if desc, err = e.descriptor(c); err != nil {
				return err
			}
			addr, err := e.bridge.PredictAddress(ctx, e.cfg.ChainID, e.cfg.RPCURL, desc, e.cfg.Safe)
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
}

func prepareCommand() *cli.Command {
	return &cli.Command{
		Name:  "prepare",
		Usage: "Build an unsigned user operation for one call",
		Flags: txFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				op, err := e.bridge.PrepareUserOperation(ctx, p, txFromFlags(c))
				if err != nil {
					return err
				}
				return printJSON(op)
			})
		},
	}
}

func waitFlag() cli.Flag {
	return &cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Wait for the receipt"}
}

// submitted prints the hash and, with --wait, the receipt.
func submitted(ctx context.Context, c *cli.Command, e *env, p bridge.CommonParams, hash string) error {
	if !c.Bool("wait") {
		fmt.Println(hash)
		return nil
	}
	r, err := e.bridge.WaitForReceipt(ctx, p, hash)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Prepare, sign and submit one call",
		Flags: append(txFlags(), waitFlag()),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				hash, err := e.bridge.SendUserOperation(ctx, p, txFromFlags(c))
				if err != nil {
					return err
				}
				return submitted(ctx, c, e, p, hash)
			})
		},
	}
}

func sendMultiCommand() *cli.Command {
	return &cli.Command{
		Name:      "send-multi",
		Usage:     "Submit several calls as one MultiSend user operation",
		ArgsUsage: "to[,value[,data[,delegatecall]]]...",
		Flags:     []cli.Flag{waitFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return errors.Invalid("send-multi", errors.ErrInvalidTransactionParams, "at least one transaction is required")
			}
			txs := make([]userop.TransactionParams, 0, c.NArg())
			for _, arg := range c.Args().Slice() {
				tx, err := parseTx(arg)
				if err != nil {
					return err
				}
				txs = append(txs, tx)
			}
			return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				hash, err := e.bridge.SendMultiSendUserOperation(ctx, p, txs)
				if err != nil {
					return err
				}
				return submitted(ctx, c, e, p, hash)
			})
		},
	}
}

func receiptCommand() *cli.Command {
	return &cli.Command{
		Name:      "receipt",
		Usage:     "Show the receipt of a user operation",
		ArgsUsage: "<userOpHash>",
		Flags:     []cli.Flag{waitFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			hash := c.Args().First()
			if c.Bool("wait") {
				return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
					r, err := e.bridge.WaitForReceipt(ctx, p, hash)
					if err != nil {
						return err
					}
					return printJSON(r)
				})
			}
			e, err := newEnv(c, false)
			if err != nil {
				return err
			}
			defer e.Close()
			r, err := e.bridge.EthGetUserOperationReceipt(ctx, e.cfg.BundlerURL, hash)
			if err != nil {
				return err
			}
			return printJSON(r)
		},
	}
}

func userOpCommand() *cli.Command {
	return &cli.Command{
		Name:      "userop",
		Usage:     "Look up a user operation by hash",
		ArgsUsage: "<userOpHash>",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := newEnv(c, false)
			if err != nil {
				return err
			}
			defer e.Close()
			op, err := e.bridge.EthGetUserOperationByHash(ctx, e.cfg.BundlerURL, c.Args().First())
			if err != nil {
				return err
			}
			return printJSON(op)
		},
	}
}

func ownersCommand() *cli.Command {
	return &cli.Command{
		Name:  "owners",
		Usage: "List the Safe owners",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				owners, err := e.bridge.GetOwners(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(owners)
			})
		},
	}
}

func deployedCommand() *cli.Command {
	return &cli.Command{
		Name:  "deployed",
		Usage: "Report whether the Safe is deployed",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				deployed, err := e.bridge.IsDeployed(ctx, p)
				if err != nil {
					return err
				}
				fmt.Println(deployed)
				return nil
			})
		},
	}
}

func addOwnerCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-owner",
		Usage:     "Add an owner, keeping threshold 1",
		ArgsUsage: "<owner>",
		Flags:     []cli.Flag{waitFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				hash, err := e.bridge.AddOwner(ctx, p, c.Args().First())
				if err != nil {
					return err
				}
				return submitted(ctx, c, e, p, hash)
			})
		},
	}
}

func signMessageCommand() *cli.Command {
	return &cli.Command{
		Name:      "sign-message",
		Usage:     "Sign a message for ERC-1271 verification by the Safe",
		ArgsUsage: "<message>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withSigningEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				sig, err := e.bridge.SignMessage(ctx, p, c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(sig)
				return nil
			})
		},
	}
}

func verifyMessageCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify-message",
		Usage:     "Ask the Safe whether a message signature is valid",
		ArgsUsage: "<message> <signature>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEnv(ctx, c, func(ctx context.Context, e *env, p bridge.CommonParams) error {
				ok, err := e.bridge.IsValidSignature(ctx, p, c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Println(ok)
				return nil
			})
		},
	}
}
