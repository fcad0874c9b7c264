package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/luxfi/safe4337/pkg/bridge"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/common/pathutil"
	"github.com/luxfi/safe4337/pkg/config"
	"github.com/luxfi/safe4337/pkg/kvstore"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/passkey"
	"github.com/luxfi/safe4337/pkg/signer"
	"github.com/luxfi/safe4337/pkg/utils"
)

// env is everything a command needs, resolved from config, environment and flags.
type env struct {
	cfg    *config.Config
	kv     *kvstore.BadgerKVStore
	store  *passkey.Store
	bridge *bridge.Bridge
}

func (e *env) Close() {
	if e.kv != nil {
		if err := e.kv.Close(); err != nil {
			logger.Warn("Failed to close passkey store", "error", err.Error())
		}
	}
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(c *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		config.InitViperConfig()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Environment, cfg.Debug || c.Bool("debug"))

	if c.IsSet("chain-id") {
		cfg.ChainID = c.Uint("chain-id")
	}
	overrides := map[string]*string{
		"rpc-url":       &cfg.RPCURL,
		"bundler-url":   &cfg.BundlerURL,
		"paymaster-url": &cfg.PaymasterURL,
		"address":       &cfg.Address,
		"rp-id":         &cfg.Passkey.RPID,
		"user-name":     &cfg.Passkey.UserName,
	}
	for flag, dst := range overrides {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	return cfg, nil
}

// newEnv loads config and opens the passkey store. The store is opened only
// when withStore is set, since badger holds a directory lock.
func newEnv(c *cli.Command, withStore bool) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}
	if withStore || cfg.Passkey.RPID != "" {
		if err := e.openStore(); err != nil {
			return nil, err
		}
	}
	e.bridge = bridge.New(bridge.Options{
		Store:        e.store,
		PollInterval: cfg.Poll.Interval,
		PollTimeout:  cfg.Poll.Timeout,
	})
	return e, nil
}

func (e *env) openStore() error {
	path, err := pathutil.Join(e.cfg.DataDir, "passkeys")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("create passkey store directory: %w", err)
	}
	kv, err := kvstore.NewBadgerKVStore(kvstore.BadgerConfig{DBPath: path})
	if err != nil {
		return err
	}
	e.kv = kv
	e.store = passkey.NewStore(kv)
	return nil
}

// descriptor picks the signer: a stored passkey when an rp id is configured,
// otherwise the private key from the environment or an interactive prompt.
func (e *env) descriptor(c *cli.Command) (signer.Descriptor, error) {
	if e.cfg.Passkey.RPID != "" {
		return signer.Descriptor{RPID: e.cfg.Passkey.RPID, UserName: e.cfg.Passkey.UserName}, nil
	}
	key := e.cfg.PrivateKey
	if c.Bool("prompt-key") {
		prompted, err := promptPrivateKey()
		if err != nil {
			return signer.Descriptor{}, err
		}
		key = prompted
	}
	return signer.Descriptor{PrivateKey: key}, nil
}

func (e *env) params(c *cli.Command) (bridge.CommonParams, error) {
	if err := e.cfg.RequireEndpoints(); err != nil {
		return bridge.CommonParams{}, err
	}
	desc, err := e.descriptor(c)
	if err != nil {
		return bridge.CommonParams{}, err
	}
	return bridge.CommonParams{
		ChainID:      e.cfg.ChainID,
		RPCURL:       e.cfg.RPCURL,
		BundlerURL:   e.cfg.BundlerURL,
		PaymasterURL: e.cfg.PaymasterURL,
		Address:      e.cfg.Address,
		Config:       e.cfg.Safe,
		Signer:       desc,
	}, nil
}

func promptPrivateKey() (string, error) {
	fmt.Fprint(os.Stderr, "Enter owner private key (hex): ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}
	trimmed := strings.TrimSpace(string(key))
	if trimmed == "" {
		return "", fmt.Errorf("private key cannot be empty")
	}
	fmt.Fprintf(os.Stderr, "Using key %s\n", utils.MaskSecret(trimmed))
	return trimmed, nil
}

// withEnv runs fn with a fully resolved account environment.
func withEnv(ctx context.Context, c *cli.Command, fn func(ctx context.Context, e *env, p bridge.CommonParams) error) error {
	return runEnv(ctx, c, false, fn)
}

// withSigningEnv is withEnv for commands that produce an owner signature.
func withSigningEnv(ctx context.Context, c *cli.Command, fn func(ctx context.Context, e *env, p bridge.CommonParams) error) error {
	return runEnv(ctx, c, true, fn)
}

func runEnv(ctx context.Context, c *cli.Command, signs bool, fn func(ctx context.Context, e *env, p bridge.CommonParams) error) error {
	e, err := newEnv(c, false)
	if err != nil {
		return err
	}
	defer e.Close()
	if signs {
		if err := requireLocalSigner(c.Name, e.cfg); err != nil {
			return err
		}
	}
	p, err := e.params(c)
	if err != nil {
		return err
	}
	return fn(ctx, e, p)
}

// requireLocalSigner rejects passkey owners for signing commands. The CLI has
// no platform authenticator, so a passkey can predict and read but not sign.
func requireLocalSigner(command string, cfg *config.Config) error {
	if cfg.Passkey.RPID == "" {
		return nil
	}
	return errors.Invalid(command, errors.ErrInvalidSigner,
		"passkey %q cannot sign from the command line: no platform authenticator; unset --rp-id and use SAFE4337_PRIVATE_KEY or --prompt-key",
		cfg.Passkey.RPID)
}
