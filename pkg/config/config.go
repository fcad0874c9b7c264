// Package config loads runtime settings from config.yaml and SAFE4337_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/recovery"
	"github.com/luxfi/safe4337/pkg/safe"
)

// EnvPrefix is prepended to every environment override, e.g. SAFE4337_BUNDLER_URL.
const EnvPrefix = "SAFE4337"

// Config is the typed view of the viper settings.
type Config struct {
	Environment  string          `mapstructure:"environment"`
	Debug        bool            `mapstructure:"debug"`
	ChainID      uint64          `mapstructure:"chain_id"`
	RPCURL       string          `mapstructure:"rpc_url"`
	BundlerURL   string          `mapstructure:"bundler_url"`
	PaymasterURL string          `mapstructure:"paymaster_url"`
	Address      string          `mapstructure:"address"`
	PrivateKey   string          `mapstructure:"private_key"`
	DataDir      string          `mapstructure:"data_dir"`
	Safe         safe.Config     `mapstructure:"safe"`
	Recovery     recovery.Config `mapstructure:"recovery"`
	Passkey      PasskeyConfig   `mapstructure:"passkey"`
	Connect      ConnectConfig   `mapstructure:"connect"`
	Poll         PollConfig      `mapstructure:"poll"`
}

type PasskeyConfig struct {
	RPID     string `mapstructure:"rp_id"`
	UserName string `mapstructure:"user_name"`
}

type ConnectConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)
	v.SetDefault("chain_id", 0)
	v.SetDefault("rpc_url", "")
	v.SetDefault("bundler_url", "")
	v.SetDefault("paymaster_url", "")
	v.SetDefault("address", "")
	// normally supplied as SAFE4337_PRIVATE_KEY, never written to config.yaml
	v.SetDefault("private_key", "")
	v.SetDefault("data_dir", defaultDataDir())

	d := safe.DefaultConfig()
	v.SetDefault("safe.safeModuleSetupAddress", d.SafeModuleSetupAddress)
	v.SetDefault("safe.safe4337ModuleAddress", d.Safe4337ModuleAddress)
	v.SetDefault("safe.safeSingletonL2Address", d.SafeSingletonL2Address)
	v.SetDefault("safe.safeProxyFactoryAddress", d.SafeProxyFactoryAddress)
	v.SetDefault("safe.safeWebAuthnSharedSignerAddress", d.SafeWebAuthnSharedSignerAddress)
	v.SetDefault("safe.safeMultiSendAddress", d.SafeMultiSendAddress)
	v.SetDefault("safe.safeP256VerifierAddress", d.SafeP256VerifierAddress)
	v.SetDefault("safe.safeWebauthnSignerFactoryAddress", d.SafeWebauthnSignerFactoryAddress)
	v.SetDefault("safe.entryPointAddress", d.EntryPointAddress)

	r := recovery.DefaultConfig()
	v.SetDefault("recovery.moduleFactoryAddress", r.ModuleFactoryAddress)
	v.SetDefault("recovery.delayModuleAddress", r.DelayModuleAddress)
	v.SetDefault("recovery.recoveryCooldown", r.RecoveryCooldown)
	v.SetDefault("recovery.recoveryExpiration", r.RecoveryExpiration)

	v.SetDefault("passkey.rp_id", "")
	v.SetDefault("passkey.user_name", "")
	v.SetDefault("connect.base_url", "https://api.connect.cometh.io")
	v.SetDefault("connect.api_key", "")
	v.SetDefault("poll.interval", time.Second)
	v.SetDefault("poll.timeout", 30*time.Second)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".safe4337"
	}
	return filepath.Join(home, ".safe4337")
}

// InitViperConfig wires the global viper instance: defaults, config.yaml from
// the working directory or ~/.safe4337, then environment overrides.
func InitViperConfig() {
	initViper(viper.GetViper())
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logger.Warn("Failed to read config file", "error", err.Error())
		}
		return
	}
	logger.Debug("Loaded config file", "path", viper.ConfigFileUsed())
}

func initViper(v *viper.Viper) {
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultDataDir())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the global viper state into a validated Config.
func Load() (*Config, error) {
	return decode(viper.GetViper())
}

// LoadFile reads a specific config file into a fresh viper instance.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	initViper(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields every command relies on. Endpoints are checked by
// the commands that need them.
func (c *Config) Validate() error {
	if err := c.Safe.Validate(); err != nil {
		return err
	}
	if err := c.Recovery.Validate(); err != nil {
		return err
	}
	if c.Address != "" {
		if err := codec.RequireHexAddress("address", c.Address); err != nil {
			return err
		}
	}
	if c.Poll.Interval <= 0 || c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll interval and timeout must be positive")
	}
	return nil
}

// RequireEndpoints fails when chain id, RPC or bundler URL are unset.
func (c *Config) RequireEndpoints() error {
	var missing []string
	if c.ChainID == 0 {
		missing = append(missing, "chain_id")
	}
	if c.RPCURL == "" {
		missing = append(missing, "rpc_url")
	}
	if c.BundlerURL == "" {
		missing = append(missing, "bundler_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
