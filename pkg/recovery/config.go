// Package recovery encodes the guardian recovery flow built on the Zodiac delay
// module: deterministic module deployment, enabling, guardian lookup and cancellation.
package recovery

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// Config parametrises the delay module deployment.
type Config struct {
	ModuleFactoryAddress string `json:"moduleFactoryAddress" mapstructure:"moduleFactoryAddress"`
	DelayModuleAddress   string `json:"delayModuleAddress" mapstructure:"delayModuleAddress"`
	// RecoveryCooldown is the delay in seconds before a queued recovery can execute.
	RecoveryCooldown uint64 `json:"recoveryCooldown" mapstructure:"recoveryCooldown"`
	// RecoveryExpiration is how long in seconds a queued recovery stays executable.
	RecoveryExpiration uint64 `json:"recoveryExpiration" mapstructure:"recoveryExpiration"`
}

var defaultConfig = Config{
	ModuleFactoryAddress: "0x000000000000aDdB49795b0f9bA5BC298cDda236",
	DelayModuleAddress:   "0xd54895B1121A2eE3f37b502F507631FA1331BED6",
	RecoveryCooldown:     86400,
	RecoveryExpiration:   604800,
}

func DefaultConfig() Config {
	return defaultConfig
}

// NewConfig merges non-zero overrides onto the defaults and validates.
func NewConfig(overrides Config) (Config, error) {
	cfg := DefaultConfig()
	if overrides.ModuleFactoryAddress != "" {
		cfg.ModuleFactoryAddress = overrides.ModuleFactoryAddress
	}
	if overrides.DelayModuleAddress != "" {
		cfg.DelayModuleAddress = overrides.DelayModuleAddress
	}
	if overrides.RecoveryCooldown != 0 {
		cfg.RecoveryCooldown = overrides.RecoveryCooldown
	}
	if overrides.RecoveryExpiration != 0 {
		cfg.RecoveryExpiration = overrides.RecoveryExpiration
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !codec.IsValidEthereumAddress(c.ModuleFactoryAddress) {
		return errors.Invalid("recovery.Config.Validate", errors.ErrInvalidConfig, "invalid moduleFactoryAddress address: %s", c.ModuleFactoryAddress)
	}
	if !codec.IsValidEthereumAddress(c.DelayModuleAddress) {
		return errors.Invalid("recovery.Config.Validate", errors.ErrInvalidConfig, "invalid delayModuleAddress address: %s", c.DelayModuleAddress)
	}
	if c.RecoveryCooldown == 0 {
		return errors.Invalid("recovery.Config.Validate", errors.ErrInvalidConfig, "recoveryCooldown must be greater than 0")
	}
	if c.RecoveryExpiration == 0 {
		return errors.Invalid("recovery.Config.Validate", errors.ErrInvalidConfig, "recoveryExpiration must be greater than 0")
	}
	return nil
}

func (c Config) ModuleFactory() common.Address { return common.HexToAddress(c.ModuleFactoryAddress) }
func (c Config) DelayMasterCopy() common.Address { return common.HexToAddress(c.DelayModuleAddress) }
