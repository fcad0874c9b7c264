// Package safe encodes everything a Safe smart account needs for ERC-4337:
// deployment setup, counterfactual address prediction, call data, the SafeOp
// EIP-712 hash and the signature layout the Safe4337Module verifies.
package safe

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
)

// EntryPointV07 is the canonical EntryPoint v0.7 deployment.
const EntryPointV07 = "0x0000000071727De22E5E9d8BAf0edAc6f37da032"

// Config is the set of contract addresses an account deployment is built from.
// Values keep the caller's casing.
type Config struct {
	SafeModuleSetupAddress           string `json:"safeModuleSetupAddress" mapstructure:"safeModuleSetupAddress"`
	Safe4337ModuleAddress            string `json:"safe4337ModuleAddress" mapstructure:"safe4337ModuleAddress"`
	SafeSingletonL2Address           string `json:"safeSingletonL2Address" mapstructure:"safeSingletonL2Address"`
	SafeProxyFactoryAddress          string `json:"safeProxyFactoryAddress" mapstructure:"safeProxyFactoryAddress"`
	SafeWebAuthnSharedSignerAddress  string `json:"safeWebAuthnSharedSignerAddress" mapstructure:"safeWebAuthnSharedSignerAddress"`
	SafeMultiSendAddress             string `json:"safeMultiSendAddress" mapstructure:"safeMultiSendAddress"`
	SafeP256VerifierAddress          string `json:"safeP256VerifierAddress" mapstructure:"safeP256VerifierAddress"`
	SafeWebauthnSignerFactoryAddress string `json:"safeWebauthnSignerFactoryAddress" mapstructure:"safeWebauthnSignerFactoryAddress"`
	EntryPointAddress                string `json:"entryPointAddress,omitempty" mapstructure:"entryPointAddress"`
}

var defaultConfig = Config{
	SafeModuleSetupAddress:           "0x2dd68b007B46fBe91B9A7c3EDa5A7a1063cB5b47",
	Safe4337ModuleAddress:            "0x75cf11467937ce3F2f357CE24ffc3DBF8fD5c226",
	SafeSingletonL2Address:           "0x29fcB43b46531BcA003ddC8FCB67FFE91900C762",
	SafeProxyFactoryAddress:          "0x4e1DCf7AD4e460CfD30791CCC4F9c8a4f820ec67",
	SafeWebAuthnSharedSignerAddress:  "0xfD90FAd33ee8b58f32c00aceEad1358e4AFC23f9",
	SafeMultiSendAddress:             "0x38869bf66a61cF6bDB996A6aE40D5853Fd43B526",
	SafeP256VerifierAddress:          "0x445a0683e494ea0c5AF3E83c5159fBE47Cf9e765",
	SafeWebauthnSignerFactoryAddress: "0xF7488fFbe67327ac9f37D5F722d83Fc900852Fbf",
	EntryPointAddress:                EntryPointV07,
}

// DefaultConfig returns the well-known Safe 1.4.1 / 4337 module v0.3 deployment.
func DefaultConfig() Config {
	return defaultConfig
}

// NewConfig merges overrides onto the defaults field by field and validates the result.
func NewConfig(overrides Config) (Config, error) {
	cfg := DefaultConfig()
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&cfg.SafeModuleSetupAddress, overrides.SafeModuleSetupAddress)
	merge(&cfg.Safe4337ModuleAddress, overrides.Safe4337ModuleAddress)
	merge(&cfg.SafeSingletonL2Address, overrides.SafeSingletonL2Address)
	merge(&cfg.SafeProxyFactoryAddress, overrides.SafeProxyFactoryAddress)
	merge(&cfg.SafeWebAuthnSharedSignerAddress, overrides.SafeWebAuthnSharedSignerAddress)
	merge(&cfg.SafeMultiSendAddress, overrides.SafeMultiSendAddress)
	merge(&cfg.SafeP256VerifierAddress, overrides.SafeP256VerifierAddress)
	merge(&cfg.SafeWebauthnSignerFactoryAddress, overrides.SafeWebauthnSignerFactoryAddress)
	merge(&cfg.EntryPointAddress, overrides.EntryPointAddress)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every required address is present and well formed.
// EntryPointAddress may be empty, in which case EntryPoint() falls back to v0.7.
func (c Config) Validate() error {
	for _, f := range c.fields() {
		if f.value == "" && f.name == "entryPointAddress" {
			continue
		}
		if !codec.IsValidEthereumAddress(f.value) {
			return errors.Invalid("safe.Config.Validate", errors.ErrInvalidConfig, "invalid %s address: %s", f.name, f.value)
		}
	}
	return nil
}

type configField struct {
	name  string
	value string
}

func (c Config) fields() []configField {
	return []configField{
		{"safeModuleSetupAddress", c.SafeModuleSetupAddress},
		{"safe4337ModuleAddress", c.Safe4337ModuleAddress},
		{"safeSingletonL2Address", c.SafeSingletonL2Address},
		{"safeProxyFactoryAddress", c.SafeProxyFactoryAddress},
		{"safeWebAuthnSharedSignerAddress", c.SafeWebAuthnSharedSignerAddress},
		{"safeMultiSendAddress", c.SafeMultiSendAddress},
		{"safeP256VerifierAddress", c.SafeP256VerifierAddress},
		{"safeWebauthnSignerFactoryAddress", c.SafeWebauthnSignerFactoryAddress},
		{"entryPointAddress", c.EntryPointAddress},
	}
}

func (c Config) ModuleSetup() common.Address { return common.HexToAddress(c.SafeModuleSetupAddress) }
func (c Config) Module() common.Address { return common.HexToAddress(c.Safe4337ModuleAddress) }
func (c Config) Singleton() common.Address { return common.HexToAddress(c.SafeSingletonL2Address) }
func (c Config) ProxyFactory() common.Address { return common.HexToAddress(c.SafeProxyFactoryAddress) }
func (c Config) SharedSigner() common.Address { return common.HexToAddress(c.SafeWebAuthnSharedSignerAddress) }
func (c Config) MultiSend() common.Address { return common.HexToAddress(c.SafeMultiSendAddress) }
func (c Config) P256Verifier() common.Address { return common.HexToAddress(c.SafeP256VerifierAddress) }
func (c Config) SignerFactory() common.Address { return common.HexToAddress(c.SafeWebauthnSignerFactoryAddress) }

// EntryPoint returns the configured EntryPoint, defaulting to v0.7.
func (c Config) EntryPoint() common.Address {
	if c.EntryPointAddress == "" {
		return common.HexToAddress(EntryPointV07)
	}
	return common.HexToAddress(c.EntryPointAddress)
}
