package safe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/common/errors"
)

// OwnerKind selects how the Safe is owned.
type OwnerKind int

const (
	// OwnerEOA is a single secp256k1 key owner.
	OwnerEOA OwnerKind = iota
	// OwnerPasskey is a P-256 key registered on the WebAuthn shared signer.
	OwnerPasskey
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerEOA:
		return "eoa"
	case OwnerPasskey:
		return "passkey"
	default:
		return fmt.Sprintf("OwnerKind(%d)", int(k))
	}
}

// Owner is the public identity a Safe is set up with.
type Owner struct {
	Kind OwnerKind
	EOA  common.Address
	X, Y *big.Int
}

// EOAOwner builds an owner for an externally owned account.
func EOAOwner(addr common.Address) Owner {
	return Owner{Kind: OwnerEOA, EOA: addr}
}

// PasskeyOwner builds an owner for a P-256 public key.
func PasskeyOwner(x, y *big.Int) Owner {
	return Owner{Kind: OwnerPasskey, X: x, Y: y}
}

// OnChainOwner is the address listed in the Safe owner set: the EOA itself, or
// the shared signer contract for a passkey.
func (o Owner) OnChainOwner(cfg Config) common.Address {
	if o.Kind == OwnerPasskey {
		return cfg.SharedSigner()
	}
	return o.EOA
}

func (o Owner) validate() error {
	switch o.Kind {
	case OwnerEOA:
		if o.EOA == (common.Address{}) {
			return errors.Invalid("safe.Owner", errors.ErrInvalidSigner, "eoa owner has zero address")
		}
	case OwnerPasskey:
		if o.X == nil || o.Y == nil || o.X.Sign() <= 0 || o.Y.Sign() <= 0 {
			return errors.Invalid("safe.Owner", errors.ErrInvalidSigner, "passkey owner needs x and y")
		}
	default:
		return errors.Invalid("safe.Owner", errors.ErrInvalidSigner, "unknown owner kind %v", o.Kind)
	}
	return nil
}

// sharedSignerConfig mirrors the configure((uint256,uint256,uint176)) tuple.
type sharedSignerConfig struct {
	X         *big.Int
	Y         *big.Int
	Verifiers *big.Int
}

// SetupData returns the Safe.setup initializer for owner. The 4337 module is
// enabled through the module setup contract and doubles as fallback handler.
// For a passkey the setup also configures the shared signer with (x, y, verifier)
// in the same delegatecall batch.
func SetupData(owner Owner, cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := owner.validate(); err != nil {
		return nil, err
	}

	enableModules, err := ModuleSetupABI.Pack("enableModules", []common.Address{cfg.Module()})
	if err != nil {
		return nil, fmt.Errorf("pack enableModules: %w", err)
	}

	to := cfg.ModuleSetup()
	data := enableModules

	if owner.Kind == OwnerPasskey {
		configure, err := SharedSignerABI.Pack("configure", sharedSignerConfig{
			X:         owner.X,
			Y:         owner.Y,
			Verifiers: new(big.Int).SetBytes(cfg.P256Verifier().Bytes()),
		})
		if err != nil {
			return nil, fmt.Errorf("pack configure: %w", err)
		}
		batch, err := EncodeMultiSend([]Call{
			{To: cfg.ModuleSetup(), Data: enableModules, Operation: DelegateCall},
			{To: cfg.SharedSigner(), Data: configure, Operation: DelegateCall},
		})
		if err != nil {
			return nil, err
		}
		to = cfg.MultiSend()
		data = batch
	}

	zero := common.Address{}
	setup, err := SafeABI.Pack("setup",
		[]common.Address{owner.OnChainOwner(cfg)},
		big.NewInt(1),
		to,
		data,
		cfg.Module(),
		zero,
		big.NewInt(0),
		zero,
	)
	if err != nil {
		return nil, fmt.Errorf("pack setup: %w", err)
	}
	return setup, nil
}
