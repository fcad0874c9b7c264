package safe

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const safeABIJSON = `[
{"type":"function","name":"setup","stateMutability":"nonpayable","inputs":[
 {"name":"_owners","type":"address[]"},{"name":"_threshold","type":"uint256"},
 {"name":"to","type":"address"},{"name":"data","type":"bytes"},
 {"name":"fallbackHandler","type":"address"},{"name":"paymentToken","type":"address"},
 {"name":"payment","type":"uint256"},{"name":"paymentReceiver","type":"address"}],"outputs":[]},
{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"addOwnerWithThreshold","stateMutability":"nonpayable","inputs":[
 {"name":"owner","type":"address"},{"name":"_threshold","type":"uint256"}],"outputs":[]},
{"type":"function","name":"enableModule","stateMutability":"nonpayable","inputs":[{"name":"module","type":"address"}],"outputs":[]},
{"type":"function","name":"isModuleEnabled","stateMutability":"view","inputs":[{"name":"module","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getModulesPaginated","stateMutability":"view","inputs":[
 {"name":"start","type":"address"},{"name":"pageSize","type":"uint256"}],"outputs":[
 {"name":"array","type":"address[]"},{"name":"next","type":"address"}]},
{"type":"function","name":"isValidSignature","stateMutability":"view","inputs":[
 {"name":"_dataHash","type":"bytes32"},{"name":"_signature","type":"bytes"}],"outputs":[{"name":"","type":"bytes4"}]}
]`

const moduleSetupABIJSON = `[
{"type":"function","name":"enableModules","stateMutability":"nonpayable","inputs":[{"name":"modules","type":"address[]"}],"outputs":[]}
]`

const safe4337ModuleABIJSON = `[
{"type":"function","name":"executeUserOp","stateMutability":"nonpayable","inputs":[
 {"name":"to","type":"address"},{"name":"value","type":"uint256"},
 {"name":"data","type":"bytes"},{"name":"operation","type":"uint8"}],"outputs":[]}
]`

const multiSendABIJSON = `[
{"type":"function","name":"multiSend","stateMutability":"payable","inputs":[{"name":"transactions","type":"bytes"}],"outputs":[]}
]`

const sharedSignerABIJSON = `[
{"type":"function","name":"configure","stateMutability":"nonpayable","inputs":[
 {"name":"signer","type":"tuple","components":[
  {"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"verifiers","type":"uint176"}]}],"outputs":[]}
]`

const proxyFactoryABIJSON = `[
{"type":"function","name":"createProxyWithNonce","stateMutability":"nonpayable","inputs":[
 {"name":"_singleton","type":"address"},{"name":"initializer","type":"bytes"},
 {"name":"saltNonce","type":"uint256"}],"outputs":[{"name":"proxy","type":"address"}]}
]`

const entryPointABIJSON = `[
{"type":"function","name":"getNonce","stateMutability":"view","inputs":[
 {"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

// Parsed once at init; a malformed constant is a programming error.
var (
	SafeABI         = mustParseABI("safe", safeABIJSON)
	ModuleSetupABI  = mustParseABI("module setup", moduleSetupABIJSON)
	Safe4337ABI     = mustParseABI("safe 4337 module", safe4337ModuleABIJSON)
	MultiSendABI    = mustParseABI("multisend", multiSendABIJSON)
	SharedSignerABI = mustParseABI("webauthn shared signer", sharedSignerABIJSON)
	ProxyFactoryABI = mustParseABI("proxy factory", proxyFactoryABIJSON)
	EntryPointABI   = mustParseABI("entrypoint", entryPointABIJSON)
)

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("safe: parse %s abi: %v", name, err))
	}
	return parsed
}

// abi32 left-pads b to a 32-byte slot. Callers bound their values first, so
// a longer input is a programming error and panics rather than truncating.
func abi32(b []byte) []byte {
	if len(b) > 32 {
		panic(fmt.Sprintf("safe: %d byte value does not fit an abi slot", len(b)))
	}
	slot := make([]byte, 32)
	copy(slot[32-len(b):], b)
	return slot
}

func abiAddress(a common.Address) []byte {
	return abi32(a.Bytes())
}

func abiUint256(n *big.Int) []byte {
	if n == nil {
		return make([]byte, 32)
	}
	return abi32(n.Bytes())
}

func abiUint64(n uint64) []byte {
	return abiUint256(new(big.Int).SetUint64(n))
}
