package safe

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/passkey"
	"github.com/luxfi/safe4337/pkg/userop"
)

// Constants hard-coded in the deployed Safe4337Module v0.3.0 and the Safe
// 1.4.1 CompatibilityFallbackHandler.
func TestTypehashesMatchDeployedContracts(t *testing.T) {
	assert.Equal(t, "0xc03dfc11d8b10bf9cf703d558958c8c42777f785d998c62060d85a4f0ef6ea7f", hexutil.Encode(safeOpTypehash))
	assert.Equal(t, "0x47e79534a245952e8b16893a336b85a3d9ea9fa8c573f3d803afb92a79469218", hexutil.Encode(domainTypehash))
	assert.Equal(t, "0x60b3cbf8b4a223d68d641b3b6ddf9a298e7f33710cf3d3a9d1146b5a6150fbca", hexutil.Encode(safeMessageTypehash))
}

func TestSelectorsMatchDeployedContracts(t *testing.T) {
	cases := []struct {
		contract abi.ABI
		method   string
		want     string
	}{
		{SafeABI, "setup", "0xb63e800d"},
		{SafeABI, "getOwners", "0xa0e67e2b"},
		{SafeABI, "addOwnerWithThreshold", "0x0d582f13"},
		{SafeABI, "getModulesPaginated", "0xcc2f8452"},
		{SafeABI, "isValidSignature", "0x1626ba7e"},
		{ModuleSetupABI, "enableModules", "0x8d0dc49f"},
		{Safe4337ABI, "executeUserOp", "0x7bb37428"},
		{MultiSendABI, "multiSend", "0x8d80ff0a"},
		{SharedSignerABI, "configure", "0x0dd9692f"},
		{ProxyFactoryABI, "createProxyWithNonce", "0x1688f0b9"},
		{EntryPointABI, "getNonce", "0x35567e1a"},
	}
	for _, c := range cases {
		m, ok := c.contract.Methods[c.method]
		require.True(t, ok, c.method)
		assert.Equal(t, c.want, hexutil.Encode(m.ID), c.method)
	}
	assert.Equal(t, common.FromHex("0x1626ba7e"), MagicValueERC1271[:])
}

func TestProxyCreationCodeFixture(t *testing.T) {
	// The constructor copies its argument from offset 0x1e6, the code length.
	require.Len(t, ProxyCreationCode, 0x1e6)
	assert.Equal(t,
		"0x079ca6357e5a72240346fd9c182d0c0360ddf5c37bcec2eeb954545e8742f331",
		crypto.Keccak256Hash(ProxyCreationCode).Hex(),
	)
}

func TestSetupDataFixtures(t *testing.T) {
	eoa, err := SetupData(testOwner, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "0xe1e0a41cd5ce8c717f387d88bfa32c5bd2dfb81917d9bbe7282ab8f997af129b", crypto.Keccak256Hash(eoa).Hex())

	pk, err := SetupData(testPasskey, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "0xcf4eed1ffa527f1115c8e5b894880684474f280b0f333ab757bd67549f8a03b1", crypto.Keccak256Hash(pk).Hex())
}

func TestPredictAddressFixtures(t *testing.T) {
	eoa, err := PredictAddress(testOwner, DefaultConfig(), testChain)
	require.NoError(t, err)
	assert.Equal(t, "0x612C490C47cda5738610D93aF97e52eaf6F54746", eoa.Hex())

	pk, err := PredictAddress(testPasskey, DefaultConfig(), testChain)
	require.NoError(t, err)
	assert.Equal(t, "0xcD06d92123d2cec631CC1C4b82b1c48c3c126f50", pk.Hex())
}

var fixtureWindow = ValidityWindow{ValidAfter: 1700000000, ValidUntil: 1800000000}

// fixtureFirstOp is the deploying operation of the EOA Safe above: one call
// sending 1 wei, sponsored by a paymaster.
func fixtureFirstOp(t *testing.T) *userop.UserOperation {
	t.Helper()
	cfg := DefaultConfig()
	factoryData, err := FactoryData(testOwner, cfg)
	require.NoError(t, err)
	callData, err := ExecuteUserOp(Call{To: common.HexToAddress("0x2f920a66C2f9760f6fE5F49b289322Ddf60f9103"), Value: big.NewInt(1)})
	require.NoError(t, err)
	return &userop.UserOperation{
		Sender:                        "0x612C490C47cda5738610D93aF97e52eaf6F54746",
		Nonce:                         "0x0",
		Factory:                       cfg.SafeProxyFactoryAddress,
		FactoryData:                   hexutil.Encode(factoryData),
		CallData:                      hexutil.Encode(callData),
		CallGasLimit:                  "0x186a0",
		VerificationGasLimit:          "0x493e0",
		PreVerificationGas:            "0xc350",
		MaxFeePerGas:                  "0x3b9aca00",
		MaxPriorityFeePerGas:          "0x5f5e100",
		Paymaster:                     otherAddr,
		PaymasterVerificationGasLimit: "0x186a0",
		PaymasterPostOpGasLimit:       "0xc350",
		PaymasterData:                 "0xbeef",
	}
}

func TestExecuteUserOpFixture(t *testing.T) {
	op := fixtureFirstOp(t)
	want := "0x7bb37428" +
		"0000000000000000000000002f920a66c2f9760f6fe5f49b289322ddf60f9103" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000080" +
		strings.Repeat("0", 64) +
		strings.Repeat("0", 64)
	assert.Equal(t, want, op.CallData)
}

func TestHashUserOperationFixtures(t *testing.T) {
	h, err := HashUserOperation(testUserOp(), testChain, DefaultConfig(), ValidityWindow{})
	require.NoError(t, err)
	assert.Equal(t, "0xe0b09f4b6eeb631df549d6df909035d64689af10ef7fb5c63aa26aad58601f2a", h.Hex())

	h, err = HashUserOperation(fixtureFirstOp(t), testChain, DefaultConfig(), fixtureWindow)
	require.NoError(t, err)
	assert.Equal(t, "0x0343046cca767609efb222f8d1d7ca712c15c1489442c19fbc8c816203db32f6", h.Hex())
}

func TestPasskeySignatureFixture(t *testing.T) {
	authData := append(common.FromHex(strings.Repeat("49", 32)), 0x05, 0x00, 0x00, 0x00, 0x07)
	r := new(big.Int).SetBytes(common.FromHex(strings.Repeat("11", 32)))
	s := new(big.Int).SetBytes(common.FromHex(strings.Repeat("22", 32)))
	payload, err := passkey.EncodePayload(authData, `"origin":"https://example.com","crossOrigin":false`, r, s)
	require.NoError(t, err)
	require.Len(t, payload, 320)

	sig, err := EncodeSignature(payload, SignaturePasskey, DefaultConfig(), fixtureWindow)
	require.NoError(t, err)
	require.Len(t, sig, 429)
	assert.Equal(t,
		"0x00006553f10000006b49d200"+
			"000000000000000000000000fd90fad33ee8b58f32c00aceead1358e4afc23f9"+
			"0000000000000000000000000000000000000000000000000000000000000041"+
			"00"+
			"0000000000000000000000000000000000000000000000000000000000000140"+
			"0000000000000000000000000000000000000000000000000000000000000080",
		hexutil.Encode(sig[:12+97+32]),
	)
	assert.Equal(t, "0x5e84cb7339edc6a3e1c78b810a593dfe7cdf6077798b90a4edcacbd8f2d5f40d", crypto.Keccak256Hash(sig).Hex())
}
