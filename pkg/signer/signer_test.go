package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/kvstore"
	"github.com/luxfi/safe4337/pkg/passkey"
	"github.com/luxfi/safe4337/pkg/safe"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEOASignerKnownVector(t *testing.T) {
	s, err := NewEOASigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), s.Address())

	digest := common.HexToHash("0x1da44b586eb0729ff70a73c326926f6ed5a25f5b056e7f47fbc6e58d86871655")
	sig, err := s.Sign(context.Background(), digest)
	require.NoError(t, err)
	assert.Equal(t,
		"b91467e570a6466aa9e9876cbcd013baba02900b8979d43fe208a4a4f339f5fd6007e74cd82e037b800186422fc2da167c747ef045e5d18a5f5d4300f8e1a0291c",
		common.Bytes2Hex(sig))

	recoverable := append([]byte(nil), sig...)
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(digest[:], recoverable)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}

func TestEOASignerOwner(t *testing.T) {
	s, err := NewEOASigner(testKey[2:])
	require.NoError(t, err)
	owner := s.SafeOwner()
	assert.Equal(t, safe.OwnerEOA, owner.Kind)
	assert.Equal(t, s.Address(), OnChainOwner(s, safe.DefaultConfig()))
	assert.Equal(t, safe.SignatureEOA, Kind(s))

	dummy, err := s.DummySignature(safe.DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, dummy, 77)
}

func TestNewEOASignerInvalid(t *testing.T) {
	for _, key := range []string{"", "0x", "0x1234", "zz"} {
		_, err := NewEOASigner(key)
		assert.ErrorIs(t, err, errors.ErrInvalidSigner, key)
	}
	_, err := NewEOASigner("0x0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, errors.ErrInvalidSigner)
}

func TestEOASignerCancelled(t *testing.T) {
	s, err := NewEOASigner(testKey)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Sign(ctx, common.Hash{})
	assert.True(t, errors.IsKind(err, errors.KindSigningFailed))
}

func newPasskeyFixture(t *testing.T) (*passkey.SoftwareAuthenticator, *passkey.Store, *PasskeySigner) {
	t.Helper()
	kv, err := kvstore.NewBadgerKVStore(kvstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	auth := passkey.NewSoftwareAuthenticator()
	store := passkey.NewStore(kv)
	s, err := CreatePasskey(context.Background(), auth, auth, store, "wallet.example.com", "alice")
	require.NoError(t, err)
	return auth, store, s
}

func TestPasskeySignerSign(t *testing.T) {
	_, _, s := newPasskeyFixture(t)
	digest := crypto.Keccak256Hash([]byte("safe op"))

	payload, err := s.Sign(context.Background(), digest)
	require.NoError(t, err)

	authData, fields, r, sv, err := passkey.DecodePayload(payload)
	require.NoError(t, err)
	assert.Len(t, authData, 37)
	assert.Contains(t, fields, `"origin":"https://wallet.example.com"`)

	// rebuild what the shared signer verifies on chain
	clientData := passkey.ClientDataJSON(digest[:], "wallet.example.com")
	clientHash := sha256.Sum256(clientData)
	msg := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))
	x, y := s.PublicKey()
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	assert.True(t, ecdsa.Verify(pub, msg[:], r, sv))
	assert.True(t, sv.Cmp(new(big.Int).Rsh(elliptic.P256().Params().N, 1)) <= 0)
}

func TestPasskeySignerOwner(t *testing.T) {
	_, _, s := newPasskeyFixture(t)
	cfg := safe.DefaultConfig()
	assert.Equal(t, safe.OwnerPasskey, s.SafeOwner().Kind)
	assert.Equal(t, cfg.SharedSigner(), OnChainOwner(s, cfg))
	assert.Equal(t, safe.SignaturePasskey, Kind(s))

	dummy, err := s.DummySignature(cfg)
	require.NoError(t, err)
	_, owner, err := safe.DecodeSignature(dummy)
	require.NoError(t, err)
	assert.Equal(t, common.LeftPadBytes(cfg.SharedSigner().Bytes(), 32), owner[:32])
}

func TestPasskeySignerWithoutAuthenticator(t *testing.T) {
	_, _, s := newPasskeyFixture(t)
	x, y := s.PublicKey()
	bare, err := NewPasskeySigner("wallet.example.com", "alice", &passkey.PublicKey{X: x, Y: y}, nil)
	require.NoError(t, err)
	_, err = bare.Sign(context.Background(), common.Hash{1})
	assert.True(t, errors.IsKind(err, errors.KindSigningFailed))
}

func TestFromDescriptor(t *testing.T) {
	auth, store, created := newPasskeyFixture(t)
	r := Resolver{Store: store, Authenticator: auth}

	s, err := r.FromDescriptor(Descriptor{PrivateKey: testKey})
	require.NoError(t, err)
	assert.IsType(t, &EOASigner{}, s)

	s, err = r.FromDescriptor(Descriptor{RPID: "wallet.example.com", UserName: "alice"})
	require.NoError(t, err)
	require.IsType(t, &PasskeySigner{}, s)
	x, y := s.(*PasskeySigner).PublicKey()
	cx, cy := created.PublicKey()
	assert.Zero(t, x.Cmp(cx))
	assert.Zero(t, y.Cmp(cy))

	// explicit coordinates pick up the stored credential id
	d := DescriptorOf(created)
	d.CredentialID = ""
	s, err = r.FromDescriptor(d)
	require.NoError(t, err)
	_, err = s.Sign(context.Background(), common.Hash{7})
	assert.NoError(t, err)

	cases := []Descriptor{
		{},
		{PrivateKey: testKey, RPID: "wallet.example.com", UserName: "alice"},
		{RPID: "wallet.example.com"},
		{RPID: "wallet.example.com", UserName: "bob"},
		{RPID: "wallet.example.com", UserName: "alice", PasskeyX: "0x01"},
	}
	for _, c := range cases {
		_, err := r.FromDescriptor(c)
		assert.ErrorIs(t, err, errors.ErrInvalidSigner, "%+v", c)
	}
}

func TestCoordinates(t *testing.T) {
	_, _, s := newPasskeyFixture(t)
	x, y := Coordinates(s)
	assert.Len(t, x, 66)
	assert.Len(t, y, 66)
}
