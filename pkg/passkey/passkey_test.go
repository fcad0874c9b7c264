package passkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/kvstore"
)

const testRPID = "wallet.example.com"

func TestClientDataFields(t *testing.T) {
	challenge := []byte{0x01, 0x02, 0x03}
	cd := ClientDataJSON(challenge, testRPID)
	assert.Equal(t, `{"type":"webauthn.get","challenge":"AQID","origin":"https://wallet.example.com","crossOrigin":false}`, string(cd))

	fields, err := ClientDataFields(cd, challenge)
	require.NoError(t, err)
	assert.Equal(t, `"origin":"https://wallet.example.com","crossOrigin":false`, fields)

	_, err = ClientDataFields(cd, []byte{0x09})
	assert.Error(t, err)
	_, err = ClientDataFields(cd[:len(cd)-1], challenge)
	assert.Error(t, err)
}

func TestParseDERSignature(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("safe op"))

	der, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	require.NoError(t, err)

	r, s, err := ParseDERSignature(der)
	require.NoError(t, err)
	assert.True(t, ecdsa.Verify(&key.PublicKey, digest[:], r, s))

	low := NormalizeS(s)
	assert.True(t, low.Cmp(p256HalfN) <= 0)
	assert.True(t, ecdsa.Verify(&key.PublicKey, digest[:], r, low))

	high := new(big.Int).Sub(p256N, low)
	assert.Equal(t, 0, NormalizeS(high).Cmp(low))

	_, _, err = ParseDERSignature(append(der, 0x00))
	assert.Error(t, err)
	_, _, err = ParseDERSignature([]byte{0x30, 0x00})
	assert.Error(t, err)
}

func TestSoftwareAuthenticatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	auth := NewSoftwareAuthenticator()

	att, err := auth.Register(ctx, RegistrationRequest{RPID: testRPID, UserName: "alice"})
	require.NoError(t, err)

	pk, err := ParseAttestationObject(att.AttestationObject, testRPID)
	require.NoError(t, err)
	assert.Equal(t, att.CredentialID, pk.CredentialID)
	assert.True(t, elliptic.P256().IsOnCurve(pk.X, pk.Y))

	_, err = ParseAttestationObject(att.AttestationObject, "other.example.com")
	assert.Error(t, err)

	challenge := sha256.Sum256([]byte("digest"))
	cd := ClientDataJSON(challenge[:], testRPID)
	assertion, err := auth.GetAssertion(ctx, testRPID, pk.CredentialID, cd)
	require.NoError(t, err)

	r, s, err := ParseDERSignature(assertion.Signature)
	require.NoError(t, err)
	clientHash := sha256.Sum256(assertion.ClientDataJSON)
	signed := sha256.Sum256(append(append([]byte{}, assertion.AuthenticatorData...), clientHash[:]...))
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: pk.X, Y: pk.Y}
	assert.True(t, ecdsa.Verify(pub, signed[:], r, s))

	_, err = auth.GetAssertion(ctx, testRPID, []byte("unknown"), cd)
	assert.Error(t, err)
}

func TestParseAuthenticatorDataShort(t *testing.T) {
	_, err := ParseAuthenticatorData(make([]byte, 36))
	assert.Error(t, err)

	ad, err := ParseAuthenticatorData(authenticatorData(testRPID, flagUserPresent, 7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ad.SignCount)
	assert.Nil(t, ad.X)
}

func TestEncodePayload(t *testing.T) {
	authData := authenticatorData(testRPID, flagUserPresent|flagUserVerified, 1)
	fields := `"origin":"https://wallet.example.com","crossOrigin":false`
	payload, err := EncodePayload(authData, fields, big.NewInt(11), big.NewInt(22))
	require.NoError(t, err)
	// four head words, then bytes (len + 2 words) and string (len + 2 words)
	assert.Len(t, payload, 32*4+32*3+32*3)

	gotAuth, gotFields, r, s, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, authData, gotAuth)
	assert.Equal(t, fields, gotFields)
	assert.Equal(t, int64(11), r.Int64())
	assert.Equal(t, int64(22), s.Int64())

	assert.NotEmpty(t, DummyPayload(testRPID))
}

func TestStore(t *testing.T) {
	kv, err := kvstore.NewBadgerKVStore(kvstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer kv.Close()
	store := NewStore(kv)

	_, err = store.Load(testRPID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pk := &PublicKey{CredentialID: []byte("cred-1"), X: key.X, Y: key.Y}
	require.NoError(t, store.Save(testRPID, "alice", pk))
	require.NoError(t, store.Save("other.example.com", "bob", pk))

	got, err := store.Load(testRPID, "alice")
	require.NoError(t, err)
	assert.Equal(t, pk.CredentialID, got.CredentialID)
	assert.Equal(t, 0, pk.X.Cmp(got.X))
	assert.Equal(t, 0, pk.Y.Cmp(got.Y))

	records, err := store.List(testRPID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].UserName)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreKeysAreUnambiguous(t *testing.T) {
	kv, err := kvstore.NewBadgerKVStore(kvstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer kv.Close()
	store := NewStore(kv)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pk := &PublicKey{CredentialID: []byte("cred-1"), X: key.X, Y: key.Y}

	assert.ErrorIs(t, store.Save("a/b", "c", pk), ErrInvalidRPID)
	assert.ErrorIs(t, store.Save("", "c", pk), ErrInvalidRPID)
	_, err = store.Load("a/b", "c")
	assert.ErrorIs(t, err, ErrInvalidRPID)
	_, err = store.List("a/b")
	assert.ErrorIs(t, err, ErrInvalidRPID)

	// A '/' in the user name stays inside that record.
	require.NoError(t, store.Save("a", "b/c", pk))
	_, err = store.Load("a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := store.Load("a", "b/c")
	require.NoError(t, err)
	assert.Equal(t, pk.CredentialID, got.CredentialID)
}
