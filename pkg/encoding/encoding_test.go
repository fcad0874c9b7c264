package encoding

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeP256PubKey(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pubKey := &privateKey.PublicKey

	encoded, err := EncodeP256PubKey(pubKey.X, pubKey.Y)
	require.NoError(t, err)

	// Fixed width regardless of leading zeros
	assert.Equal(t, 64, len(encoded))

	decoded, err := DecodeP256PubKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, 0, pubKey.X.Cmp(decoded.X))
	assert.Equal(t, 0, pubKey.Y.Cmp(decoded.Y))
}

func TestEncodeP256PubKey_SmallValues(t *testing.T) {
	encoded, err := EncodeP256PubKey(big.NewInt(12345), big.NewInt(67890))
	require.NoError(t, err)

	expectedX := make([]byte, 32)
	big.NewInt(12345).FillBytes(expectedX)
	assert.Equal(t, expectedX, encoded[:32])

	// not a curve point
	_, err = DecodeP256PubKey(encoded)
	assert.Error(t, err)
}

func TestEncodeP256PubKey_Invalid(t *testing.T) {
	_, err := EncodeP256PubKey(nil, big.NewInt(1))
	assert.Error(t, err)

	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = EncodeP256PubKey(tooWide, big.NewInt(1))
	assert.Error(t, err)

	_, err = DecodeP256PubKey(make([]byte, 63))
	assert.Error(t, err)
}
