package encoding

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"
)

// coordSize is the byte width of a P-256 coordinate.
const coordSize = 32

// EncodeP256PubKey encodes a P-256 public key as 64 bytes (32 bytes X + 32 bytes Y).
// Fixed width avoids ambiguity when X or Y have leading zeros.
func EncodeP256PubKey(x, y *big.Int) ([]byte, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("encoding: nil coordinate")
	}
	if x.BitLen() > coordSize*8 || y.BitLen() > coordSize*8 {
		return nil, fmt.Errorf("encoding: coordinate wider than %d bytes", coordSize)
	}
	out := make([]byte, coordSize*2)
	x.FillBytes(out[:coordSize])
	y.FillBytes(out[coordSize:])
	return out, nil
}

// DecodeP256PubKey is the inverse of EncodeP256PubKey and checks the point is on the curve.
func DecodeP256PubKey(b []byte) (*ecdsa.PublicKey, error) {
	if len(b) != coordSize*2 {
		return nil, fmt.Errorf("encoding: public key must be %d bytes, got %d", coordSize*2, len(b))
	}
	x := new(big.Int).SetBytes(b[:coordSize])
	y := new(big.Int).SetBytes(b[coordSize:])
	if !elliptic.P256().IsOnCurve(x, y) {
		return nil, fmt.Errorf("encoding: point is not on P-256")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}
