package passkey

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	p256N     = elliptic.P256().Params().N
	p256HalfN = new(big.Int).Rsh(p256N, 1)
)

// ParseDERSignature extracts r and s from an ASN.1 ECDSA-Sig-Value.
func ParseDERSignature(der []byte) (r, s *big.Int, err error) {
	r, s = new(big.Int), new(big.Int)
	var inner cryptobyte.String
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, fmt.Errorf("passkey: malformed DER signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(p256N) >= 0 || s.Cmp(p256N) >= 0 {
		return nil, nil, fmt.Errorf("passkey: signature scalar out of range")
	}
	return r, s, nil
}

// NormalizeS maps s into the lower half of the group order. The P-256 verifier
// rejects malleable high-S signatures.
func NormalizeS(s *big.Int) *big.Int {
	if s.Cmp(p256HalfN) > 0 {
		return new(big.Int).Sub(p256N, s)
	}
	return new(big.Int).Set(s)
}
