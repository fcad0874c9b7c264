package passkey

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Authenticator data flags.
const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
	flagAttested     = 0x40
)

// COSE identifiers for an ES256 EC2 key.
const (
	coseKtyEC2   = 2
	coseAlgES256 = -7
	coseCrvP256  = 1
)

type attestationObject struct {
	Fmt      string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
	AuthData []byte          `cbor:"authData"`
}

type coseKey struct {
	Kty int    `cbor:"1,keyasint"`
	Alg int    `cbor:"3,keyasint"`
	Crv int    `cbor:"-1,keyasint"`
	X   []byte `cbor:"-2,keyasint"`
	Y   []byte `cbor:"-3,keyasint"`
}

// AuthenticatorData is the parsed binary authenticator data.
type AuthenticatorData struct {
	RPIDHash     []byte
	Flags        byte
	SignCount    uint32
	AAGUID       []byte
	CredentialID []byte
	X, Y         *big.Int
}

// PublicKey is a registered credential's P-256 key.
type PublicKey struct {
	CredentialID []byte
	X, Y         *big.Int
}

// ParseAttestationObject extracts the credential public key from a CBOR
// attestation object and checks the rpID hash.
func ParseAttestationObject(raw []byte, rpID string) (*PublicKey, error) {
	var obj attestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("passkey: decode attestation object: %w", err)
	}
	ad, err := ParseAuthenticatorData(obj.AuthData)
	if err != nil {
		return nil, err
	}
	want := sha256.Sum256([]byte(rpID))
	if string(ad.RPIDHash) != string(want[:]) {
		return nil, fmt.Errorf("passkey: attestation rpIdHash does not match %q", rpID)
	}
	if ad.X == nil {
		return nil, fmt.Errorf("passkey: attestation carries no credential data")
	}
	return &PublicKey{CredentialID: ad.CredentialID, X: ad.X, Y: ad.Y}, nil
}

// ParseAuthenticatorData parses rpIdHash(32)‖flags(1)‖signCount(4) and, when the
// AT flag is set, aaguid(16)‖credIdLen(2)‖credId‖COSE key.
func ParseAuthenticatorData(b []byte) (*AuthenticatorData, error) {
	if len(b) < 37 {
		return nil, fmt.Errorf("passkey: authenticator data too short (%d bytes)", len(b))
	}
	ad := &AuthenticatorData{
		RPIDHash:  b[:32],
		Flags:     b[32],
		SignCount: binary.BigEndian.Uint32(b[33:37]),
	}
	if ad.Flags&flagAttested == 0 {
		return ad, nil
	}
	rest := b[37:]
	if len(rest) < 18 {
		return nil, fmt.Errorf("passkey: attested credential data truncated")
	}
	ad.AAGUID = rest[:16]
	idLen := int(binary.BigEndian.Uint16(rest[16:18]))
	rest = rest[18:]
	if len(rest) < idLen {
		return nil, fmt.Errorf("passkey: credential id truncated")
	}
	ad.CredentialID = rest[:idLen]
	rest = rest[idLen:]

	var key coseKey
	if _, err := cbor.UnmarshalFirst(rest, &key); err != nil {
		return nil, fmt.Errorf("passkey: decode COSE key: %w", err)
	}
	if key.Kty != coseKtyEC2 || key.Alg != coseAlgES256 || key.Crv != coseCrvP256 {
		return nil, fmt.Errorf("passkey: unsupported COSE key (kty=%d alg=%d crv=%d)", key.Kty, key.Alg, key.Crv)
	}
	if len(key.X) != 32 || len(key.Y) != 32 {
		return nil, fmt.Errorf("passkey: COSE coordinates must be 32 bytes")
	}
	ad.X = new(big.Int).SetBytes(key.X)
	ad.Y = new(big.Int).SetBytes(key.Y)
	return ad, nil
}

// encodeCOSEKey is the inverse used by the software authenticator.
func encodeCOSEKey(x, y *big.Int) ([]byte, error) {
	xb, yb := make([]byte, 32), make([]byte, 32)
	x.FillBytes(xb)
	y.FillBytes(yb)
	return cbor.Marshal(coseKey{Kty: coseKtyEC2, Alg: coseAlgES256, Crv: coseCrvP256, X: xb, Y: yb})
}

func encodeAttestationObject(authData []byte) ([]byte, error) {
	return cbor.Marshal(attestationObject{Fmt: "none", AttStmt: cbor.RawMessage{0xa0}, AuthData: authData})
}
