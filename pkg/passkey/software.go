package passkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SoftwareAuthenticator keeps P-256 credentials in memory. It implements both
// Ceremony and Authenticator and exists for development and tests; keys never
// leave the process and are lost on exit.
type SoftwareAuthenticator struct {
	mu        sync.Mutex
	keys      map[string]*ecdsa.PrivateKey
	signCount uint32
}

func NewSoftwareAuthenticator() *SoftwareAuthenticator {
	return &SoftwareAuthenticator{keys: make(map[string]*ecdsa.PrivateKey)}
}

// Register creates a credential and returns a "none" attestation.
func (a *SoftwareAuthenticator) Register(ctx context.Context, req RegistrationRequest) (*Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	credID := id[:]

	cose, err := encodeCOSEKey(key.X, key.Y)
	if err != nil {
		return nil, err
	}
	authData := authenticatorData(req.RPID, flagUserPresent|flagUserVerified|flagAttested, 0)
	authData = append(authData, make([]byte, 16)...) // aaguid
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(credID)))
	authData = append(authData, credID...)
	authData = append(authData, cose...)

	obj, err := encodeAttestationObject(authData)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.keys[hex.EncodeToString(credID)] = key
	a.mu.Unlock()
	return &Attestation{CredentialID: credID, AttestationObject: obj}, nil
}

// GetAssertion signs authenticatorData‖sha256(clientDataJSON) with the credential.
func (a *SoftwareAuthenticator) GetAssertion(ctx context.Context, rpID string, credentialID []byte, clientDataJSON []byte) (*Assertion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	key, ok := a.keys[hex.EncodeToString(credentialID)]
	a.signCount++
	count := a.signCount
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("passkey: unknown credential %x", credentialID)
	}

	authData := authenticatorData(rpID, flagUserPresent|flagUserVerified, count)
	clientHash := sha256.Sum256(clientDataJSON)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, err
	}
	return &Assertion{
		CredentialID:      credentialID,
		AuthenticatorData: authData,
		ClientDataJSON:    clientDataJSON,
		Signature:         sig,
	}, nil
}

func authenticatorData(rpID string, flags byte, count uint32) []byte {
	rpHash := sha256.Sum256([]byte(rpID))
	out := make([]byte, 0, 37)
	out = append(out, rpHash[:]...)
	out = append(out, flags)
	return binary.BigEndian.AppendUint32(out, count)
}
