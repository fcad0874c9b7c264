package signer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
	"github.com/luxfi/safe4337/pkg/passkey"
)

// Descriptor is the caller-facing description of a signer: either a private
// key, or an rpId/userName pair optionally carrying the passkey coordinates.
type Descriptor struct {
	PrivateKey string `json:"privateKey,omitempty" mapstructure:"privateKey"`
	RPID       string `json:"rpId,omitempty" mapstructure:"rpId"`
	UserName   string `json:"userName,omitempty" mapstructure:"userName"`
	PasskeyX   string `json:"passkeyX,omitempty" mapstructure:"passkeyX"`
	PasskeyY   string `json:"passkeyY,omitempty" mapstructure:"passkeyY"`
	// CredentialID is the raw credential id, hex encoded.
	CredentialID string `json:"credentialId,omitempty" mapstructure:"credentialId"`
}

// Resolver turns descriptors into signers. Store and Authenticator are only
// needed for passkey descriptors.
type Resolver struct {
	Store         *passkey.Store
	Authenticator passkey.Authenticator
}

// FromDescriptor validates d and builds the matching signer. Exactly one of
// PrivateKey or the RPID/UserName pair must be set.
func (r Resolver) FromDescriptor(d Descriptor) (Signer, error) {
	const op = "signer.FromDescriptor"
	hasKey := d.PrivateKey != ""
	hasPasskey := d.RPID != "" || d.UserName != ""

	switch {
	case hasKey && hasPasskey:
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "both privateKey and rpId/userName given")
	case hasKey:
		s, err := NewEOASigner(d.PrivateKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	case !hasPasskey:
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "neither privateKey nor rpId/userName given")
	case d.RPID == "" || d.UserName == "":
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "rpId and userName must both be set")
	}

	pk, err := r.passkeyFor(d)
	if err != nil {
		return nil, err
	}
	s, err := NewPasskeySigner(d.RPID, d.UserName, pk, r.Authenticator)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r Resolver) passkeyFor(d Descriptor) (*passkey.PublicKey, error) {
	const op = "signer.FromDescriptor"
	if d.PasskeyX != "" || d.PasskeyY != "" {
		x, errX := codec.HexToBigInt(d.PasskeyX)
		y, errY := codec.HexToBigInt(d.PasskeyY)
		if errX != nil || errY != nil || x.Sign() == 0 || y.Sign() == 0 {
			return nil, errors.Invalid(op, errors.ErrInvalidSigner, "passkeyX and passkeyY must both be hex coordinates")
		}
		pk := &passkey.PublicKey{X: x, Y: y}
		if d.CredentialID != "" {
			id, err := codec.HexToBytes(d.CredentialID)
			if err != nil {
				return nil, errors.Invalid(op, errors.ErrInvalidSigner, "credentialId: %v", err)
			}
			pk.CredentialID = id
		} else if r.Store != nil {
			// coordinates given, credential id may still be on record
			if stored, err := r.Store.Load(d.RPID, d.UserName); err == nil && stored.X.Cmp(x) == 0 && stored.Y.Cmp(y) == 0 {
				pk.CredentialID = stored.CredentialID
			}
		}
		return pk, nil
	}
	if r.Store == nil {
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "no passkey coordinates and no passkey store")
	}
	pk, err := r.Store.Load(d.RPID, d.UserName)
	if err != nil {
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "load passkey %s/%s: %v", d.RPID, d.UserName, err)
	}
	return pk, nil
}

// DescriptorOf is the inverse of FromDescriptor, without the private key.
func DescriptorOf(s Signer) Descriptor {
	switch v := s.(type) {
	case *PasskeySigner:
		return Descriptor{
			RPID:         v.rpID,
			UserName:     v.userName,
			PasskeyX:     codec.BigToHex(v.x),
			PasskeyY:     codec.BigToHex(v.y),
			CredentialID: codec.BytesToHex(v.credentialID),
		}
	default:
		return Descriptor{}
	}
}

// CreatePasskey runs a registration ceremony, stores the resulting public key
// and returns a signer for it.
func CreatePasskey(ctx context.Context, ceremony passkey.Ceremony, auth passkey.Authenticator, store *passkey.Store, rpID, userName string) (*PasskeySigner, error) {
	const op = "signer.CreatePasskey"
	if rpID == "" || userName == "" {
		return nil, errors.Invalid(op, errors.ErrInvalidSigner, "rpId and userName are required")
	}
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	userID := uuid.New()

	att, err := ceremony.Register(ctx, passkey.RegistrationRequest{
		RPID:      rpID,
		UserName:  userName,
		UserID:    userID[:],
		Challenge: challenge,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	pk, err := passkey.ParseAttestationObject(att.AttestationObject, rpID)
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	if len(pk.CredentialID) == 0 {
		pk.CredentialID = att.CredentialID
	}
	if store != nil {
		if err := store.Save(rpID, userName, pk); err != nil {
			return nil, fmt.Errorf("store passkey: %w", err)
		}
	}
	logger.Info("Passkey created", "rpId", rpID, "userName", userName, "x", codec.BigToHex(pk.X))
	return NewPasskeySigner(rpID, userName, pk, auth)
}

// Coordinates formats x and y as fixed-width 0x hex, the form createPasskeySigner returns.
func Coordinates(s *PasskeySigner) (x, y string) {
	pad := func(n *big.Int) string {
		b := make([]byte, 32)
		n.FillBytes(b)
		return codec.BytesToHex(b)
	}
	return pad(s.x), pad(s.y)
}
