package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/passkey"
	"github.com/luxfi/safe4337/pkg/safe"
)

// PasskeySigner signs through a platform authenticator. The Safe owner is the
// WebAuthn shared signer contract configured with (x, y).
type PasskeySigner struct {
	rpID         string
	userName     string
	credentialID []byte
	x, y         *big.Int
	auth         passkey.Authenticator
}

// NewPasskeySigner builds a signer from an existing public key.
func NewPasskeySigner(rpID, userName string, pk *passkey.PublicKey, auth passkey.Authenticator) (*PasskeySigner, error) {
	if rpID == "" || userName == "" {
		return nil, errors.Invalid("signer.NewPasskeySigner", errors.ErrInvalidSigner, "rpId and userName are required")
	}
	if pk == nil || pk.X == nil || pk.Y == nil {
		return nil, errors.Invalid("signer.NewPasskeySigner", errors.ErrInvalidSigner, "passkey public key is required")
	}
	return &PasskeySigner{
		rpID:         rpID,
		userName:     userName,
		credentialID: append([]byte(nil), pk.CredentialID...),
		x:            new(big.Int).Set(pk.X),
		y:            new(big.Int).Set(pk.Y),
		auth:         auth,
	}, nil
}

func (s *PasskeySigner) RPID() string     { return s.rpID }
func (s *PasskeySigner) UserName() string { return s.userName }

// PublicKey returns a copy of the P-256 coordinates.
func (s *PasskeySigner) PublicKey() (x, y *big.Int) {
	return new(big.Int).Set(s.x), new(big.Int).Set(s.y)
}

// Sign asks the authenticator for an assertion whose challenge is digest and
// returns abi.encode(authenticatorData, clientDataFields, r, s).
func (s *PasskeySigner) Sign(ctx context.Context, digest common.Hash) ([]byte, error) {
	const op = "PasskeySigner.Sign"
	if s.auth == nil {
		return nil, errors.New(errors.KindSigningFailed, op, "no authenticator attached")
	}
	clientData := passkey.ClientDataJSON(digest[:], s.rpID)
	assertion, err := s.auth.GetAssertion(ctx, s.rpID, s.credentialID, clientData)
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	if len(assertion.ClientDataJSON) > 0 {
		clientData = assertion.ClientDataJSON
	}
	fields, err := passkey.ClientDataFields(clientData, digest[:])
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	r, sv, err := passkey.ParseDERSignature(assertion.Signature)
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	payload, err := passkey.EncodePayload(assertion.AuthenticatorData, fields, r, passkey.NormalizeS(sv))
	if err != nil {
		return nil, errors.Wrap(errors.KindSigningFailed, op, err)
	}
	return payload, nil
}

func (s *PasskeySigner) SafeOwner() safe.Owner {
	return safe.PasskeyOwner(s.x, s.y)
}

func (s *PasskeySigner) DummySignature(cfg safe.Config) ([]byte, error) {
	return safe.DummySignature(safe.SignaturePasskey, cfg, passkey.DummyPayload(s.rpID))
}
