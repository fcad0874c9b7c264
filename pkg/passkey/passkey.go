// Package passkey holds the WebAuthn side of passkey signing: the collaborator
// contracts for platform ceremonies, client data framing, attestation parsing
// and the signature payload the WebAuthn shared signer verifies.
package passkey

import (
	"context"
)

// Assertion is what a platform authenticator returns for navigator.credentials.get.
type Assertion struct {
	CredentialID      []byte
	AuthenticatorData []byte
	// ClientDataJSON as serialised by the platform. Empty means the platform
	// signed the client data it was given verbatim.
	ClientDataJSON []byte
	// Signature is ASN.1 DER encoded ECDSA over authenticatorData‖sha256(clientDataJSON).
	Signature []byte
}

// Authenticator produces assertions with an existing credential.
type Authenticator interface {
	GetAssertion(ctx context.Context, rpID string, credentialID []byte, clientDataJSON []byte) (*Assertion, error)
}

// Attestation is what a platform returns for navigator.credentials.create.
type Attestation struct {
	CredentialID      []byte
	AttestationObject []byte
}

// RegistrationRequest carries the options of a registration ceremony.
type RegistrationRequest struct {
	RPID      string
	UserName  string
	UserID    []byte
	Challenge []byte
}

// Ceremony runs passkey registration.
type Ceremony interface {
	Register(ctx context.Context, req RegistrationRequest) (*Attestation, error)
}
