package passkey

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

const clientDataTypeGet = "webauthn.get"

// ClientDataJSON builds the client data the shared signer can reconstruct:
// {"type":"webauthn.get","challenge":"<b64url>","origin":"https://<rpID>","crossOrigin":false}
func ClientDataJSON(challenge []byte, rpID string) []byte {
	return clientData(clientDataTypeGet, challenge, rpID)
}

func clientData(typ string, challenge []byte, rpID string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"challenge":%q,"origin":%q,"crossOrigin":false}`,
		typ, base64.RawURLEncoding.EncodeToString(challenge), "https://"+rpID))
}

// ClientDataFields returns the members following the challenge, without the
// leading comma or the closing brace. The on-chain verifier rebuilds the client
// data as {"type":"webauthn.get","challenge":"<challenge>",<fields>}, so the
// JSON must start with exactly that prefix for the expected challenge.
func ClientDataFields(clientDataJSON []byte, challenge []byte) (string, error) {
	prefix := []byte(fmt.Sprintf(`{"type":"webauthn.get","challenge":"%s",`, base64.RawURLEncoding.EncodeToString(challenge)))
	if !bytes.HasPrefix(clientDataJSON, prefix) {
		return "", fmt.Errorf("passkey: client data does not start with the expected type and challenge")
	}
	rest := clientDataJSON[len(prefix):]
	if len(rest) == 0 || rest[len(rest)-1] != '}' {
		return "", fmt.Errorf("passkey: client data is not a closed JSON object")
	}
	return string(rest[:len(rest)-1]), nil
}
