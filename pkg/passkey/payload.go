package passkey

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var payloadArgs = func() abi.Arguments {
	mk := func(t string) abi.Type {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		return typ
	}
	return abi.Arguments{{Type: mk("bytes")}, {Type: mk("string")}, {Type: mk("uint256")}, {Type: mk("uint256")}}
}()

// EncodePayload is abi.encode(authenticatorData, clientDataFields, r, s), the
// signature layout the WebAuthn shared signer decodes.
func EncodePayload(authenticatorData []byte, clientDataFields string, r, s *big.Int) ([]byte, error) {
	out, err := payloadArgs.Pack(authenticatorData, clientDataFields, r, s)
	if err != nil {
		return nil, fmt.Errorf("passkey: encode payload: %w", err)
	}
	return out, nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(payload []byte) (authenticatorData []byte, clientDataFields string, r, s *big.Int, err error) {
	vals, err := payloadArgs.Unpack(payload)
	if err != nil {
		return nil, "", nil, nil, fmt.Errorf("passkey: decode payload: %w", err)
	}
	return vals[0].([]byte), vals[1].(string), vals[2].(*big.Int), vals[3].(*big.Int), nil
}

// DummyPayload is a payload of realistic size for gas estimation.
func DummyPayload(rpID string) []byte {
	authData := make([]byte, 37)
	for i := range authData {
		authData[i] = 0xfe
	}
	authData[32] = flagUserPresent | flagUserVerified
	fields := fmt.Sprintf(`"origin":"https://%s","crossOrigin":false`, rpID)
	bound := new(big.Int).Sub(p256HalfN, big.NewInt(1))
	out, err := EncodePayload(authData, fields, bound, bound)
	if err != nil {
		panic(err)
	}
	return out
}
