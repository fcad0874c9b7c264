// Package codec validates and converts the 0x-prefixed hex strings that flow
// between callers, the chain and the bundler.
package codec

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/luxfi/safe4337/pkg/common/errors"
)

var (
	hexPattern     = regexp.MustCompile(`^0x[a-fA-F0-9]*$`)
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ZeroAddress is the all-zero address in canonical hex form.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsValidHex reports whether s is "0x" followed by zero or more hex digits.
func IsValidHex(s string) bool {
	return hexPattern.MatchString(s)
}

// IsValidEthereumAddress reports whether s is "0x" followed by exactly 40 hex digits.
// Checksum casing is not enforced.
func IsValidEthereumAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// RequireHexAddress returns a validation error naming the field when s is not an address.
func RequireHexAddress(name, s string) error {
	if !IsValidEthereumAddress(s) {
		return errors.Invalid("RequireHexAddress", errors.ErrInvalidAddress, "invalid %s address: %s", name, s)
	}
	return nil
}

// ToAddress converts a validated address string.
func ToAddress(s string) (common.Address, error) {
	if err := RequireHexAddress("address", s); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(s), nil
}

// HexToBytes decodes 0x-prefixed hex. "0x" yields an empty slice; an odd digit
// count is left-padded with a zero nibble.
func HexToBytes(s string) ([]byte, error) {
	if !IsValidHex(s) {
		return nil, errors.Invalid("HexToBytes", errors.ErrInvalidHex, "not a hex string: %q", s)
	}
	digits := s[2:]
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	b, err := hexutil.Decode("0x" + digits)
	if err != nil {
		// hexutil rejects "0x" as empty input
		if digits == "" {
			return []byte{}, nil
		}
		return nil, errors.Invalid("HexToBytes", errors.ErrInvalidHex, "%v", err)
	}
	return b, nil
}

// MustHexToBytes is HexToBytes for compile-time constants.
func MustHexToBytes(s string) []byte {
	b, err := HexToBytes(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BytesToHex encodes b as lower-case 0x-prefixed hex; nil encodes as "0x".
func BytesToHex(b []byte) string {
	return hexutil.Encode(b)
}

// HexToBigInt parses a 0x-prefixed hex quantity. Leading zeros are accepted and
// "0x" parses as zero.
func HexToBigInt(s string) (*big.Int, error) {
	if !IsValidHex(s) {
		return nil, errors.Invalid("HexToBigInt", errors.ErrInvalidHex, "not a hex quantity: %q", s)
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, errors.Invalid("HexToBigInt", errors.ErrInvalidHex, "not a hex quantity: %q", s)
	}
	return n, nil
}

// BigToHex encodes n as a minimal hex quantity ("0x0" for zero or nil).
func BigToHex(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(n)
}

// Uint64ToHex encodes n as a minimal hex quantity.
func Uint64ToHex(n uint64) string {
	return hexutil.EncodeUint64(n)
}

// DecodeQuantities parses several named quantities at once, reporting the first bad one.
func DecodeQuantities(fields map[string]string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(fields))
	for name, v := range fields {
		n, err := HexToBigInt(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = n
	}
	return out, nil
}
