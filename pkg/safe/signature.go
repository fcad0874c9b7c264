package safe

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/safe4337/pkg/common/errors"
)

// SignatureKind selects the owner signature layout.
type SignatureKind int

const (
	SignatureEOA SignatureKind = iota
	SignaturePasskey
)

// SignatureKindOf maps an owner to its signature layout.
func SignatureKindOf(o Owner) SignatureKind {
	if o.Kind == OwnerPasskey {
		return SignaturePasskey
	}
	return SignatureEOA
}

// PackSignature packs r, s and v into the 65-byte r‖s‖v form.
func PackSignature(r, s []byte, v byte) []byte {
	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = v
	return sig
}

// ContractSignature wraps payload as a Safe contract signature for verifier:
// pad32(verifier) ‖ uint256(65) ‖ 0x00 ‖ uint256(len(payload)) ‖ payload.
// The offset 65 points just past the single static part.
func ContractSignature(verifier common.Address, payload []byte) []byte {
	out := make([]byte, 0, 65+32+len(payload))
	out = append(out, abiAddress(verifier)...)
	out = append(out, abiUint64(65)...)
	out = append(out, 0x00)
	out = append(out, abiUint256(big.NewInt(int64(len(payload))))...)
	out = append(out, payload...)
	return out
}

// EncodeOwnerSignature turns raw signer output into the bytes Safe.checkSignatures
// expects for a single owner. EOA signatures must be r‖s‖v with v in {27, 28}.
func EncodeOwnerSignature(raw []byte, kind SignatureKind, cfg Config) ([]byte, error) {
	switch kind {
	case SignatureEOA:
		if len(raw) != 65 {
			return nil, errors.New(errors.KindSigningFailed, "safe.EncodeOwnerSignature", "eoa signature must be 65 bytes, got %d", len(raw))
		}
		if v := raw[64]; v != 27 && v != 28 {
			return nil, errors.New(errors.KindSigningFailed, "safe.EncodeOwnerSignature", "eoa signature v must be 27 or 28, got %d", v)
		}
		return append([]byte(nil), raw...), nil
	case SignaturePasskey:
		if len(raw) == 0 {
			return nil, errors.New(errors.KindSigningFailed, "safe.EncodeOwnerSignature", "empty passkey signature")
		}
		return ContractSignature(cfg.SharedSigner(), raw), nil
	default:
		return nil, errors.New(errors.KindSigningFailed, "safe.EncodeOwnerSignature", "unknown signature kind %d", kind)
	}
}

// EncodeSignature builds the user operation signature:
// uint48 validAfter ‖ uint48 validUntil ‖ owner signature.
func EncodeSignature(raw []byte, kind SignatureKind, cfg Config, window ValidityWindow) ([]byte, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}
	sig, err := EncodeOwnerSignature(raw, kind, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 12, 12+len(sig))
	putUint48(out[0:6], window.ValidAfter)
	putUint48(out[6:12], window.ValidUntil)
	return append(out, sig...), nil
}

// DecodeSignature splits a user operation signature into its window and owner signature.
func DecodeSignature(sig []byte) (ValidityWindow, []byte, error) {
	if len(sig) < 12 {
		return ValidityWindow{}, nil, errors.Invalid("safe.DecodeSignature", errors.ErrInvalidUserOperation, "signature shorter than validity prefix")
	}
	w := ValidityWindow{ValidAfter: uint48(sig[0:6]), ValidUntil: uint48(sig[6:12])}
	return w, sig[12:], nil
}

func putUint48(dst []byte, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	copy(dst, buf[2:])
}

func uint48(b []byte) uint64 {
	var buf [8]byte
	copy(buf[2:], b)
	return binary.BigEndian.Uint64(buf[:])
}

// dummyEOASignature passes ECDSA recovery shape checks during simulation.
var dummyEOASignature = common.FromHex(
	"0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c",
)

// DummySignature is a placeholder user operation signature of realistic size,
// used for gas estimation before the real signature exists. passkeyPayload is
// the signer's stub assertion and is ignored for EOA owners.
func DummySignature(kind SignatureKind, cfg Config, passkeyPayload []byte) ([]byte, error) {
	if kind == SignaturePasskey {
		return EncodeSignature(passkeyPayload, kind, cfg, ValidityWindow{})
	}
	return EncodeSignature(dummyEOASignature, SignatureEOA, cfg, ValidityWindow{})
}
