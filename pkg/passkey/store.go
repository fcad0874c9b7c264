package passkey

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/luxfi/safe4337/pkg/encoding"
	"github.com/luxfi/safe4337/pkg/kvstore"
)

var (
	// ErrNotFound is returned when no passkey is stored for an rpID/userName pair.
	ErrNotFound = errors.New("passkey: not found")
	// ErrInvalidRPID rejects relying party ids that are empty or contain '/'.
	ErrInvalidRPID = errors.New("passkey: invalid relying party id")
)

const keyPrefix = "passkey/"

// Record is the persisted public half of a passkey.
type Record struct {
	RPID         string    `json:"rpId"`
	UserName     string    `json:"userName"`
	CredentialID string    `json:"credentialId"`
	PublicKey    string    `json:"publicKey"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists passkey public keys so a signer can be rebuilt later from
// rpID and userName alone.
type Store struct {
	kv kvstore.KVStore
}

func NewStore(kv kvstore.KVStore) *Store {
	return &Store{kv: kv}
}

// storeKey is passkey/<rpID>/<userName>. rpID never contains '/', so the
// first separator after the prefix splits the pair unambiguously.
func storeKey(rpID, userName string) (string, error) {
	if err := checkRPID(rpID); err != nil {
		return "", err
	}
	return keyPrefix + rpID + "/" + userName, nil
}

func checkRPID(rpID string) error {
	if rpID == "" || strings.Contains(rpID, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRPID, rpID)
	}
	return nil
}

// Save records pk under rpID/userName, replacing any previous entry.
func (s *Store) Save(rpID, userName string, pk *PublicKey) error {
	key, err := storeKey(rpID, userName)
	if err != nil {
		return err
	}
	raw, err := encoding.EncodeP256PubKey(pk.X, pk.Y)
	if err != nil {
		return err
	}
	rec := Record{
		RPID:         rpID,
		UserName:     userName,
		CredentialID: base64.RawURLEncoding.EncodeToString(pk.CredentialID),
		PublicKey:    hexutil.Encode(raw),
		CreatedAt:    time.Now().UTC(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Put(key, b)
}

// Load returns the stored key for rpID/userName.
func (s *Store) Load(rpID, userName string) (*PublicKey, error) {
	key, err := storeKey(rpID, userName)
	if err != nil {
		return nil, err
	}
	b, err := s.kv.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("passkey: decode record: %w", err)
	}
	return rec.publicKey()
}

// List returns every record for rpID, or all records when rpID is empty.
func (s *Store) List(rpID string) ([]Record, error) {
	prefix := keyPrefix
	if rpID != "" {
		if err := checkRPID(rpID); err != nil {
			return nil, err
		}
		prefix += rpID + "/"
	}
	keys, err := s.kv.Keys(prefix)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		b, err := s.kv.Get(k)
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("passkey: decode record %s: %w", strings.TrimPrefix(k, keyPrefix), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r Record) publicKey() (*PublicKey, error) {
	raw, err := hexutil.Decode(r.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("passkey: decode public key: %w", err)
	}
	pub, err := encoding.DecodeP256PubKey(raw)
	if err != nil {
		return nil, err
	}
	credID, err := base64.RawURLEncoding.DecodeString(r.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("passkey: decode credential id: %w", err)
	}
	return &PublicKey{CredentialID: credID, X: pub.X, Y: pub.Y}, nil
}
