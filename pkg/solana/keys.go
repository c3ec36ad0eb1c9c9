package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidKeyLength       = errors.New("invalid key length")
	ErrInvalidAddressEncoding = errors.New("invalid address encoding")
	ErrInvalidSignature       = errors.New("invalid signature encoding")
	ErrInvalidBlockhash       = errors.New("invalid blockhash encoding")
)

// KeyPair is a 64 byte secret, laid out as the 32 byte seed followed by the
// 32 byte public key, as written by the Solana CLI tooling.
type KeyPair struct {
	private ed25519.PrivateKey
}

// ImportKeyPair imports a raw 64 byte secret. The public key is taken from the
// trailing 32 bytes of the secret and is not re-derived from the seed.
func ImportKeyPair(secret []byte) (KeyPair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return KeyPair{}, errors.Wrapf(ErrInvalidKeyLength, "got %d bytes, expected %d", len(secret), ed25519.PrivateKeySize)
	}

	private := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(private, secret)
	return KeyPair{private: private}, nil
}

// ImportKeyPairFromText imports a secret from either its base58 text form, or
// the JSON byte array form used by keypair files (e.g. "[12,34,...]").
func ImportKeyPairFromText(secret string) (KeyPair, error) {
	secret = strings.TrimSpace(secret)

	if strings.HasPrefix(secret, "[") {
		var raw []byte
		var values []int
		if err := json.Unmarshal([]byte(secret), &values); err != nil {
			return KeyPair{}, errors.Wrap(ErrInvalidKeyLength, "malformed key array")
		}
		for _, v := range values {
			if v < 0 || v > 255 {
				return KeyPair{}, errors.Wrapf(ErrInvalidKeyLength, "key array value %d out of range", v)
			}
			raw = append(raw, byte(v))
		}
		return ImportKeyPair(raw)
	}

	decoded, err := base58.Decode(secret)
	if err != nil {
		return KeyPair{}, errors.Wrap(ErrInvalidKeyLength, "secret is not valid base58")
	}
	return ImportKeyPair(decoded)
}

// NewRandomKeyPair generates a fresh key pair. Intended for tests and
// ephemeral accounts.
func NewRandomKeyPair() (KeyPair, error) {
	_, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "failed to generate key")
	}
	return KeyPair{private: private}, nil
}

func (k KeyPair) PublicKey() ed25519.PublicKey {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, k.private[ed25519.SeedSize:])
	return pub
}

func (k KeyPair) PrivateKey() ed25519.PrivateKey {
	return k.private
}

func (k KeyPair) IsZero() bool {
	return len(k.private) == 0
}

// Sign produces a deterministic detached signature over message.
func (k KeyPair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig
}

// Verify reports whether signature is a valid signature of message by address.
// Malformed inputs yield false.
func Verify(message []byte, signature []byte, address ed25519.PublicKey) bool {
	if len(address) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(address, message, signature)
}

func AddressToText(address ed25519.PublicKey) string {
	return base58.Encode(address)
}

func AddressFromText(text string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(text)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAddressEncoding, "%q", text)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidAddressEncoding, "%q decodes to %d bytes", text, len(decoded))
	}
	return decoded, nil
}

// MustAddressFromText is AddressFromText for compile time constants.
func MustAddressFromText(text string) ed25519.PublicKey {
	address, err := AddressFromText(text)
	if err != nil {
		panic(err)
	}
	return address
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func SignatureFromText(text string) (Signature, error) {
	var sig Signature

	decoded, err := base58.Decode(text)
	if err != nil || len(decoded) != len(sig) {
		return sig, errors.Wrapf(ErrInvalidSignature, "%q", text)
	}
	copy(sig[:], decoded)
	return sig, nil
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

func (b Blockhash) IsZero() bool {
	return b == Blockhash{}
}

func BlockhashFromText(text string) (Blockhash, error) {
	var bh Blockhash

	decoded, err := base58.Decode(text)
	if err != nil || len(decoded) != len(bh) {
		return bh, errors.Wrapf(ErrInvalidBlockhash, "%q", text)
	}
	copy(bh[:], decoded)
	return bh, nil
}
