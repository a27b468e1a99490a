package sui

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Signature scheme flags prefixed to public keys and signatures.
const (
	FlagEd25519   byte = 0x00
	FlagSecp256k1 byte = 0x01
)

const privateKeyHRP = "suiprivkey"

// intentTransaction is the intent prefix for transaction data:
// scope TransactionData, version V0, app Sui.
var intentTransaction = []byte{0, 0, 0}

// Signer signs transaction digests for a single account.
type Signer interface {
	// Flag returns the signature scheme flag.
	Flag() byte
	// PublicKey returns the encoded public key (32 bytes ed25519, 33 bytes
	// compressed secp256k1).
	PublicKey() []byte
	// SignDigest signs a 32 byte transaction digest and returns the raw
	// 64 byte signature.
	SignDigest(digest []byte) ([]byte, error)
}

// Ed25519Signer signs with an ed25519 key.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewEd25519Signer builds a signer from a 32 byte seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Flag() byte { return FlagEd25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.key.Public().(ed25519.PublicKey)...)
}

func (s *Ed25519Signer) SignDigest(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.key, digest), nil
}

// Secp256k1Signer signs with a secp256k1 key. The digest is hashed with
// SHA-256 before signing and the signature is the compact R||S form.
type Secp256k1Signer struct {
	key *ecdsa.PrivateKey
}

// NewSecp256k1Signer builds a signer from a 32 byte scalar.
func NewSecp256k1Signer(seed []byte) (*Secp256k1Signer, error) {
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 key: %w", err)
	}
	return &Secp256k1Signer{key: key}, nil
}

func (s *Secp256k1Signer) Flag() byte { return FlagSecp256k1 }

func (s *Secp256k1Signer) PublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

func (s *Secp256k1Signer) SignDigest(digest []byte) ([]byte, error) {
	hash := sha256.Sum256(digest)
	sig, err := crypto.Sign(hash[:], s.key)
	if err != nil {
		return nil, err
	}
	return sig[:64], nil
}

// ParsePrivateKey accepts a bech32 "suiprivkey1..." string, base64 of
// flag||seed, or a hex ed25519 seed.
func ParsePrivateKey(encoded string) (Signer, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	if strings.HasPrefix(strings.ToLower(encoded), privateKeyHRP+"1") {
		hrp, data, err := bech32.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode bech32 key: %w", err)
		}
		if hrp != privateKeyHRP {
			return nil, fmt.Errorf("unexpected key prefix %q", hrp)
		}
		raw, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("convert bech32 key: %w", err)
		}
		return signerFromFlagged(raw)
	}

	hexForm := strings.TrimPrefix(encoded, "0x")
	if len(hexForm) == 2*ed25519.SeedSize {
		if seed, err := hex.DecodeString(hexForm); err == nil {
			return NewEd25519Signer(seed)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("private key is not bech32, hex or base64")
	}
	return signerFromFlagged(raw)
}

func signerFromFlagged(raw []byte) (Signer, error) {
	if len(raw) != 33 {
		return nil, fmt.Errorf("flagged key must be 33 bytes, got %d", len(raw))
	}
	switch raw[0] {
	case FlagEd25519:
		return NewEd25519Signer(raw[1:])
	case FlagSecp256k1:
		return NewSecp256k1Signer(raw[1:])
	default:
		return nil, fmt.Errorf("unsupported key scheme flag 0x%02x", raw[0])
	}
}

// EncodePrivateKey renders flag||seed in the bech32 "suiprivkey" form.
func EncodePrivateKey(flag byte, seed []byte) (string, error) {
	data, err := bech32.ConvertBits(append([]byte{flag}, seed...), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(privateKeyHRP, data)
}

// AddressOf returns the account address controlled by signer.
func AddressOf(signer Signer) string {
	hash := blake2b.Sum256(append([]byte{signer.Flag()}, signer.PublicKey()...))
	return hexutil.Encode(hash[:])
}

// TransactionDigest returns the digest signed for txBytes.
func TransactionDigest(txBytes []byte) []byte {
	msg := make([]byte, 0, len(intentTransaction)+len(txBytes))
	msg = append(msg, intentTransaction...)
	msg = append(msg, txBytes...)
	hash := blake2b.Sum256(msg)
	return hash[:]
}

// SignTransaction returns the base64 serialized signature
// flag||signature||public key for txBytes.
func SignTransaction(signer Signer, txBytes []byte) (string, error) {
	sig, err := signer.SignDigest(TransactionDigest(txBytes))
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	serialized := make([]byte, 0, 1+len(sig)+33)
	serialized = append(serialized, signer.Flag())
	serialized = append(serialized, sig...)
	serialized = append(serialized, signer.PublicKey()...)
	return base64.StdEncoding.EncodeToString(serialized), nil
}
