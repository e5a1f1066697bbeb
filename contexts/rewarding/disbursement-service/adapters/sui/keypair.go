package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	suiPrivKeyHRP = "suiprivkey"

	// ed25519 scheme flag, prefixed to public keys in addresses and to
	// serialized signatures.
	ed25519SchemeFlag = 0x00
)

// intentTransactionData is the Sui signing intent for transaction data:
// scope (TransactionData), version, app id.
var intentTransactionData = []byte{0, 0, 0}

// Keypair signs Sui transactions with an ed25519 key. Accepts the raw hex
// seed export (with or without 0x) and the bech32 suiprivkey format.
type Keypair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

func ParseKeypair(raw string) (Keypair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Keypair{}, fmt.Errorf("private key is empty")
	}
	if strings.HasPrefix(raw, suiPrivKeyHRP) {
		return parseBech32Keypair(raw)
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return Keypair{}, fmt.Errorf("decode private key hex: %w", err)
	}
	return keypairFromSeed(seed)
}

func parseBech32Keypair(raw string) (Keypair, error) {
	hrp, data, err := bech32Decode(raw)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode suiprivkey: %w", err)
	}
	if hrp != suiPrivKeyHRP {
		return Keypair{}, fmt.Errorf("unexpected key prefix %q", hrp)
	}
	payload, err := convertBits(data, 5, 8, false)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode suiprivkey payload: %w", err)
	}
	if len(payload) != ed25519.SeedSize+1 || payload[0] != ed25519SchemeFlag {
		return Keypair{}, fmt.Errorf("suiprivkey is not an ed25519 key")
	}
	return keypairFromSeed(payload[1:])
}

func keypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	return Keypair{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// Address derives the Sui account address: blake2b-256 over the scheme flag
// followed by the public key.
func (k Keypair) Address() string {
	digest := blake2b.Sum256(append([]byte{ed25519SchemeFlag}, k.public...))
	return "0x" + hex.EncodeToString(digest[:])
}

// SignTransaction produces the serialized Sui signature for the given
// transaction bytes: flag || signature || pubkey, base64-encoded. The
// signature covers the blake2b digest of the transaction-data intent message.
func (k Keypair) SignTransaction(txBytes []byte) string {
	message := append(append([]byte{}, intentTransactionData...), txBytes...)
	digest := blake2b.Sum256(message)
	signature := ed25519.Sign(k.private, digest[:])

	serialized := make([]byte, 0, 1+len(signature)+len(k.public))
	serialized = append(serialized, ed25519SchemeFlag)
	serialized = append(serialized, signature...)
	serialized = append(serialized, k.public...)
	return base64.StdEncoding.EncodeToString(serialized)
}

func (k Keypair) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), k.public...)
}
