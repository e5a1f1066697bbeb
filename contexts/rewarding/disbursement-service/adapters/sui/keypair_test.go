package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

// 31 bytes, one short of a valid seed.
const shortSeedHex = "4d6f646f316261736531323334353637383961626364656667686970717273"

const validSeedHex = "9bf49a6a0755f953811fce125f2683d50429c3bb49e074147e0089a52eae155f"

func TestParseKeypairHex(t *testing.T) {
	for _, raw := range []string{validSeedHex, "0x" + validSeedHex} {
		keypair, err := ParseKeypair(raw)
		if err != nil {
			t.Fatalf("parse %q failed: %v", raw, err)
		}
		if len(keypair.PublicKey()) != ed25519.PublicKeySize {
			t.Fatalf("unexpected public key size %d", len(keypair.PublicKey()))
		}
	}
}

func TestParseKeypairRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "not-hex", shortSeedHex, "0x1234"} {
		if _, err := ParseKeypair(raw); err == nil {
			t.Fatalf("expected parse of %q to fail", raw)
		}
	}
}

func TestAddressFormat(t *testing.T) {
	keypair, err := ParseKeypair(validSeedHex)
	if err != nil {
		t.Fatalf("parse keypair failed: %v", err)
	}

	address := keypair.Address()
	if !strings.HasPrefix(address, "0x") || len(address) != 66 {
		t.Fatalf("expected 32-byte hex address with 0x prefix, got %q", address)
	}
	if address != keypair.Address() {
		t.Fatalf("address derivation must be deterministic")
	}

	flagged := append([]byte{ed25519SchemeFlag}, keypair.PublicKey()...)
	digest := blake2b.Sum256(flagged)
	want := "0x"
	for _, b := range digest {
		want += string("0123456789abcdef"[b>>4]) + string("0123456789abcdef"[b&0x0f])
	}
	if address != want {
		t.Fatalf("address %q does not match blake2b of flag||pubkey %q", address, want)
	}
}

func TestSignTransactionVerifies(t *testing.T) {
	keypair, err := ParseKeypair(validSeedHex)
	if err != nil {
		t.Fatalf("parse keypair failed: %v", err)
	}

	txBytes := []byte("transaction-bytes")
	serialized, err := base64.StdEncoding.DecodeString(keypair.SignTransaction(txBytes))
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}
	if len(serialized) != 1+ed25519.SignatureSize+ed25519.PublicKeySize {
		t.Fatalf("unexpected serialized signature length %d", len(serialized))
	}
	if serialized[0] != ed25519SchemeFlag {
		t.Fatalf("expected ed25519 scheme flag, got %#x", serialized[0])
	}

	signature := serialized[1 : 1+ed25519.SignatureSize]
	pubkey := ed25519.PublicKey(serialized[1+ed25519.SignatureSize:])
	message := append(append([]byte{}, intentTransactionData...), txBytes...)
	digest := blake2b.Sum256(message)
	if !ed25519.Verify(pubkey, digest[:], signature) {
		t.Fatalf("signature does not verify over the intent digest")
	}
}

func TestParseKeypairBech32Roundtrip(t *testing.T) {
	hexKeypair, err := ParseKeypair(validSeedHex)
	if err != nil {
		t.Fatalf("parse hex keypair failed: %v", err)
	}

	seed := make([]byte, ed25519.SeedSize)
	for i := 0; i < len(validSeedHex); i += 2 {
		seed[i/2] = hexNibble(validSeedHex[i])<<4 | hexNibble(validSeedHex[i+1])
	}
	encoded, err := bech32EncodeForTest(suiPrivKeyHRP, append([]byte{ed25519SchemeFlag}, seed...))
	if err != nil {
		t.Fatalf("encode suiprivkey failed: %v", err)
	}

	bechKeypair, err := ParseKeypair(encoded)
	if err != nil {
		t.Fatalf("parse suiprivkey failed: %v", err)
	}
	if bechKeypair.Address() != hexKeypair.Address() {
		t.Fatalf("bech32 and hex parses disagree: %q vs %q", bechKeypair.Address(), hexKeypair.Address())
	}
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	default:
		return c - 'a' + 10
	}
}

// bech32EncodeForTest is the inverse of bech32Decode, kept test-local since
// the adapter only ever reads keys.
func bech32EncodeForTest(hrp string, payload []byte) (string, error) {
	data, err := convertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	values := append(bech32HRPExpand(hrp), data...)
	polymod := bech32Polymod(append(values, 0, 0, 0, 0, 0, 0)) ^ 1
	checksum := make([]byte, 6)
	for i := range checksum {
		checksum[i] = byte(polymod>>uint(5*(5-i))) & 31
	}

	const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	var builder strings.Builder
	builder.WriteString(hrp)
	builder.WriteByte('1')
	for _, v := range append(data, checksum...) {
		builder.WriteByte(charset[v])
	}
	return builder.String(), nil
}
