package sui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
)

const (
	testPackageID     = "0x2f1f6a3d0000000000000000000000000000000000000000000000000000beef"
	testTreasuryCapID = "0x3a3a3a3a0000000000000000000000000000000000000000000000000000cafe"
)

type rpcCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// newRPCServer serves a canned two-step mint flow and records each call.
func newRPCServer(t *testing.T, calls *[]rpcCall, executeResult map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		*calls = append(*calls, call)

		var result any
		switch call.Method {
		case "unsafe_moveCall":
			result = map[string]any{
				"txBytes": base64.StdEncoding.EncodeToString([]byte("tx-bytes")),
			}
		case "sui_executeTransactionBlock":
			result = executeResult
		default:
			t.Errorf("unexpected rpc method %q", call.Method)
			return
		}
		if err := json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  result,
		}); err != nil {
			t.Errorf("encode rpc response: %v", err)
		}
	}))
}

func newTestClient(t *testing.T, rpcURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		RPCURL:        rpcURL,
		PrivateKey:    validSeedHex,
		PackageID:     testPackageID,
		TreasuryCapID: testTreasuryCapID,
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestSubmitTransferReturnsDigest(t *testing.T) {
	var calls []rpcCall
	server := newRPCServer(t, &calls, map[string]any{
		"digest": "8f2Digest",
		"effects": map[string]any{
			"status": map[string]any{"status": "success"},
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	confirmation, err := client.SubmitTransfer(context.Background(), 120, "0xABC")
	if err != nil {
		t.Fatalf("submit transfer failed: %v", err)
	}
	if confirmation.Digest != "8f2Digest" {
		t.Fatalf("unexpected digest %q", confirmation.Digest)
	}
	if len(calls) != 2 || calls[0].Method != "unsafe_moveCall" || calls[1].Method != "sui_executeTransactionBlock" {
		t.Fatalf("expected build then execute, got %+v", calls)
	}
}

func TestSubmitTransferConvertsToBaseUnits(t *testing.T) {
	var calls []rpcCall
	server := newRPCServer(t, &calls, map[string]any{
		"digest": "d",
		"effects": map[string]any{
			"status": map[string]any{"status": "success"},
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.SubmitTransfer(context.Background(), 120, "0xABC"); err != nil {
		t.Fatalf("submit transfer failed: %v", err)
	}

	moveCall := calls[0].Params
	if len(moveCall) != 8 {
		t.Fatalf("unexpected moveCall param count %d", len(moveCall))
	}
	args, ok := moveCall[5].([]any)
	if !ok || len(args) != 3 {
		t.Fatalf("unexpected call arguments %+v", moveCall[5])
	}
	if args[0] != testTreasuryCapID || args[1] != "120000000" || args[2] != "0xABC" {
		t.Fatalf("expected 6-decimal base units and destination, got %+v", args)
	}
}

func TestSubmitTransferSendsVerifiableSignature(t *testing.T) {
	var calls []rpcCall
	server := newRPCServer(t, &calls, map[string]any{
		"digest": "d",
		"effects": map[string]any{
			"status": map[string]any{"status": "success"},
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.SubmitTransfer(context.Background(), 1, "0xABC"); err != nil {
		t.Fatalf("submit transfer failed: %v", err)
	}

	execute := calls[1].Params
	signatures, ok := execute[1].([]any)
	if !ok || len(signatures) != 1 {
		t.Fatalf("expected a single signature, got %+v", execute[1])
	}
	keypair, _ := ParseKeypair(validSeedHex)
	if signatures[0] != keypair.SignTransaction([]byte("tx-bytes")) {
		t.Fatalf("signature does not cover the node-built tx bytes")
	}
}

func TestSubmitTransferRejectsInvalidDestination(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	for _, destination := range []string{"", "ABC", "0x", "0xZZ", "0x" + strings.Repeat("a", 65)} {
		_, err := client.SubmitTransfer(context.Background(), 10, destination)
		if !errors.Is(err, domainerrors.ErrInvalidDestination) {
			t.Fatalf("expected invalid destination for %q, got %v", destination, err)
		}
	}
}

func TestSubmitTransferRejectsNonPositiveAmounts(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	for _, amount := range []int64{0, -5} {
		_, err := client.SubmitTransfer(context.Background(), amount, "0xABC")
		if !errors.Is(err, domainerrors.ErrAmountOutOfRange) {
			t.Fatalf("expected out-of-range for %d, got %v", amount, err)
		}
	}
}

func TestSubmitTransferSurfacesLedgerFailure(t *testing.T) {
	var calls []rpcCall
	server := newRPCServer(t, &calls, map[string]any{
		"digest": "d",
		"effects": map[string]any{
			"status": map[string]any{"status": "failure", "error": "MoveAbort"},
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitTransfer(context.Background(), 10, "0xABC")
	if !errors.Is(err, domainerrors.ErrSubmissionFailed) {
		t.Fatalf("expected submission failure, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(ClientConfig{PrivateKey: validSeedHex, PackageID: testPackageID, TreasuryCapID: testTreasuryCapID}); err == nil {
		t.Fatalf("expected missing rpc url to fail")
	}
	if _, err := NewClient(ClientConfig{RPCURL: "http://localhost:9000", PrivateKey: validSeedHex}); err == nil {
		t.Fatalf("expected missing object ids to fail")
	}
	_, err := NewClient(ClientConfig{RPCURL: "http://localhost:9000", PrivateKey: "nope", PackageID: testPackageID, TreasuryCapID: testTreasuryCapID})
	if !errors.Is(err, domainerrors.ErrSigningFailed) {
		t.Fatalf("expected signing error for bad key, got %v", err)
	}
}
