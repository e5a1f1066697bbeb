package sui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

const (
	defaultGasBudget     = 10_000_000
	defaultTokenDecimals = 6
	defaultCallTimeout   = 30 * time.Second

	mintModule   = "capt_token"
	mintFunction = "mint"
)

type ClientConfig struct {
	RPCURL        string
	PrivateKey    string
	PackageID     string
	TreasuryCapID string
	TokenDecimals int
	GasBudget     uint64
	Logger        *slog.Logger
}

// Client submits capt_token::mint calls to a Sui fullnode over JSON-RPC.
// The node builds the transaction bytes (unsafe_moveCall), the client signs
// them and executes the block.
type Client struct {
	rpcURL        string
	httpClient    *http.Client
	keypair       Keypair
	senderAddress string
	packageID     string
	treasuryCapID string
	decimals      int
	gasBudget     uint64
	logger        *slog.Logger
	requestID     atomic.Int64
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("sui rpc url is required")
	}
	if strings.TrimSpace(cfg.PackageID) == "" || strings.TrimSpace(cfg.TreasuryCapID) == "" {
		return nil, fmt.Errorf("package id and treasury cap id are required")
	}
	keypair, err := ParseKeypair(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrSigningFailed, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	decimals := cfg.TokenDecimals
	if decimals <= 0 {
		decimals = defaultTokenDecimals
	}
	gasBudget := cfg.GasBudget
	if gasBudget == 0 {
		gasBudget = defaultGasBudget
	}
	return &Client{
		rpcURL:        strings.TrimSpace(cfg.RPCURL),
		httpClient:    &http.Client{Timeout: defaultCallTimeout},
		keypair:       keypair,
		senderAddress: keypair.Address(),
		packageID:     strings.TrimSpace(cfg.PackageID),
		treasuryCapID: strings.TrimSpace(cfg.TreasuryCapID),
		decimals:      decimals,
		gasBudget:     gasBudget,
		logger:        logger,
	}, nil
}

// SubmitTransfer mints amountTokens (whole tokens) to the destination
// address. The returned confirmation carries the transaction digest.
func (c *Client) SubmitTransfer(ctx context.Context, amountTokens int64, destination string) (entities.TransferConfirmation, error) {
	destination = strings.TrimSpace(destination)
	if !isValidAddress(destination) {
		return entities.TransferConfirmation{}, fmt.Errorf("%w: %q", domainerrors.ErrInvalidDestination, destination)
	}
	baseUnits, err := c.toBaseUnits(amountTokens)
	if err != nil {
		return entities.TransferConfirmation{}, err
	}

	txBytes, err := c.buildMintTransaction(ctx, baseUnits, destination)
	if err != nil {
		return entities.TransferConfirmation{}, err
	}

	rawTx, err := base64.StdEncoding.DecodeString(txBytes)
	if err != nil {
		return entities.TransferConfirmation{}, fmt.Errorf("%w: decode tx bytes: %v", domainerrors.ErrSubmissionFailed, err)
	}
	signature := c.keypair.SignTransaction(rawTx)

	digest, err := c.executeTransaction(ctx, txBytes, signature)
	if err != nil {
		return entities.TransferConfirmation{}, err
	}

	c.logger.Info("mint transaction executed",
		"event", "sui_mint_executed",
		"module", "rewarding/disbursement-service",
		"layer", "adapter",
		"destination", destination,
		"amount_tokens", amountTokens,
		"base_units", baseUnits,
		"digest", digest,
	)
	return entities.TransferConfirmation{Digest: digest}, nil
}

func (c *Client) toBaseUnits(amountTokens int64) (uint64, error) {
	if amountTokens <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive, got %d", domainerrors.ErrAmountOutOfRange, amountTokens)
	}
	multiplier := int64(1)
	for i := 0; i < c.decimals; i++ {
		multiplier *= 10
	}
	baseUnits := amountTokens * multiplier
	if baseUnits/multiplier != amountTokens {
		return 0, fmt.Errorf("%w: %d tokens overflows base units", domainerrors.ErrAmountOutOfRange, amountTokens)
	}
	return uint64(baseUnits), nil
}

func (c *Client) buildMintTransaction(ctx context.Context, baseUnits uint64, destination string) (string, error) {
	params := []any{
		c.senderAddress,
		c.packageID,
		mintModule,
		mintFunction,
		[]any{},
		[]any{c.treasuryCapID, strconv.FormatUint(baseUnits, 10), destination},
		nil,
		strconv.FormatUint(c.gasBudget, 10),
	}
	var result struct {
		TxBytes string `json:"txBytes"`
	}
	if err := c.call(ctx, "unsafe_moveCall", params, &result); err != nil {
		return "", fmt.Errorf("%w: build mint call: %v", domainerrors.ErrSubmissionFailed, err)
	}
	if result.TxBytes == "" {
		return "", fmt.Errorf("%w: node returned empty tx bytes", domainerrors.ErrSubmissionFailed)
	}
	return result.TxBytes, nil
}

func (c *Client) executeTransaction(ctx context.Context, txBytes string, signature string) (string, error) {
	params := []any{
		txBytes,
		[]string{signature},
		map[string]any{"showEffects": true},
		"WaitForLocalExecution",
	}
	var result struct {
		Digest  string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
	}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &result); err != nil {
		return "", fmt.Errorf("%w: execute transaction: %v", domainerrors.ErrSubmissionFailed, err)
	}
	if status := result.Effects.Status.Status; status != "" && status != "success" {
		return "", fmt.Errorf("%w: transaction failed on ledger: %s", domainerrors.ErrSubmissionFailed, result.Effects.Status.Error)
	}
	if result.Digest == "" {
		return "", fmt.Errorf("%w: node returned no digest", domainerrors.ErrSubmissionFailed)
	}
	return result.Digest, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s rpc call: %w", method, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s rpc call returned status %d", method, response.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s rpc error %d: %s", method, decoded.Error.Code, decoded.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// isValidAddress accepts short-form Sui addresses, so plain hex decoding
// (which rejects odd lengths) is not usable here.
func isValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	body := address[2:]
	if len(body) == 0 || len(body) > 64 {
		return false
	}
	for _, c := range body {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

var _ ports.Ledger = (*Client)(nil)
