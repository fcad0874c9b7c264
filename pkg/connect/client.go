// Package connect is a REST client for the Connect wallet API: wallet
// registration, WebAuthn signer bookkeeping and server-side signature checks.
package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/codec"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.connect.cometh.io"

	headerAPIKey    = "apikey"
	headerRequestID = "X-Request-Id"

	getAttempts = 3
	getDelay    = 200 * time.Millisecond
)

// DeviceData describes the device a passkey lives on.
type DeviceData struct {
	Browser  string `json:"browser" mapstructure:"browser"`
	OS       string `json:"os" mapstructure:"os"`
	Platform string `json:"platform" mapstructure:"platform"`
}

func (d *DeviceData) complete() bool {
	return d != nil && d.Browser != "" && d.OS != "" && d.Platform != ""
}

type InitWalletRequest struct {
	WalletAddress    string      `json:"walletAddress" mapstructure:"walletAddress"`
	InitiatorAddress string      `json:"initiatorAddress" mapstructure:"initiatorAddress"`
	PublicKeyID      string      `json:"publicKeyId,omitempty" mapstructure:"publicKeyId"`
	PublicKeyX       string      `json:"publicKeyX,omitempty" mapstructure:"publicKeyX"`
	PublicKeyY       string      `json:"publicKeyY,omitempty" mapstructure:"publicKeyY"`
	DeviceData       *DeviceData `json:"deviceData,omitempty" mapstructure:"deviceData"`
}

type InitWalletResponse struct {
	Success bool `json:"success"`
	IsNew   bool `json:"isNewWallet,omitempty"`
}

type CreateWebAuthnSignerRequest struct {
	WalletAddress string     `json:"walletAddress" mapstructure:"walletAddress"`
	PublicKeyID   string     `json:"publicKeyId" mapstructure:"publicKeyId"`
	PublicKeyX    string     `json:"publicKeyX" mapstructure:"publicKeyX"`
	PublicKeyY    string     `json:"publicKeyY" mapstructure:"publicKeyY"`
	DeviceData    DeviceData `json:"deviceData" mapstructure:"deviceData"`
	SignerAddress string     `json:"signerAddress" mapstructure:"signerAddress"`
}

// WebAuthnSigner is a passkey registered for a wallet.
type WebAuthnSigner struct {
	ID            string     `json:"_id"`
	ProjectID     string     `json:"projectId"`
	UserID        string     `json:"userId"`
	ChainID       string     `json:"chainId"`
	WalletAddress string     `json:"walletAddress"`
	PublicKeyID   string     `json:"publicKeyId"`
	PublicKeyX    string     `json:"publicKeyX"`
	PublicKeyY    string     `json:"publicKeyY"`
	SignerAddress string     `json:"signerAddress"`
	DeviceData    DeviceData `json:"deviceData"`
	CreationDate  string     `json:"creationDate,omitempty"`
}

type CreateWebAuthnSignerResponse struct {
	Success        bool            `json:"success"`
	WebAuthnSigner *WebAuthnSigner `json:"webAuthnSigner,omitempty"`
}

type GetPasskeySignersResponse struct {
	Success         bool             `json:"success"`
	WebAuthnSigners []WebAuthnSigner `json:"webAuthnSigners"`
}

type IsValidSignatureResponse struct {
	Success bool `json:"success"`
	Result  bool `json:"result"`
}

// APIError is a non-2xx answer or a body with success=false.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("connect api %d: %s (request %s)", e.Status, e.Message, e.RequestID)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	ChainID    uint64
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string
	chainID uint64
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Invalid("connect.NewClient", errors.ErrInvalidConfig, "api key is required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.Invalid("connect.NewClient", errors.ErrInvalidConfig, "chain id is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Invalid("connect.NewClient", errors.ErrInvalidConfig, "base url: %v", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		chainID: cfg.ChainID,
		http:    hc,
		log:     logger.Component("connect"),
	}, nil
}

// InitWallet registers walletAddress. Passkey fields are optional, and
// device data is dropped unless every field is set.
func (c *Client) InitWallet(ctx context.Context, req InitWalletRequest) (*InitWalletResponse, error) {
	if err := requireAddresses(map[string]string{"walletAddress": req.WalletAddress, "initiatorAddress": req.InitiatorAddress}); err != nil {
		return nil, err
	}
	if !req.DeviceData.complete() {
		req.DeviceData = nil
	}
	body := struct {
		ChainID string `json:"chainId"`
		InitWalletRequest
	}{fmt.Sprint(c.chainID), req}

	var resp InitWalletResponse
	if err := c.post(ctx, "/wallet/init", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateWebAuthnSigner(ctx context.Context, req CreateWebAuthnSignerRequest) (*CreateWebAuthnSignerResponse, error) {
	if err := requireAddresses(map[string]string{"walletAddress": req.WalletAddress, "signerAddress": req.SignerAddress}); err != nil {
		return nil, err
	}
	if req.PublicKeyID == "" || req.PublicKeyX == "" || req.PublicKeyY == "" {
		return nil, errors.Validation("connect.CreateWebAuthnSigner", "publicKeyId, publicKeyX and publicKeyY are required")
	}
	body := struct {
		ChainID                string `json:"chainId"`
		IsSharedWebAuthnSigner bool   `json:"isSharedWebAuthnSigner"`
		CreateWebAuthnSignerRequest
	}{fmt.Sprint(c.chainID), true, req}

	var resp CreateWebAuthnSignerResponse
	if err := c.post(ctx, "/webauthn-signer/create", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetPasskeySignersByWalletAddress(ctx context.Context, walletAddress string) (*GetPasskeySignersResponse, error) {
	if err := codec.RequireHexAddress("walletAddress", walletAddress); err != nil {
		return nil, err
	}
	var resp GetPasskeySignersResponse
	if err := c.get(ctx, "/webauthn-signer/"+url.PathEscape(walletAddress), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsValidSignature asks the API to verify an EIP-1271 signature, which also
// covers wallets that are not deployed yet.
func (c *Client) IsValidSignature(ctx context.Context, walletAddress, message, signature string) (*IsValidSignatureResponse, error) {
	if err := codec.RequireHexAddress("walletAddress", walletAddress); err != nil {
		return nil, err
	}
	if !codec.IsValidHex(signature) {
		return nil, errors.Invalid("connect.IsValidSignature", errors.ErrInvalidHex, "signature is not hex")
	}
	body := map[string]string{
		"chainId":   fmt.Sprint(c.chainID),
		"message":   message,
		"signature": signature,
	}
	var resp IsValidSignatureResponse
	if err := c.post(ctx, "/wallet/is-valid-signature/"+url.PathEscape(walletAddress), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func requireAddresses(fields map[string]string) error {
	for name, v := range fields {
		if err := codec.RequireHexAddress(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("connect: encode %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

// get is idempotent and retried on transport errors and 5xx answers.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return retry.Do(
		func() error { return c.do(ctx, http.MethodGet, path, nil, out) },
		retry.Context(ctx),
		retry.Attempts(getAttempts),
		retry.Delay(getDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Str("path", path).Msg("Retrying connect request")
		}),
	)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return errors.IsKind(err, errors.KindRPC)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	op := "connect " + method + " " + path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("connect: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.KindRPC, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.KindRPC, op, err)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Str("requestId", requestID).Msg("Connect response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw), RequestID: requestID}
	}

	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrap(errors.KindRPC, op, fmt.Errorf("decode response: %w", err))
	}
	if envelope.Success != nil && !*envelope.Success {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw), RequestID: requestID}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(errors.KindRPC, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
