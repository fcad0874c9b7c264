package connect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/common/errors"
)

const (
	testWallet = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	testSigner = "0x2a40b2B2C8a7f4A3e3f2d1b2c5D6E7F8091A2B3C"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123", ChainID: 84532})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{ChainID: 1})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = NewClient(Config{APIKey: "k"})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	c, err := NewClient(Config{APIKey: "k", ChainID: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestInitWallet(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wallet/init", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("apikey"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	resp, err := c.InitWallet(context.Background(), InitWalletRequest{
		WalletAddress:    testWallet,
		InitiatorAddress: testSigner,
		DeviceData:       &DeviceData{Browser: "Chrome"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "84532", got["chainId"])
	assert.Equal(t, testWallet, got["walletAddress"])
	assert.NotContains(t, got, "deviceData", "incomplete device data is dropped")
	assert.NotContains(t, got, "publicKeyX")
}

func TestInitWalletRejectsBadAddress(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	_, err := c.InitWallet(context.Background(), InitWalletRequest{WalletAddress: "0x12", InitiatorAddress: testSigner})
	assert.True(t, errors.Is(err, errors.ErrInvalidAddress))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCreateWebAuthnSigner(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webauthn-signer/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"webAuthnSigner":{"_id":"s1","publicKeyId":"0xabcd","walletAddress":"` + testWallet + `"}}`))
	})

	resp, err := c.CreateWebAuthnSigner(context.Background(), CreateWebAuthnSignerRequest{
		WalletAddress: testWallet,
		PublicKeyID:   "0xabcd",
		PublicKeyX:    "0x01",
		PublicKeyY:    "0x02",
		DeviceData:    DeviceData{Browser: "Chrome", OS: "macOS", Platform: "desktop"},
		SignerAddress: testSigner,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.WebAuthnSigner)
	assert.Equal(t, "s1", resp.WebAuthnSigner.ID)
	assert.Equal(t, true, got["isSharedWebAuthnSigner"])
	assert.Equal(t, "macOS", got["deviceData"].(map[string]interface{})["os"])

	_, err = c.CreateWebAuthnSigner(context.Background(), CreateWebAuthnSignerRequest{WalletAddress: testWallet, SignerAddress: testSigner})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestGetPasskeySignersRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/webauthn-signer/"+testWallet, r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"webAuthnSigners":[{"_id":"a"},{"_id":"b"}]}`))
	})

	resp, err := c.GetPasskeySignersByWalletAddress(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, resp.WebAuthnSigners, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetPasskeySignersDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := c.GetPasskeySignersByWalletAddress(context.Background(), testWallet)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestIsValidSignature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallet/is-valid-signature/"+testWallet, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"success":true,"result":` + map[bool]string{true: "true", false: "false"}[body["message"] == "hello"] + `}`))
	})

	resp, err := c.IsValidSignature(context.Background(), testWallet, "hello", "0x1234")
	require.NoError(t, err)
	assert.True(t, resp.Result)

	resp, err = c.IsValidSignature(context.Background(), testWallet, "other", "0x1234")
	require.NoError(t, err)
	assert.False(t, resp.Result)

	_, err = c.IsValidSignature(context.Background(), testWallet, "hello", "nothex")
	assert.True(t, errors.Is(err, errors.ErrInvalidHex))
}

func TestUnsuccessfulBodyIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"wallet already exists"}`))
	})
	_, err := c.InitWallet(context.Background(), InitWalletRequest{WalletAddress: testWallet, InitiatorAddress: testSigner})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "wallet already exists", apiErr.Message)
}
