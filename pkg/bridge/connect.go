package bridge

import (
	"context"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/connect"
)

// ConnectResult is the tagged record Connect calls resolve to. API-level
// rejections land in Error; invalid input and transport failures are returned
// as Go errors instead.
type ConnectResult[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func tagged[T any](v *T, err error) (ConnectResult[T], error) {
	if err != nil {
		var apiErr *connect.APIError
		if errors.As(err, &apiErr) {
			return ConnectResult[T]{Error: apiErr.Message}, nil
		}
		return ConnectResult[T]{}, err
	}
	return ConnectResult[T]{Success: true, Data: v}, nil
}

func (b *Bridge) connectClient(p ConnectParams) (*connect.Client, error) {
	return connect.NewClient(connect.Config{
		BaseURL:    p.BaseURL,
		APIKey:     p.APIKey,
		ChainID:    p.ChainID,
		HTTPClient: b.opts.HTTPClient,
	})
}

func (b *Bridge) ConnectInitWallet(ctx context.Context, p ConnectParams, req connect.InitWalletRequest) (ConnectResult[connect.InitWalletResponse], error) {
	c, err := b.connectClient(p)
	if err != nil {
		return ConnectResult[connect.InitWalletResponse]{}, err
	}
	return tagged(c.InitWallet(ctx, req))
}

func (b *Bridge) ConnectCreateWebAuthnSigner(ctx context.Context, p ConnectParams, req connect.CreateWebAuthnSignerRequest) (ConnectResult[connect.CreateWebAuthnSignerResponse], error) {
	c, err := b.connectClient(p)
	if err != nil {
		return ConnectResult[connect.CreateWebAuthnSignerResponse]{}, err
	}
	return tagged(c.CreateWebAuthnSigner(ctx, req))
}

func (b *Bridge) ConnectGetPasskeySignersByWalletAddress(ctx context.Context, p ConnectParams, walletAddress string) (ConnectResult[connect.GetPasskeySignersResponse], error) {
	c, err := b.connectClient(p)
	if err != nil {
		return ConnectResult[connect.GetPasskeySignersResponse]{}, err
	}
	return tagged(c.GetPasskeySignersByWalletAddress(ctx, walletAddress))
}

func (b *Bridge) ConnectIsValidSignature(ctx context.Context, p ConnectParams, walletAddress, message, signature string) (ConnectResult[connect.IsValidSignatureResponse], error) {
	c, err := b.connectClient(p)
	if err != nil {
		return ConnectResult[connect.IsValidSignatureResponse]{}, err
	}
	return tagged(c.IsValidSignature(ctx, walletAddress, message, signature))
}
