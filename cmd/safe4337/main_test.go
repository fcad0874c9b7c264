package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/config"
)

func TestParseTx(t *testing.T) {
	tx, err := parseTx("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "0x0", tx.Value)
	assert.Equal(t, "0x", tx.Data)
	assert.False(t, tx.DelegateCall)

	tx, err = parseTx("0x1111111111111111111111111111111111111111,0x10,0xabcd,delegatecall")
	require.NoError(t, err)
	assert.Equal(t, "0x10", tx.Value)
	assert.Equal(t, "0xabcd", tx.Data)
	assert.True(t, tx.DelegateCall)

	for _, bad := range []string{"", "0x12", "0x1111111111111111111111111111111111111111,zz", "0x1111111111111111111111111111111111111111,0x0,0x,static", "a,b,c,d,e"} {
		_, err := parseTx(bad)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransactionParams), bad)
	}
}

func TestRequireLocalSigner(t *testing.T) {
	cfg := &config.Config{PrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"}
	assert.NoError(t, requireLocalSigner("send", cfg))

	cfg.Passkey.RPID = "example.com"
	err := requireLocalSigner("send", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSigner))
	assert.Contains(t, err.Error(), "no platform authenticator")
}
