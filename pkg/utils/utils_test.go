package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "********", MaskSecret("abcdefgh"))
	assert.Equal(t, "0x4c**********2318", MaskSecret("0x4c0883a69b992318"))
}
