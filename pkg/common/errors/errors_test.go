package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidMatchesSentinelAndKind(t *testing.T) {
	err := Invalid("NewConfig", ErrInvalidConfig, "safe4337ModuleAddress %q", "0x12")

	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.True(t, IsKind(err, KindValidation))
	assert.Contains(t, err.Error(), "safe4337ModuleAddress")
}

func TestKindSurvivesFmtWrapping(t *testing.T) {
	inner := Wrap(KindEstimationFailed, "Prepare", errors.New("AA23 reverted"))
	outer := fmt.Errorf("send user operation: %w", inner)

	assert.Equal(t, KindEstimationFailed, KindOf(outer))
	assert.True(t, errors.Is(outer, &Error{Kind: KindEstimationFailed}))
	assert.False(t, errors.Is(outer, &Error{Kind: KindSponsorshipFailed}))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindRPC, "op", nil))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
