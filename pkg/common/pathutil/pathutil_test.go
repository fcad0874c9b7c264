package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	base := t.TempDir()

	p, err := Join(base, "passkeys")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "passkeys"), p)

	p, err = Join(base, "a/../b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "b"), p)

	for _, name := range []string{"", "/etc/passwd", "..", "../x", "a/../../x"} {
		_, err := Join(base, name)
		assert.ErrorIs(t, err, ErrEscapesBase, name)
	}
}

func TestCheckNoTraversal(t *testing.T) {
	assert.NoError(t, CheckNoTraversal("backups/backup-1.bak"))
	assert.NoError(t, CheckNoTraversal("/var/lib/safe4337/backup.bak"))
	assert.ErrorIs(t, CheckNoTraversal("../backup.bak"), ErrEscapesBase)
}
