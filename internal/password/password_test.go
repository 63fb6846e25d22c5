package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, Verify("hunter2", hash))
	require.False(t, Verify("hunter3", hash))
	require.False(t, Verify("hunter2", "not-a-hash"))
}
