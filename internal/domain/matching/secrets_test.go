package matching

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKeysAreIndependent(t *testing.T) {
	keys, err := GenerateSecretKeys()
	require.NoError(t, err)
	require.NotEmpty(t, keys.FeedbackSecretKey)
	require.NotEmpty(t, keys.InboundSecretKey)
	require.NotEqual(t, keys.FeedbackSecretKey, keys.InboundSecretKey)

	again, err := GenerateSecretKeys()
	require.NoError(t, err)
	require.NotEqual(t, keys.InboundSecretKey, again.InboundSecretKey)
}

func TestSecretKeysDecodeTo32Bytes(t *testing.T) {
	keys, err := GenerateSecretKeys()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(keys.InboundSecretKey)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestSecretKeyMatches(t *testing.T) {
	require.True(t, secretKeyMatches("abc", "abc"))
	require.False(t, secretKeyMatches("abc", "abd"))
	require.False(t, secretKeyMatches("abc", "abcd"))
	require.False(t, secretKeyMatches("abc", ""))
}
