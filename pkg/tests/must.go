package tests

import (
	"encoding/base64"

	"github.com/stretchr/testify/require"
)

// MustDecodeBase64 decodes the base64 string using base64.StdEncoding.DecodeString or fails
// the test.
func MustDecodeBase64(t T, s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}
