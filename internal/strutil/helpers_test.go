package strutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripWS(t *testing.T) {
	require.Equal(t, "hello \t", LStripWS(" \thello \t"))
	require.Equal(t, " \thello", RStripWS(" \thello \t"))
	require.Empty(t, LStripWS(" \t "))
	require.Empty(t, RStripWS(" \t "))
}

func TestCutHeader(t *testing.T) {
	tcs := []struct {
		Header, Value, Params string
	}{
		{"text/html", "text/html", ""},
		{" text/html ;  charset=utf8", "text/html", "charset=utf8"},
		{"text/html;", "text/html", ""},
		{"", "", ""},
	}

	for _, tc := range tcs {
		value, params := CutHeader(tc.Header)
		require.Equal(t, tc.Value, value, tc.Header)
		require.Equal(t, tc.Params, params, tc.Header)
	}
}

func TestHasToken(t *testing.T) {
	require.True(t, HasToken("close", "close"))
	require.True(t, HasToken("keep-alive, upgrade", "upgrade"))
	require.True(t, HasToken(" te ,\tclose ", "close"))
	require.False(t, HasToken("keep-alive-not", "keep-alive"))
	require.False(t, HasToken("", "close"))
	require.False(t, HasToken(",,", "close"))
}
