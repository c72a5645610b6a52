package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want Protocol
	}{
		{"HTTP/1.0", HTTP10},
		{"HTTP/1.1", HTTP11},
		{"HTTP/2.0", Unknown},
		{"HTTP/1.1 ", Unknown},
		{"HTTP/1-1", Unknown},
		{"HTTPS1.1", Unknown},
		{"", Unknown},
	} {
		require.Equal(t, tc.want, FromBytes([]byte(tc.raw)), tc.raw)
	}

	require.Equal(t, "HTTP/1.1", HTTP11.String())
	require.Empty(t, Unknown.String())
}
