package query

import (
	"testing"

	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/kv"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	query := New(kv.New())
	query.Set("hello=world&empty=&flag&&hello=again&sp%20ace=a+b%21")

	t.Run("get existing key", func(t *testing.T) {
		value, found := query.Get("hello")
		require.True(t, found)
		require.Equal(t, "world", value)
	})

	t.Run("get non-existing key", func(t *testing.T) {
		value, found := query.Get("lorem")
		require.False(t, found)
		require.Empty(t, value)
	})

	t.Run("all", func(t *testing.T) {
		params, err := query.Unwrap()
		require.NoError(t, err)
		require.Equal(t, []string{"world", "again"}, params.Values("hello"))
		require.True(t, params.Has("flag"))
		require.True(t, params.Has("empty"))
		require.Equal(t, "a b!", params.Value("sp ace"))
	})

	t.Run("reset", func(t *testing.T) {
		query.Set("%zz=1")
		_, err := query.Unwrap()
		require.ErrorIs(t, err, status.ErrBadQuery)

		query.Set("a=1")
		value, found := query.Get("a")
		require.True(t, found)
		require.Equal(t, "1", value)
	})
}
