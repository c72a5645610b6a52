package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoZeroFields(t *testing.T) {
	cfg := Default()

	for _, field := range visit(newVar(*cfg), "Config", false) {
		assert.Fail(t, "zero-value field", field)
	}

	require.NoError(t, cfg.Validate())
}

func TestDecode(t *testing.T) {
	t.Run("partial document", func(t *testing.T) {
		cfg, err := Decode([]byte(`{
			"NET": {"ReadTimeout": "15s", "ReadBufferSize": 512},
			"Headers": {"Default": {"Server": "wire"}}
		}`))
		require.NoError(t, err)
		require.Equal(t, 15*time.Second, cfg.NET.ReadTimeout)
		require.Equal(t, 512, cfg.NET.ReadBufferSize)
		require.Equal(t, "wire", cfg.Headers.Default["Server"])
		require.Equal(t, Default().Headers.Number, cfg.Headers.Number)
		require.Equal(t, Default().NET.AcceptLoopInterruptPeriod, cfg.NET.AcceptLoopInterruptPeriod)
	})

	t.Run("nanoseconds", func(t *testing.T) {
		cfg, err := Decode([]byte(`{"NET": {"AcceptLoopInterruptPeriod": 1000}}`))
		require.NoError(t, err)
		require.Equal(t, time.Microsecond, cfg.NET.AcceptLoopInterruptPeriod)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Decode([]byte(`{"NET": {"ReadTimeout": "forever"}}`))
		require.Error(t, err)
	})

	t.Run("invalid limits", func(t *testing.T) {
		_, err := Decode([]byte(`{"Headers": {"Number": {"Default": 10, "Maximal": 1}}}`))
		require.Error(t, err)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wire.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Body": {"MaxSize": 1024}}`), 0o600))
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, uint64(1024), cfg.Body.MaxSize)

		_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}

type variable struct {
	Type  reflect.Type
	Value reflect.Value
}

func newVar(a any) variable {
	return variable{reflect.TypeOf(a), reflect.ValueOf(a)}
}

func visit(a variable, name string, nullable bool) (fields []string) {
	if a.Type.Kind() == reflect.Struct {
		for field := range a.Value.NumField() {
			v1 := variable{a.Type.Field(field).Type, a.Value.Field(field)}
			fieldname := a.Type.Field(field).Name
			isNullable := a.Type.Field(field).Tag.Get("test") == "nullable"
			fields = append(fields, visit(v1, name+"."+fieldname, isNullable)...)
		}

		return fields
	}

	if a.Value.IsZero() && !nullable {
		return []string{name}
	}

	return nil
}
