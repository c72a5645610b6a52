package config

import (
	"os"
	"time"
	"unsafe"

	json "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

func init() {
	// durations are accepted both as nanoseconds and as strings like "90s"
	json.RegisterTypeDecoderFunc("time.Duration", func(ptr unsafe.Pointer, iter *json.Iterator) {
		if iter.WhatIsNext() != json.StringValue {
			*(*time.Duration)(ptr) = time.Duration(iter.ReadInt64())
			return
		}

		d, err := time.ParseDuration(iter.ReadString())
		if err != nil {
			iter.ReportError("decode time.Duration", err.Error())
			return
		}

		*(*time.Duration)(ptr) = d
	})
}

// Load reads a JSON document from the file and applies it on top of defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	return Decode(data)
}

// Decode applies a JSON document on top of defaults. Fields missing in the document keep
// their default values.
func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports settings which cannot work together.
func (c *Config) Validate() error {
	switch {
	case c.URI.RequestLineSize.Maximal <= 0:
		return errors.New("URI.RequestLineSize.Maximal must be positive")
	case c.Headers.Number.Maximal < c.Headers.Number.Default:
		return errors.New("Headers.Number.Maximal must not be less than the default")
	case c.Headers.Space.Maximal < c.Headers.Space.Default:
		return errors.New("Headers.Space.Maximal must not be less than the default")
	case c.NET.ReadBufferSize <= 0:
		return errors.New("NET.ReadBufferSize must be positive")
	case c.NET.WriteBufferSize.Maximal < c.NET.WriteBufferSize.Default:
		return errors.New("NET.WriteBufferSize.Maximal must not be less than the default")
	}

	return nil
}
