// SPDX-License-Identifier: EPL-2.0

// Package config holds the defaults used when a new container is created
// without explicit format parameters.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ik5/audcue/audio"
)

const (
	DefaultChannels      = 1
	DefaultSampleRate    = 44100
	DefaultBitsPerSample = 16
)

var ErrInvalidRecording = errors.New("invalid recording configuration")

// Recording is the format of newly created containers.
type Recording struct {
	Channels      int `toml:"channels"`
	SampleRate    int `toml:"sample_rate"`
	BitsPerSample int `toml:"bits_per_sample"`
}

type file struct {
	Recording Recording `toml:"recording"`
}

func Defaults() Recording {
	return Recording{
		Channels:      DefaultChannels,
		SampleRate:    DefaultSampleRate,
		BitsPerSample: DefaultBitsPerSample,
	}
}

func (r Recording) Format() audio.Format {
	return audio.Format{
		SampleRate:    r.SampleRate,
		Channels:      r.Channels,
		BitsPerSample: r.BitsPerSample,
	}
}

func (r Recording) Validate() error {
	if !r.Format().Valid() {
		return fmt.Errorf("%w: %d ch, %d Hz, %d bits", ErrInvalidRecording, r.Channels, r.SampleRate, r.BitsPerSample)
	}

	return nil
}

// Load reads a TOML file with a [recording] table. Keys that are absent keep
// their defaults.
func Load(path string) (Recording, error) {
	cfg := file{Recording: Defaults()}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Recording{}, fmt.Errorf("load %s: %w", path, err)
	}

	if err := cfg.Recording.Validate(); err != nil {
		return Recording{}, err
	}

	return cfg.Recording, nil
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Recording, error) {
	cfg := file{Recording: Defaults()}

	if _, err := toml.Decode(data, &cfg); err != nil {
		return Recording{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Recording.Validate(); err != nil {
		return Recording{}, err
	}

	return cfg.Recording, nil
}
