// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	d := Defaults()
	require.Equal(t, 1, d.Channels)
	require.Equal(t, 44100, d.SampleRate)
	require.Equal(t, 16, d.BitsPerSample)
	require.NoError(t, d.Validate())
	require.Equal(t, 2, d.Format().FrameSize())
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	r, err := Parse("[recording]\nchannels = 2\n")
	require.NoError(t, err)
	require.Equal(t, 2, r.Channels)
	require.Equal(t, DefaultSampleRate, r.SampleRate)
	require.Equal(t, DefaultBitsPerSample, r.BitsPerSample)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse("[recording]\nbits_per_sample = 12\n")
	require.ErrorIs(t, err, ErrInvalidRecording)

	_, err = Parse("[recording\n")
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audcue.toml")
	require.NoError(t, os.WriteFile(path, []byte("[recording]\nsample_rate = 48000\nbits_per_sample = 24\n"), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Recording{Channels: 1, SampleRate: 48000, BitsPerSample: 24}, r)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
