// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audcue/audio"
)

func TestOpen_InvalidInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.ogg")
	require.NoError(t, os.WriteFile(path, []byte("This is not Ogg Vorbis data"), 0o644))

	_, err := Open(path, audio.Options{})
	require.ErrorIs(t, err, ErrNotVorbisFile)
	require.ErrorIs(t, err, audio.ErrMalformedContainer)
}

func TestOpener_Create(t *testing.T) {
	t.Parallel()

	_, err := Opener{}.Create("x.ogg", audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, audio.Options{})
	require.ErrorIs(t, err, audio.ErrReadOnly)
}

func TestOpen_RejectsSampleRate(t *testing.T) {
	t.Parallel()

	m := &mockOggVorbisReader{sampleRate: 22050, channels: 1, samples: make([]float32, 10)}
	_, err := open(filepath.Join(t.TempDir(), "a.ogg"), m, m, audio.Options{})
	require.ErrorIs(t, err, audio.ErrUnsupportedLayout)
	assert.True(t, m.closed)
}

func TestOpen_SidecarRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "drive.ogg")

	samples := make([]float32, 2*44100)
	for i := range samples {
		samples[i] = 0.5
	}

	m := &mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: samples, comments: []string{"TITLE=Night Drive"}}
	c, err := open(path, m, m, audio.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", c.Metadata().Title())
	assert.Equal(t, int64(44100), c.TotalFrames())

	r, err := c.NewReader(0, 10)
	require.NoError(t, err)
	require.NoError(t, r.Open())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, 20)
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(data)))
	require.NoError(t, r.Release())

	require.NoError(t, c.AddCue(22050, "half"))
	require.NoError(t, c.Close())

	sheet, err := os.ReadFile(filepath.Join(dir, "drive.cue"))
	require.NoError(t, err)
	assert.Contains(t, string(sheet), `FILE "drive.ogg" OGG`)
	assert.Contains(t, string(sheet), `TITLE "Night Drive"`)

	m = &mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: samples}
	c, err = open(path, m, m, audio.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	cues := c.Cues()
	require.Len(t, cues, 1)
	assert.Equal(t, "half", cues[0].Label)
	assert.InDelta(t, 22050, cues[0].Location, 44100/75)
}
