// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ik5/audcue/audio"
)

func TestOpen_InvalidInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.mp3")
	require.NoError(t, os.WriteFile(path, []byte("This is not MP3 data"), 0o644))

	_, err := Open(path, audio.Options{})
	require.ErrorIs(t, err, ErrNotMp3File)
	require.ErrorIs(t, err, audio.ErrMalformedContainer)

	_, err = Open(filepath.Join(t.TempDir(), "missing.mp3"), audio.Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpener_Create(t *testing.T) {
	t.Parallel()

	_, err := Opener{}.Create("x.mp3", audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, audio.Options{})
	require.ErrorIs(t, err, audio.ErrReadOnly)
}

func TestOpen_RejectsSampleRate(t *testing.T) {
	t.Parallel()

	m := &mockMP3Reader{sampleRate: 48000, samples: stereo(10)}
	_, err := open(filepath.Join(t.TempDir(), "a.mp3"), m, m, audio.Options{})
	require.ErrorIs(t, err, audio.ErrUnsupportedLayout)
	assert.True(t, m.closed)
}

func TestOpen_ReadsDownmixedPCM(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 0, 2000)
	for i := range 1000 {
		samples = append(samples, int16(i), int16(i+2))
	}
	m := &mockMP3Reader{sampleRate: 44100, samples: samples, chunk: 1153}

	c, err := open(filepath.Join(t.TempDir(), "a.mp3"), m, m, audio.Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.TotalFrames())
	assert.Equal(t, 1, c.Channels())

	r, err := c.NewReader(500, -1)
	require.NoError(t, err)
	require.NoError(t, r.Open())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, 1000)
	assert.Equal(t, int16(501), int16(binary.LittleEndian.Uint16(data)))
	assert.Equal(t, int16(1000), int16(binary.LittleEndian.Uint16(data[998:])))

	require.NoError(t, r.Release())
	require.NoError(t, c.Close())
	assert.True(t, m.closed)
}

func TestOpen_TitleFromID3(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tagged.mp3")
	require.NoError(t, os.WriteFile(path, []byte("placeholder audio bytes"), 0o644))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle("Café Session")
	require.NoError(t, tag.Save())
	require.NoError(t, tag.Close())

	assert.Equal(t, "Café Session", readTitle(path, zap.NewNop()))
	assert.Empty(t, readTitle(filepath.Join(dir, "missing.mp3"), zap.NewNop()))

	m := &mockMP3Reader{sampleRate: 44100, samples: stereo(10)}
	c, err := open(path, m, m, audio.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Café Session", c.Metadata().Title())

	// a sidecar title wins over the tag
	require.NoError(t, c.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagged.cue"), []byte("TITLE \"From Sheet\"\n"), 0o644))

	m = &mockMP3Reader{sampleRate: 44100, samples: stereo(10)}
	c, err = open(path, m, m, audio.Options{})
	require.NoError(t, err)
	assert.Equal(t, "From Sheet", c.Metadata().Title())
	require.NoError(t, c.Close())
}

func TestOpen_SidecarCues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "set.mp3")
	sheet := "FILE \"set.mp3\" MP3\n  TRACK 01 AUDIO\n    TITLE \"a\"\n    INDEX 01 00:00:00\n  TRACK 02 AUDIO\n    TITLE \"b\"\n    INDEX 01 00:00:15\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "set.cue"), []byte(sheet), 0o644))

	m := &mockMP3Reader{sampleRate: 44100, samples: stereo(44100)}
	c, err := open(path, m, m, audio.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	cues := c.Cues()
	require.Len(t, cues, 2)
	assert.Equal(t, "a", cues[0].Label)
	assert.Equal(t, int64(0), cues[0].Location)
	assert.Equal(t, "b", cues[1].Label)
	assert.Equal(t, int64(8820), cues[1].Location)
}
