package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSilentWAVFileDetectsSilence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(path, PCM16WAV(make([]int16, 16000), 16000), 0o644))

	silent, metrics, err := IsSilentWAVFile(path, -65)
	require.NoError(t, err)
	require.True(t, silent)
	require.True(t, math.IsInf(metrics.RMSdBFS, -1))
	require.True(t, math.IsInf(metrics.PeakdBFS, -1))
	require.EqualValues(t, 16000, metrics.Samples)
}

func TestIsSilentWAVFileDetectsSpeechLikeSignal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, PCM16WAV(sine(16000, 0.25), 16000), 0o644))

	silent, metrics, err := IsSilentWAVFile(path, -65)
	require.NoError(t, err)
	require.False(t, silent)
	require.Greater(t, metrics.PeakdBFS, -20.0)
	require.Greater(t, metrics.RMSdBFS, -20.0)
}

func TestAnalyzeWAVEmptyDataChunkIsSilent(t *testing.T) {
	t.Parallel()

	metrics, err := AnalyzeWAV(bytes.NewReader(PCM16WAV(nil, 16000)))
	require.NoError(t, err)
	require.Zero(t, metrics.Samples)
	require.True(t, metrics.Silent(-65))
}

func TestAnalyzeWAVSkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	wav := PCM16WAV(sine(800, 0.5), 16000)
	// Insert an odd-sized LIST chunk between fmt and data.
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	withList := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)

	metrics, err := AnalyzeWAV(bytes.NewReader(withList))
	require.NoError(t, err)
	require.EqualValues(t, 800, metrics.Samples)
	require.False(t, metrics.Silent(-65))
}

func TestAnalyzeWAVExtensibleFloat(t *testing.T) {
	t.Parallel()

	payload := new(bytes.Buffer)
	for i := 0; i < 100; i++ {
		require.NoError(t, binary.Write(payload, binary.LittleEndian, float32(0.5)))
	}

	metrics, err := AnalyzeWAV(bytes.NewReader(buildWAV(formatExtensible, formatFloat, 32, payload.Bytes())))
	require.NoError(t, err)
	require.EqualValues(t, 100, metrics.Samples)
	require.InDelta(t, amplitudeToDBFS(0.5), metrics.PeakdBFS, 1e-9)
}

func TestAnalyzeWAVUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := AnalyzeWAV(bytes.NewReader(buildWAV(2, 0, 4, []byte{1, 2, 3, 4})))
	require.ErrorIs(t, err, ErrUnsupportedWAV)
}

func TestIsSilentWAVFileInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, _, err := IsSilentWAVFile(path, -65)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestIsWAV(t *testing.T) {
	t.Parallel()

	require.True(t, IsWAV(PCM16WAV(nil, 8000)))
	require.False(t, IsWAV([]byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00")))
	require.False(t, IsWAV([]byte("RIFF")))
}

func TestMetricsSilentAllowsQuietClicks(t *testing.T) {
	t.Parallel()

	require.True(t, Metrics{RMSdBFS: -80, PeakdBFS: -60, Samples: 10}.Silent(-65))
	require.False(t, Metrics{RMSdBFS: -80, PeakdBFS: -50, Samples: 10}.Silent(-65))
	require.False(t, Metrics{RMSdBFS: -30, PeakdBFS: -10, Samples: 10}.Silent(-65))
}

func sine(n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}
	return samples
}

// buildWAV assembles a mono RIFF file. An extensible tag writes a 40-byte fmt
// chunk whose sub-format starts with subTag.
func buildWAV(tag, subTag, bits uint16, payload []byte) []byte {
	fmtChunk := new(bytes.Buffer)
	_ = binary.Write(fmtChunk, binary.LittleEndian, tag)
	_ = binary.Write(fmtChunk, binary.LittleEndian, uint16(1))
	_ = binary.Write(fmtChunk, binary.LittleEndian, uint32(16000))
	_ = binary.Write(fmtChunk, binary.LittleEndian, uint32(16000*int(bits)/8))
	_ = binary.Write(fmtChunk, binary.LittleEndian, uint16(bits/8))
	_ = binary.Write(fmtChunk, binary.LittleEndian, bits)
	if tag == formatExtensible {
		_ = binary.Write(fmtChunk, binary.LittleEndian, uint16(22))
		_ = binary.Write(fmtChunk, binary.LittleEndian, bits)
		_ = binary.Write(fmtChunk, binary.LittleEndian, uint32(0))
		_ = binary.Write(fmtChunk, binary.LittleEndian, subTag)
		fmtChunk.Write(make([]byte, 14))
	}

	out := new(bytes.Buffer)
	out.WriteString("RIFF")
	_ = binary.Write(out, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8+len(payload)))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(out, binary.LittleEndian, uint32(fmtChunk.Len()))
	out.Write(fmtChunk.Bytes())
	out.WriteString("data")
	_ = binary.Write(out, binary.LittleEndian, uint32(len(payload)))
	out.Write(payload)
	return out.Bytes()
}
