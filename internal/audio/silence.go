// Package audio inspects uploaded WAV files so near-silent clips can be
// answered without running the speech engine.
package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

type Metrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Silent reports whether the measured signal stays under thresholdDBFS. The
// peak may exceed the threshold by 6 dB so that isolated clicks do not count
// as speech.
func (m Metrics) Silent(thresholdDBFS float64) bool {
	if m.Samples == 0 {
		return true
	}
	if math.IsInf(m.RMSdBFS, -1) && math.IsInf(m.PeakdBFS, -1) {
		return true
	}
	return m.RMSdBFS <= thresholdDBFS && m.PeakdBFS <= thresholdDBFS+6
}

// IsWAV reports whether header starts with a RIFF/WAVE signature.
func IsWAV(header []byte) bool {
	return len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE"
}

func IsSilentWAVFile(path string, thresholdDBFS float64) (bool, Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, Metrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	metrics, err := AnalyzeWAV(f)
	if err != nil {
		return false, Metrics{}, err
	}
	return metrics.Silent(thresholdDBFS), metrics, nil
}

type wavFormat struct {
	tag           uint16
	bitsPerSample uint16
}

// AnalyzeWAV measures RMS and peak levels over every sample of the data
// chunk. Samples are streamed, so arbitrarily long files use constant memory.
func AnalyzeWAV(r io.ReadSeeker) (Metrics, error) {
	format, dataSize, err := locateData(r)
	if err != nil {
		return Metrics{}, err
	}

	width := int(format.bitsPerSample / 8)
	decode, err := sampleDecoder(format)
	if err != nil {
		return Metrics{}, err
	}

	var (
		peak       float64
		sumSquares float64
		samples    int64
	)

	br := bufio.NewReaderSize(io.LimitReader(r, int64(dataSize)), 64<<10)
	buf := make([]byte, width)
	for {
		if _, err := io.ReadFull(br, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Metrics{}, fmt.Errorf("read wav data: %w", err)
		}

		value := decode(buf)
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return Metrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return Metrics{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

// locateData walks the RIFF chunks and leaves r positioned at the start of the
// data chunk.
func locateData(r io.ReadSeeker) (wavFormat, uint32, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return wavFormat{}, 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return wavFormat{}, 0, fmt.Errorf("read wav header: %w", err)
	}
	if !IsWAV(header) {
		return wavFormat{}, 0, ErrInvalidWAV
	}

	var (
		format    wavFormat
		hasFormat bool
	)

	chunk := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return wavFormat{}, 0, ErrInvalidWAV
			}
			return wavFormat{}, 0, fmt.Errorf("read wav chunk header: %w", err)
		}

		id := string(chunk[:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		padded := int64(size) + int64(size%2)

		switch id {
		case "fmt ":
			parsed, err := readFormat(r, size)
			if err != nil {
				return wavFormat{}, 0, err
			}
			format, hasFormat = parsed, true
			if size%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return wavFormat{}, 0, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			if !hasFormat {
				return wavFormat{}, 0, ErrInvalidWAV
			}
			return format, size, nil
		default:
			if _, err := r.Seek(padded, io.SeekCurrent); err != nil {
				return wavFormat{}, 0, fmt.Errorf("seek wav chunk %s: %w", id, err)
			}
		}
	}
}

func readFormat(r io.Reader, size uint32) (wavFormat, error) {
	if size < 16 {
		return wavFormat{}, ErrInvalidWAV
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return wavFormat{}, fmt.Errorf("read wav fmt chunk: %w", err)
	}

	format := wavFormat{
		tag:           binary.LittleEndian.Uint16(buf[0:2]),
		bitsPerSample: binary.LittleEndian.Uint16(buf[14:16]),
	}

	// WAVE_FORMAT_EXTENSIBLE carries the real format tag at the
	// start of the sub-format GUID.
	if format.tag == formatExtensible {
		if size < 26 {
			return wavFormat{}, ErrInvalidWAV
		}
		format.tag = binary.LittleEndian.Uint16(buf[24:26])
	}
	return format, nil
}

func sampleDecoder(format wavFormat) (func([]byte) float64, error) {
	switch {
	case format.tag == formatFloat && format.bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case format.tag == formatFloat && format.bitsPerSample == 64:
		return func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	case format.tag == formatPCM && format.bitsPerSample == 8:
		return func(b []byte) float64 {
			return (float64(b[0]) - 128.0) / 128.0
		}, nil
	case format.tag == formatPCM && format.bitsPerSample == 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		}, nil
	case format.tag == formatPCM && format.bitsPerSample == 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			return float64(v) / 8388608.0
		}, nil
	case format.tag == formatPCM && format.bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
		}, nil
	default:
		return nil, fmt.Errorf("%w: format %d with %d bits", ErrUnsupportedWAV, format.tag, format.bitsPerSample)
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
