package audio

import (
	"bytes"
	"encoding/binary"
)

// PCM16WAV encodes mono 16-bit samples as a WAV file. Tests in other packages
// use it to build upload fixtures.
func PCM16WAV(samples []int16, sampleRate int) []byte {
	payload := new(bytes.Buffer)
	for _, s := range samples {
		_ = binary.Write(payload, binary.LittleEndian, s)
	}

	out := new(bytes.Buffer)
	out.WriteString("RIFF")
	_ = binary.Write(out, binary.LittleEndian, uint32(36+payload.Len()))
	out.WriteString("WAVEfmt ")
	_ = binary.Write(out, binary.LittleEndian, uint32(16))
	_ = binary.Write(out, binary.LittleEndian, uint16(formatPCM))
	_ = binary.Write(out, binary.LittleEndian, uint16(1))
	_ = binary.Write(out, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(out, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(out, binary.LittleEndian, uint16(2))
	_ = binary.Write(out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	_ = binary.Write(out, binary.LittleEndian, uint32(payload.Len()))
	out.Write(payload.Bytes())
	return out.Bytes()
}
