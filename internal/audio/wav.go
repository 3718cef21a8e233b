package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// PCMFormat describes raw little-endian 16-bit PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

var ErrOddPCMLength = errors.New("pcm16 payload has an odd byte count")

// EncodeWAV wraps raw PCM16LE bytes in a WAV container.
func EncodeWAV(pcm []byte, f PCMFormat) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	if err := WriteWAV(&buf, pcm, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAV writes a 44-byte RIFF header followed by pcm.
func WriteWAV(out io.Writer, pcm []byte, f PCMFormat) error {
	const bitsPerSample = 16
	if len(pcm)%2 != 0 {
		return ErrOddPCMLength
	}
	if f.SampleRate <= 0 {
		f.SampleRate = 16000
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}

	blockAlign := f.Channels * bitsPerSample / 8
	header := struct {
		RIFF          [4]byte
		ChunkSize     uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}
