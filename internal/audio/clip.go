package audio

import (
	"bytes"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
)

const octetStream = "application/octet-stream"

// Prepare returns bytes and a MIME type that a transcription provider accepts.
// Raw PCM (audio/pcm, audio/l16) is wrapped into WAV; anything unlabeled is sniffed.
func Prepare(data []byte, declaredType, filename string) ([]byte, string, error) {
	mediaType, params, err := mime.ParseMediaType(declaredType)
	if err != nil {
		mediaType, params = "", nil
	}

	switch mediaType {
	case "audio/pcm", "audio/l16", "audio/x-pcm":
		f := PCMFormat{SampleRate: atoiOr(params["rate"], 16000), Channels: atoiOr(params["channels"], 1)}
		wav, err := EncodeWAV(data, f)
		if err != nil {
			return nil, "", err
		}
		return wav, "audio/wav", nil
	case "", octetStream:
		return data, Sniff(data, filename), nil
	default:
		return data, mediaType, nil
	}
}

// Sniff guesses a container type from magic bytes, then from the file extension.
func Sniff(data []byte, filename string) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "audio/wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return "audio/ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return "audio/flac"
	case bytes.HasPrefix(data, []byte("ID3")), len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "audio/webm"
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return "audio/mp4"
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4", ".aac":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".caf":
		return "audio/x-caf"
	}
	return octetStream
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
