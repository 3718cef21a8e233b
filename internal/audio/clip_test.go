package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestPrepareWrapsPCM(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	out, mimeType, err := Prepare(pcm, "audio/L16; rate=24000; channels=1", "clip.raw")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if mimeType != "audio/wav" {
		t.Fatalf("mime = %q, want audio/wav", mimeType)
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 24000 {
		t.Fatalf("sample rate = %d, want 24000", rate)
	}
	if !bytes.Equal(out[44:], pcm) {
		t.Fatalf("payload mismatch")
	}
}

func TestPrepareRejectsOddPCM(t *testing.T) {
	if _, _, err := Prepare([]byte{1, 2, 3}, "audio/pcm", ""); !errors.Is(err, ErrOddPCMLength) {
		t.Fatalf("error = %v, want ErrOddPCMLength", err)
	}
}

func TestPrepareKeepsDeclaredType(t *testing.T) {
	data := []byte("whatever")
	out, mimeType, err := Prepare(data, "audio/webm;codecs=opus", "")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if mimeType != "audio/webm" || !bytes.Equal(out, data) {
		t.Fatalf("Prepare() = %q, %q", out, mimeType)
	}
}

func TestSniff(t *testing.T) {
	wav, _ := EncodeWAV([]byte{0, 0}, PCMFormat{})
	cases := []struct {
		name     string
		data     []byte
		filename string
		want     string
	}{
		{"wav magic", wav, "", "audio/wav"},
		{"ogg magic", []byte("OggS\x00\x02"), "", "audio/ogg"},
		{"mp3 id3", []byte("ID3\x04"), "", "audio/mpeg"},
		{"m4a ftyp", []byte("\x00\x00\x00\x20ftypM4A "), "", "audio/mp4"},
		{"webm ebml", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, "", "audio/webm"},
		{"extension", []byte("????"), "recording.M4A", "audio/mp4"},
		{"unknown", []byte("????"), "blob", "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sniff(tc.data, tc.filename); got != tc.want {
				t.Fatalf("Sniff() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrepareSniffsOctetStream(t *testing.T) {
	_, mimeType, err := Prepare([]byte("OggS...."), "application/octet-stream", "")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if mimeType != "audio/ogg" {
		t.Fatalf("mime = %q, want audio/ogg", mimeType)
	}
}
