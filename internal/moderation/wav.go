package moderation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrNotWAV = errors.New("not a PCM WAV file")

// WAVFormat is the part of a WAV "fmt " chunk the recogniser needs.
type WAVFormat struct {
	AudioFormat   uint16 // 1 = PCM
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// IsWAV checks only the RIFF/WAVE magic in the first 12 bytes.
func IsWAV(head []byte) bool {
	return len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE"
}

// ParseWAV reads chunks from r until it finds "fmt " and returns its
// contents. Only uncompressed PCM is accepted.
func ParseWAV(r io.Reader) (WAVFormat, error) {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return WAVFormat{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if !IsWAV(head[:]) {
		return WAVFormat{}, ErrNotWAV
	}

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return WAVFormat{}, fmt.Errorf("%w: no fmt chunk", ErrNotWAV)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		if id != "fmt " {
			// chunks are padded to an even size
			skip := int64(size) + int64(size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return WAVFormat{}, fmt.Errorf("%w: truncated %q chunk", ErrNotWAV, id)
			}
			continue
		}
		if size < 16 {
			return WAVFormat{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
		}
		var body [16]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return WAVFormat{}, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
		}
		f := WAVFormat{
			AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
			Channels:      binary.LittleEndian.Uint16(body[2:4]),
			SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
			BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
		}
		if f.AudioFormat != 1 {
			return f, fmt.Errorf("%w: format tag %d", ErrNotWAV, f.AudioFormat)
		}
		if f.Channels == 0 || f.SampleRate == 0 {
			return f, fmt.Errorf("%w: zero channels or sample rate", ErrNotWAV)
		}
		return f, nil
	}
}
