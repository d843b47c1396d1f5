package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const (
	wavSampleRate    = 48000
	wavChannels      = 2
	wavBitsPerSample = 16
	wavBlockAlign    = wavChannels * wavBitsPerSample / 8
	wavHeaderSize    = 44
)

type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// encodeWAV wraps raw 48kHz stereo 16-bit little-endian PCM bytes in a WAV
// container.
func encodeWAV(pcm []byte) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio data")
	}
	dataSize := uint32(len(pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   wavChannels,
		SampleRate:    wavSampleRate,
		ByteRate:      wavSampleRate * wavBlockAlign,
		BlockAlign:    wavBlockAlign,
		BitsPerSample: wavBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// decodeWAV returns the raw sample bytes of a 48kHz stereo 16-bit PCM WAV
// file. Chunks between fmt and data (ffmpeg's muxer inserts a LIST/INFO
// chunk by default) are skipped; anything in another sample layout is
// rejected rather than resampled.
func decodeWAV(data []byte) ([]byte, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("WAV data too short: need at least 12 bytes, got %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file")
	}

	fmtSeen := false
	off := 12
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := data[off+8:]
		if size > len(body) {
			size = len(body)
		}
		switch chunkID {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("invalid WAV file: fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			numChannels := binary.LittleEndian.Uint16(body[2:4])
			sampleRate := binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != 1 {
				return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", audioFormat)
			}
			if sampleRate != wavSampleRate || numChannels != wavChannels || bitsPerSample != wavBitsPerSample {
				return nil, fmt.Errorf("unsupported WAV layout: %dHz %dch %dbit", sampleRate, numChannels, bitsPerSample)
			}
			fmtSeen = true
		case "data":
			if !fmtSeen {
				return nil, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}
			return body[:size], nil
		}
		// Chunks are word aligned; odd-sized ones carry a pad byte.
		off += 8 + size + size%2
	}
	return nil, fmt.Errorf("invalid WAV file: missing data chunk")
}

func readWAVData(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeWAV(data)
}
