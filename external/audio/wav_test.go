package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxseedlab/kikitorin/internal/timeline"
)

func TestEncodeWAV_RoundTrip(t *testing.T) {
	pcm := make([]byte, 4800*wavBlockAlign)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(i%2000-1000)))
	}

	encoded, err := encodeWAV(pcm)
	if err != nil {
		t.Fatalf("encodeWAV: %v", err)
	}
	if len(encoded) != wavHeaderSize+len(pcm) {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}
	if string(encoded[0:4]) != "RIFF" || string(encoded[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}

	decoded, err := decodeWAV(encoded)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatal("round trip does not preserve sample data")
	}
}

func TestEncodeWAV_RejectsEmpty(t *testing.T) {
	if _, err := encodeWAV(nil); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestDecodeWAV_RejectsForeignLayout(t *testing.T) {
	pcm := make([]byte, wavBlockAlign*10)
	encoded, err := encodeWAV(pcm)
	if err != nil {
		t.Fatalf("encodeWAV: %v", err)
	}
	// Flip the sample rate field to 16kHz.
	binary.LittleEndian.PutUint32(encoded[24:28], 16000)
	if _, err := decodeWAV(encoded); err == nil {
		t.Fatal("expected error for non-48kHz input")
	}
}

// chunk renders one RIFF sub-chunk including the pad byte for odd sizes.
func chunk(id string, body []byte) []byte {
	out := make([]byte, 0, 8+len(body)+1)
	out = append(out, id...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func TestDecodeWAV_SkipsMetadataChunks(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x5a}, 480*wavBlockAlign)

	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1)
	binary.LittleEndian.PutUint16(fmtBody[2:4], wavChannels)
	binary.LittleEndian.PutUint32(fmtBody[4:8], wavSampleRate)
	binary.LittleEndian.PutUint32(fmtBody[8:12], wavSampleRate*wavBlockAlign)
	binary.LittleEndian.PutUint16(fmtBody[12:14], wavBlockAlign)
	binary.LittleEndian.PutUint16(fmtBody[14:16], wavBitsPerSample)

	// ffmpeg's default muxer output: a LIST/INFO chunk with an odd-sized
	// ISFT entry sits between fmt and data.
	listBody := append([]byte("INFOISFT"), binary.LittleEndian.AppendUint32(nil, 13)...)
	listBody = append(listBody, []byte("Lavf61.1.100\x00")...)

	var payload []byte
	payload = append(payload, chunk("fmt ", fmtBody)...)
	payload = append(payload, chunk("LIST", listBody)...)
	payload = append(payload, chunk("data", pcm)...)

	file := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, uint32(4+len(payload)))...)
	file = append(file, []byte("WAVE")...)
	file = append(file, payload...)

	decoded, err := decodeWAV(file)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("decoded %d bytes, want the %d data chunk bytes intact", len(decoded), len(pcm))
	}
}

func TestDecodeWAV_MissingDataChunk(t *testing.T) {
	file := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, 4)...)
	file = append(file, []byte("WAVE")...)
	if _, err := decodeWAV(file); err == nil {
		t.Fatal("expected error when no data chunk is present")
	}
}

func TestWAVMerger_SplicesSilenceBetweenClips(t *testing.T) {
	dir := t.TempDir()
	clipA := writeClip(t, filepath.Join(dir, "a.wav"), 0x11, 480)
	clipB := writeClip(t, filepath.Join(dir, "b.wav"), 0x22, 240)

	outPath := filepath.Join(dir, "merged.wav")
	merger := NewWAVMerger()
	err := merger.Merge(context.Background(), []timeline.Placement{
		{FilePath: clipA, SpeakerID: "u1", LeadingSilence: 0},
		{FilePath: clipB, SpeakerID: "u2", LeadingSilence: 10 * time.Millisecond},
	}, outPath)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	pcm, err := decodeWAV(data)
	if err != nil {
		t.Fatalf("decode merged: %v", err)
	}

	silence := int(0.010*wavSampleRate) * wavBlockAlign
	wantLen := 480*wavBlockAlign + silence + 240*wavBlockAlign
	if len(pcm) != wantLen {
		t.Fatalf("merged length = %d, want %d", len(pcm), wantLen)
	}
	if pcm[0] != 0x11 {
		t.Fatal("expected first clip at start")
	}
	gap := pcm[480*wavBlockAlign : 480*wavBlockAlign+silence]
	for _, b := range gap {
		if b != 0 {
			t.Fatal("expected zeroed samples in the gap")
		}
	}
	if pcm[480*wavBlockAlign+silence] != 0x22 {
		t.Fatal("expected second clip after the gap")
	}
}

func TestWAVMerger_FailsOnMissingClip(t *testing.T) {
	dir := t.TempDir()
	merger := NewWAVMerger()
	err := merger.Merge(context.Background(), []timeline.Placement{
		{FilePath: filepath.Join(dir, "missing.wav")},
	}, filepath.Join(dir, "merged.wav"))
	if err == nil {
		t.Fatal("expected error for missing clip")
	}
}

func writeClip(t *testing.T, path string, fill byte, frames int) string {
	t.Helper()
	pcm := bytes.Repeat([]byte{fill}, frames*wavBlockAlign)
	encoded, err := encodeWAV(pcm)
	if err != nil {
		t.Fatalf("encodeWAV: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}
