package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	audiopkg "github.com/foxseedlab/kikitorin/internal/audio"
)

// FFmpegTranscoder shells out to ffmpeg to wrap raw capture buffers into WAV
// containers. The input is always 48kHz stereo 16-bit little-endian PCM.
type FFmpegTranscoder struct {
	path string
}

func NewFFmpegTranscoder(path string) audiopkg.Transcoder {
	return &FFmpegTranscoder{path: path}
}

func (t *FFmpegTranscoder) EncodePCMToWAV(ctx context.Context, pcmPath, wavPath string) error {
	// ffmpeg -y -f s16le -ar 48000 -ac 2 -i input.pcm output.wav
	cmd := exec.CommandContext(ctx, t.path,
		"-y",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-i", pcmPath,
		wavPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
