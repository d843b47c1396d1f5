package audio

import (
	"context"
	"fmt"
	"os"
	"time"

	audiopkg "github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/timeline"
)

// WAVMerger splices per-speaker clips into one continuous session WAV,
// inserting the silence each placement calls for before its clip.
type WAVMerger struct{}

func NewWAVMerger() audiopkg.Merger {
	return &WAVMerger{}
}

func (m *WAVMerger) Merge(ctx context.Context, placements []timeline.Placement, outPath string) error {
	var pcm []byte
	for _, p := range placements {
		if err := ctx.Err(); err != nil {
			return err
		}
		clip, err := readWAVData(p.FilePath)
		if err != nil {
			return fmt.Errorf("read clip %s: %w", p.FilePath, err)
		}
		pcm = append(pcm, silenceBytes(p.LeadingSilence)...)
		pcm = append(pcm, clip...)
	}
	out, err := encodeWAV(pcm)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0o644)
}

// silenceBytes renders a gap as zeroed samples, aligned to whole frames.
func silenceBytes(d time.Duration) []byte {
	if d <= 0 {
		return nil
	}
	frames := int(d.Seconds() * float64(wavSampleRate))
	return make([]byte, frames*wavBlockAlign)
}
