package audio

import (
	"context"

	"github.com/foxseedlab/kikitorin/internal/timeline"
)

// Transcoder turns a raw s16le 48kHz stereo PCM file into a playable
// artifact. Given path A, produce path B, succeed or fail.
type Transcoder interface {
	EncodePCMToWAV(ctx context.Context, pcmPath, wavPath string) error
}

// Merger splices clips and their leading silence into one continuous track.
type Merger interface {
	Merge(ctx context.Context, placements []timeline.Placement, outPath string) error
}
