// Package timeline reassembles non-contiguous speech clips into the splice
// order for one continuous session track.
package timeline

import (
	"sort"
	"time"
)

// Clip is a completed speech burst artifact. EndedAt is nil while the burst
// is still being captured; such clips cannot be reconstructed.
type Clip struct {
	FilePath  string
	SpeakerID string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Placement pairs a clip with the silence to splice in front of it.
type Placement struct {
	FilePath       string
	SpeakerID      string
	LeadingSilence time.Duration
}

// Reconstruct orders the completed clips chronologically and computes the
// silence gap preceding each one. Insertion order is not reconstruction
// order: concurrent speakers append in burst-end order, so ordering by
// StartedAt happens here. Overlapping speech collapses the gap to zero, a
// negative lead never occurs.
func Reconstruct(sessionStart time.Time, clips []Clip) []Placement {
	completed := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if c.EndedAt == nil || c.FilePath == "" {
			continue
		}
		completed = append(completed, c)
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].StartedAt.Before(completed[j].StartedAt)
	})

	placements := make([]Placement, 0, len(completed))
	prevEnd := sessionStart
	for _, c := range completed {
		lead := c.StartedAt.Sub(prevEnd)
		if lead < 0 {
			lead = 0
		}
		placements = append(placements, Placement{
			FilePath:       c.FilePath,
			SpeakerID:      c.SpeakerID,
			LeadingSilence: lead,
		})
		prevEnd = *c.EndedAt
	}
	return placements
}
