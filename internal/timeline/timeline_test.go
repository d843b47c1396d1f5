package timeline

import (
	"testing"
	"time"
)

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func atPtr(ms int) *time.Time {
	t := at(ms)
	return &t
}

func TestReconstruct_GapArithmetic(t *testing.T) {
	clips := []Clip{
		{FilePath: "r1.wav", StartedAt: at(0), EndedAt: atPtr(1000)},
		{FilePath: "r2.wav", StartedAt: at(1500), EndedAt: atPtr(2500)},
	}
	got := Reconstruct(base, clips)
	if len(got) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(got))
	}
	if got[0].FilePath != "r1.wav" || got[0].LeadingSilence != 0 {
		t.Fatalf("unexpected first placement: %+v", got[0])
	}
	if got[1].FilePath != "r2.wav" || got[1].LeadingSilence != 500*time.Millisecond {
		t.Fatalf("unexpected second placement: %+v", got[1])
	}
}

func TestReconstruct_OverlapCollapsesToZero(t *testing.T) {
	clips := []Clip{
		{FilePath: "r1.wav", StartedAt: at(0), EndedAt: atPtr(2000)},
		{FilePath: "r2.wav", StartedAt: at(1000), EndedAt: atPtr(3000)},
	}
	got := Reconstruct(base, clips)
	if len(got) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(got))
	}
	if got[1].LeadingSilence != 0 {
		t.Fatalf("expected zero lead for overlapping clip, got %s", got[1].LeadingSilence)
	}
}

func TestReconstruct_SortsByStartNotInsertionOrder(t *testing.T) {
	// Burst-end delivery order can race with concurrent speakers; a later
	// speaker whose short burst finished first appears earlier in the list.
	clips := []Clip{
		{FilePath: "late.wav", StartedAt: at(4000), EndedAt: atPtr(4500)},
		{FilePath: "early.wav", StartedAt: at(1000), EndedAt: atPtr(3000)},
	}
	got := Reconstruct(base, clips)
	if got[0].FilePath != "early.wav" || got[1].FilePath != "late.wav" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].LeadingSilence != time.Second {
		t.Fatalf("expected 1s lead from session start, got %s", got[0].LeadingSilence)
	}
	if got[1].LeadingSilence != time.Second {
		t.Fatalf("expected 1s gap after previous burst, got %s", got[1].LeadingSilence)
	}
}

func TestReconstruct_SkipsInFlightAndPathlessClips(t *testing.T) {
	clips := []Clip{
		{FilePath: "done.wav", StartedAt: at(0), EndedAt: atPtr(1000)},
		{FilePath: "inflight.wav", StartedAt: at(2000)},
		{FilePath: "", StartedAt: at(3000), EndedAt: atPtr(4000)},
	}
	got := Reconstruct(base, clips)
	if len(got) != 1 || got[0].FilePath != "done.wav" {
		t.Fatalf("expected only the completed clip, got %+v", got)
	}
}

func TestReconstruct_StartBeforeSessionStartClampsToZero(t *testing.T) {
	clips := []Clip{
		{FilePath: "r1.wav", StartedAt: base.Add(-time.Second), EndedAt: atPtr(1000)},
	}
	got := Reconstruct(base, clips)
	if got[0].LeadingSilence != 0 {
		t.Fatalf("expected clamped lead, got %s", got[0].LeadingSilence)
	}
}

func TestReconstruct_Empty(t *testing.T) {
	if got := Reconstruct(base, nil); len(got) != 0 {
		t.Fatalf("expected no placements, got %+v", got)
	}
}
