package session

import (
	"strings"
	"testing"
	"time"
)

func TestFormatElapsedHMS(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{time.Minute, "00:01:00"},
		{90 * time.Minute, "01:30:00"},
		{25*time.Hour + 3*time.Second, "25:00:03"},
	}
	for _, tt := range tests {
		if got := formatElapsedHMS(tt.d); got != tt.want {
			t.Errorf("formatElapsedHMS(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBuildReportText(t *testing.T) {
	startedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(45 * time.Minute)
	entries := []ReportEntry{
		{At: startedAt.Add(90 * time.Second), SpeakerID: "u1", Speaker: "Alice", Text: "こんにちは"},
		{At: startedAt.Add(2 * time.Minute), SpeakerID: "u2", Speaker: "Bob", Text: "よろしくお願いします"},
	}

	body := string(buildReportText("guild-1", "vc-1", startedAt, endedAt, entries))
	lines := strings.Split(body, "\n")

	if lines[0] != "サーバーID：guild-1" {
		t.Errorf("unexpected header line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "2026-01-15 10:00:00 ~ 2026-01-15 10:45:00") {
		t.Errorf("unexpected period line: %q", lines[2])
	}
	if lines[4] != "00:01:30 Alice: こんにちは" {
		t.Errorf("unexpected entry line: %q", lines[4])
	}
	if lines[5] != "00:02:00 Bob: よろしくお願いします" {
		t.Errorf("unexpected entry line: %q", lines[5])
	}
}

func TestBuildTranscriptWebhookPayload(t *testing.T) {
	startedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	sess := New("session-1", "guild-1", t.TempDir(), startedAt, Options{}, nil)
	entries := []ReportEntry{
		{At: startedAt.Add(time.Minute), SpeakerID: "u1", Speaker: "Alice", Text: "おはようございます"},
		{At: startedAt.Add(2 * time.Minute), SpeakerID: "u2", Speaker: "Bob", Text: "議事録をお願いします"},
	}

	payload := buildTranscriptWebhookPayload(sess, "vc-1", "ja", startedAt.Add(time.Hour), entries, 3)

	if payload.SessionID != "session-1" || payload.GuildID != "guild-1" || payload.ChannelID != "vc-1" {
		t.Fatalf("unexpected identity fields: %+v", payload)
	}
	if payload.SegmentCount != 2 || payload.RecordingCount != 3 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if len(payload.Segments) != 2 || payload.Segments[1].Index != 1 || payload.Segments[1].Speaker != "Bob" {
		t.Fatalf("unexpected segments: %+v", payload.Segments)
	}
	if payload.Transcript != "おはようございます\n議事録をお願いします" {
		t.Fatalf("unexpected transcript: %q", payload.Transcript)
	}
}
