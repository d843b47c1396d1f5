package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/kikitorin/internal/webhook"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// buildReportText renders the session report: a small header followed by
// one line per accepted transcript, prefixed with elapsed time and speaker.
func buildReportText(guildID, channelID string, startedAt, endedAt time.Time, entries []ReportEntry) []byte {
	lines := []string{
		fmt.Sprintf("サーバーID：%s", guildID),
		fmt.Sprintf("ボイスチャンネルID：%s", channelID),
		fmt.Sprintf("ボイスチャット期間：%s ~ %s", startedAt.Format(reportTimeLayout), endedAt.Format(reportTimeLayout)),
		"",
	}
	for _, entry := range entries {
		elapsed := entry.At.Sub(startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), entry.Speaker, entry.Text))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildTranscriptWebhookPayload(s *Session, channelID, language string, endedAt time.Time, entries []ReportEntry, recordingCount int) webhook.TranscriptWebhookPayload {
	segments := make([]webhook.TranscriptWebhookSegment, 0, len(entries))
	transcriptLines := make([]string, 0, len(entries))
	for i, entry := range entries {
		segments = append(segments, webhook.TranscriptWebhookSegment{
			Index:     i,
			SpeakerID: entry.SpeakerID,
			Speaker:   entry.Speaker,
			SpokenAt:  entry.At,
			Text:      entry.Text,
		})
		transcriptLines = append(transcriptLines, entry.Text)
	}
	return webhook.TranscriptWebhookPayload{
		SchemaVersion:  webhook.TranscriptWebhookSchemaVersion,
		SessionID:      s.ID,
		GuildID:        s.GuildID,
		ChannelID:      channelID,
		StartedAt:      s.StartedAt,
		EndedAt:        endedAt,
		Language:       language,
		SegmentCount:   len(entries),
		RecordingCount: recordingCount,
		Segments:       segments,
		Transcript:     strings.Join(transcriptLines, "\n"),
	}
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
