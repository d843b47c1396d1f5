package webhook

import (
	"context"
	"time"
)

const TranscriptWebhookSchemaVersion = 1

type TranscriptWebhookSegment struct {
	Index     int       `json:"index"`
	SpeakerID string    `json:"speaker_id"`
	Speaker   string    `json:"speaker"`
	SpokenAt  time.Time `json:"spoken_at"`
	Text      string    `json:"text"`
}

type TranscriptWebhookPayload struct {
	SchemaVersion  int                        `json:"schema_version"`
	SessionID      string                     `json:"session_id"`
	GuildID        string                     `json:"guild_id"`
	ChannelID      string                     `json:"channel_id"`
	StartedAt      time.Time                  `json:"started_at"`
	EndedAt        time.Time                  `json:"ended_at"`
	Language       string                     `json:"language"`
	SegmentCount   int                        `json:"segment_count"`
	RecordingCount int                        `json:"recording_count"`
	Segments       []TranscriptWebhookSegment `json:"segments"`
	Transcript     string                     `json:"transcript"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
