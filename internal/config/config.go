package config

import (
	"fmt"

	"github.com/foxseedlab/kikitorin/internal/segment"
)

const (
	TranscriberBackendCloudSpeech   = "cloud_speech"
	TranscriberBackendWhisperServer = "whisper_server"
)

type Config struct {
	Env                        string
	TranscribeLanguage         string
	TempDir                    string
	FFmpegPath                 string
	ReconnectGraceSec          int
	DiscordToken               string
	DiscordGuildID             string
	TranscriberBackend         string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	WhisperServerURL           string
	WhisperServerModel         string
	TranscriptWebhookURL       string

	DefaultSendRealtimeMessage bool
	DefaultExportReport        bool
	DefaultExportAudio         bool

	SegmentMinRMSDBFS      float64
	SegmentMinPeak         int
	SegmentEnergyThreshold float64
	SegmentMinVoiceRatio   float64
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.TranscriberBackend {
	case TranscriberBackendCloudSpeech:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_BACKEND=%s", TranscriberBackendCloudSpeech)
		}
	case TranscriberBackendWhisperServer:
		if c.WhisperServerURL == "" {
			return fmt.Errorf("WHISPER_SERVER_URL is required when TRANSCRIBER_BACKEND=%s", TranscriberBackendWhisperServer)
		}
	default:
		return fmt.Errorf("TRANSCRIBER_BACKEND must be %s or %s, got %q", TranscriberBackendCloudSpeech, TranscriberBackendWhisperServer, c.TranscriberBackend)
	}
	if c.ReconnectGraceSec <= 0 {
		return fmt.Errorf("RECONNECT_GRACE_SEC must be positive, got %d", c.ReconnectGraceSec)
	}
	if c.SegmentMinVoiceRatio <= 0 || c.SegmentMinVoiceRatio > 1 {
		return fmt.Errorf("SEGMENT_MIN_VOICE_RATIO must be in (0, 1], got %g", c.SegmentMinVoiceRatio)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "TEMP_DIR", value: c.TempDir},
		{name: "FFMPEG_PATH", value: c.FFmpegPath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SegmentParams maps the tunable admission thresholds onto the validator
// defaults. Duration bounds and frame size are not deployment-dependent and
// stay fixed.
func (c *Config) SegmentParams() segment.Params {
	params := segment.DefaultParams()
	params.MinRMSDBFS = c.SegmentMinRMSDBFS
	params.MinPeakAmplitude = c.SegmentMinPeak
	params.EnergyThreshold = c.SegmentEnergyThreshold
	params.MinVoiceRatio = c.SegmentMinVoiceRatio
	return params
}
