package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/kikitorin/internal/config"
)

type envConfig struct {
	Env                        string  `env:"ENV" envDefault:"production"`
	TranscribeLanguage         string  `env:"TRANSCRIBE_LANGUAGE" envDefault:"ja"`
	TempDir                    string  `env:"TEMP_DIR" envDefault:"./temp"`
	FFmpegPath                 string  `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	ReconnectGraceSec          int     `env:"RECONNECT_GRACE_SEC" envDefault:"5"`
	DiscordToken               string  `env:"DISCORD_TOKEN,required"`
	DiscordGuildID             string  `env:"DISCORD_GUILD_ID"`
	TranscriberBackend         string  `env:"TRANSCRIBER_BACKEND" envDefault:"cloud_speech"`
	GoogleCloudProjectID       string  `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string  `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string  `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string  `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	WhisperServerURL           string  `env:"WHISPER_SERVER_URL"`
	WhisperServerModel         string  `env:"WHISPER_SERVER_MODEL" envDefault:"large-v3-turbo"`
	TranscriptWebhookURL       string  `env:"TRANSCRIPT_WEBHOOK_URL"`
	DefaultSendRealtimeMessage bool    `env:"DEFAULT_SEND_REALTIME_MESSAGE" envDefault:"true"`
	DefaultExportReport        bool    `env:"DEFAULT_EXPORT_REPORT" envDefault:"true"`
	DefaultExportAudio         bool    `env:"DEFAULT_EXPORT_AUDIO" envDefault:"true"`
	SegmentMinRMSDBFS          float64 `env:"SEGMENT_MIN_RMS_DBFS" envDefault:"-40"`
	SegmentMinPeak             int     `env:"SEGMENT_MIN_PEAK" envDefault:"1000"`
	SegmentEnergyThreshold     float64 `env:"SEGMENT_ENERGY_THRESHOLD" envDefault:"1000000"`
	SegmentMinVoiceRatio       float64 `env:"SEGMENT_MIN_VOICE_RATIO" envDefault:"0.1"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		TranscribeLanguage:         raw.TranscribeLanguage,
		TempDir:                    raw.TempDir,
		FFmpegPath:                 raw.FFmpegPath,
		ReconnectGraceSec:          raw.ReconnectGraceSec,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		TranscriberBackend:         raw.TranscriberBackend,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		WhisperServerURL:           raw.WhisperServerURL,
		WhisperServerModel:         raw.WhisperServerModel,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		DefaultSendRealtimeMessage: raw.DefaultSendRealtimeMessage,
		DefaultExportReport:        raw.DefaultExportReport,
		DefaultExportAudio:         raw.DefaultExportAudio,
		SegmentMinRMSDBFS:          raw.SegmentMinRMSDBFS,
		SegmentMinPeak:             raw.SegmentMinPeak,
		SegmentEnergyThreshold:     raw.SegmentEnergyThreshold,
		SegmentMinVoiceRatio:       raw.SegmentMinVoiceRatio,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
