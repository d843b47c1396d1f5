package discord

import (
	"context"
	"time"
)

type FileMessage struct {
	ChannelID   string
	Content     string
	Filename    string
	ContentType string
	FileBody    []byte
}

type SlashCommandBoolOption struct {
	Name        string
	Description string
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	BoolOptions []SlashCommandBoolOption
}

type SlashCommandEvent struct {
	GuildID     string
	ChannelID   string
	CommandName string
	UserID      string
	// BoolOption returns the named boolean option, or fallback when the
	// invoker omitted it.
	BoolOption       func(name string, fallback bool) bool
	RespondEphemeral func(content string) error
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

type VoiceParticipant struct {
	UserID string
	IsBot  bool
}

// ConnectionEventKind enumerates the discrete lifecycle signals a voice
// connection emits.
type ConnectionEventKind int

const (
	ConnectionReady ConnectionEventKind = iota
	ConnectionDisconnected
	ConnectionReconnecting
	ConnectionDestroyed
)

func (k ConnectionEventKind) String() string {
	switch k {
	case ConnectionReady:
		return "ready"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionReconnecting:
		return "reconnecting"
	case ConnectionDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

type ConnectionEvent struct {
	Kind ConnectionEventKind
	At   time.Time
}

// BurstEvent reports one speaker's speech burst. A burst produces two
// events: one when the speaker starts (PCM nil, Ended false) and one when
// the trailing silence closes it, carrying the decoded 48kHz stereo 16-bit
// little-endian buffer.
type BurstEvent struct {
	BurstID   string
	SpeakerID string
	StartedAt time.Time
	EndedAt   time.Time
	PCM       []byte
	Ended     bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	UpsertSlashCommands(guildID string, defs []SlashCommandDefinition) error
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	ListVoiceChannelParticipants(guildID, channelID string) ([]VoiceParticipant, error)
	GetUserDisplayName(guildID, userID string) (string, error)
	GetBotUserID() (string, error)
	Run() error
}

// VoiceConnection is one live voice-channel attachment. Events and Bursts
// are closed when the connection is destroyed.
type VoiceConnection interface {
	GuildID() string
	ChannelID() string
	Events() <-chan ConnectionEvent
	Bursts() <-chan BurstEvent
	Disconnect() error
}
