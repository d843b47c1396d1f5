package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	audiopkg "github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/config"
	discordpkg "github.com/foxseedlab/kikitorin/internal/discord"
	"github.com/foxseedlab/kikitorin/internal/segment"
	timelinepkg "github.com/foxseedlab/kikitorin/internal/timeline"
	"github.com/foxseedlab/kikitorin/internal/transcript"
	transcriberpkg "github.com/foxseedlab/kikitorin/internal/transcriber"
	webhookpkg "github.com/foxseedlab/kikitorin/internal/webhook"
)

// Manager owns the session registry and drives every session from first
// segment to drain-and-export. Errors inside one session degrade only that
// session; nothing here is fatal to the process.
type Manager struct {
	cfg         *config.Config
	discord     discordpkg.Client
	transcriber transcriberpkg.Transcriber
	transcoder  audiopkg.Transcoder
	merger      audiopkg.Merger
	webhook     webhookpkg.Sender

	registry      *Registry
	segmentFormat segment.Format
	segmentParams segment.Params
	graceWindow   time.Duration

	mu        sync.Mutex
	conns     map[string]discordpkg.VoiceConnection
	botUserID string
}

func NewManager(cfg *config.Config, dc discordpkg.Client, stt transcriberpkg.Transcriber, transcoder audiopkg.Transcoder, merger audiopkg.Merger, wh webhookpkg.Sender) *Manager {
	return &Manager{
		cfg:           cfg,
		discord:       dc,
		transcriber:   stt,
		transcoder:    transcoder,
		merger:        merger,
		webhook:       wh,
		registry:      NewRegistry(),
		segmentFormat: segment.DefaultFormat(),
		segmentParams: cfg.SegmentParams(),
		graceWindow:   time.Duration(cfg.ReconnectGraceSec) * time.Second,
		conns:         make(map[string]discordpkg.VoiceConnection),
	}
}

func (m *Manager) SetBotUserID(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = userID
}

// Registry exposes the session map for lookups.
func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) HandleSlashCommand(event discordpkg.SlashCommandEvent) {
	if event.GuildID == "" {
		m.respond(event, messageEphemeralGuildOnly)
		return
	}
	if m.cfg.DiscordGuildID != "" && event.GuildID != m.cfg.DiscordGuildID {
		m.respond(event, messageEphemeralGuildOnly)
		return
	}
	switch event.CommandName {
	case slashCommandJoin:
		m.handleJoin(event)
	case slashCommandLeave:
		m.handleLeave(event)
	default:
		m.respond(event, messageEphemeralUnknownCommand)
	}
}

func (m *Manager) handleJoin(event discordpkg.SlashCommandEvent) {
	if m.registry.Get(event.GuildID) != nil {
		m.respond(event, messageEphemeralAlreadyRunning)
		return
	}
	channelID, err := m.discord.GetUserVoiceChannelID(event.GuildID, event.UserID)
	if err != nil {
		slog.Error("failed to look up invoker voice state", "error", err, "guild_id", event.GuildID, "user_id", event.UserID)
		m.respond(event, messageEphemeralVoiceLookupFail)
		return
	}
	if channelID == "" {
		m.respond(event, messageEphemeralJoinVCFirst)
		return
	}

	options := Options{
		SendRealtimeMessage: m.cfg.DefaultSendRealtimeMessage,
		ExportReport:        m.cfg.DefaultExportReport,
		ExportAudio:         m.cfg.DefaultExportAudio,
	}
	if event.BoolOption != nil {
		options.SendRealtimeMessage = event.BoolOption(slashOptionRealtime, options.SendRealtimeMessage)
		options.ExportReport = event.BoolOption(slashOptionReport, options.ExportReport)
		options.ExportAudio = event.BoolOption(slashOptionAudio, options.ExportAudio)
	}

	if err := m.StartSession(event.GuildID, channelID, options); err != nil {
		slog.Error("failed to start session", "error", err, "guild_id", event.GuildID, "channel_id", channelID)
		m.respond(event, messageEphemeralJoinFailed)
		return
	}
	m.respond(event, joinedMessage(channelID))
}

func (m *Manager) handleLeave(event discordpkg.SlashCommandEvent) {
	if !m.StopSession(event.GuildID) {
		m.respond(event, messageEphemeralNotRunning)
		return
	}
	m.respond(event, messageEphemeralLeaveInProgress)
}

// StartSession joins the voice channel and activates a session for the
// guild. A second start for the same guild is a no-op returning nil.
func (m *Manager) StartSession(guildID, channelID string, options Options) error {
	conn, err := m.discord.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}

	sessionID := uuid.NewString()
	tempDir := filepath.Join(m.cfg.TempDir, sessionID)

	var sess *Session
	sess, created := m.registry.GetOrCreate(guildID, func() *Session {
		s := New(sessionID, guildID, tempDir, time.Now(), options, nil)
		s.process = func(job SegmentJob) { m.processJob(s, job) }
		return s
	})
	if !created {
		_ = conn.Disconnect()
		slog.Info("session already active for guild", "guild_id", guildID, "session_id", sess.ID)
		return nil
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		_ = conn.Disconnect()
		m.registry.Remove(guildID)
		return fmt.Errorf("create session temp dir: %w", err)
	}

	m.mu.Lock()
	m.conns[guildID] = conn
	m.mu.Unlock()

	slog.Info("session started",
		"session_id", sess.ID,
		"guild_id", guildID,
		"channel_id", channelID,
		"realtime", options.SendRealtimeMessage,
		"report", options.ExportReport,
		"audio", options.ExportAudio)

	go m.runVoiceLoop(sess, conn)
	return nil
}

// StopSession disconnects the guild's voice connection, which drives the
// destroyed path of the voice loop. Unknown guilds are a no-op.
func (m *Manager) StopSession(guildID string) bool {
	if m.registry.Get(guildID) == nil {
		return false
	}
	m.mu.Lock()
	conn := m.conns[guildID]
	m.mu.Unlock()
	if conn == nil {
		return false
	}
	if err := conn.Disconnect(); err != nil {
		slog.Error("voice disconnect failed", "error", err, "guild_id", guildID)
	}
	return true
}

// HandleVoiceStateUpdate stops a session when the last human participant
// leaves its channel.
func (m *Manager) HandleVoiceStateUpdate(event discordpkg.VoiceStateEvent) {
	sess := m.registry.Get(event.GuildID)
	if sess == nil {
		return
	}
	m.mu.Lock()
	conn := m.conns[event.GuildID]
	botUserID := m.botUserID
	m.mu.Unlock()
	if conn == nil || event.BeforeChannelID != conn.ChannelID() {
		return
	}

	participants, err := m.discord.ListVoiceChannelParticipants(event.GuildID, conn.ChannelID())
	if err != nil {
		slog.Error("failed to list voice participants", "error", err, "guild_id", event.GuildID, "channel_id", conn.ChannelID())
		return
	}
	for _, p := range participants {
		if !p.IsBot && p.UserID != botUserID {
			return
		}
	}
	slog.Info("all participants left; stopping session", "session_id", sess.ID, "guild_id", event.GuildID)
	m.StopSession(event.GuildID)
}

// runVoiceLoop consumes connection lifecycle and burst events for one
// session. A Disconnected signal opens a bounded grace window: when a
// Reconnecting or Ready signal arrives inside it, the disconnect was a
// network-layer renegotiation and no draining happens. Only an unanswered
// disconnect, or an explicit Destroyed, takes the session down.
func (m *Manager) runVoiceLoop(sess *Session, conn discordpkg.VoiceConnection) {
	events := conn.Events()
	bursts := conn.Bursts()
	var graceTimer *time.Timer
	var graceCh <-chan time.Time

	stopGrace := func() {
		if graceTimer != nil {
			graceTimer.Stop()
			graceTimer = nil
			graceCh = nil
		}
	}
	defer stopGrace()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				m.finishSession(sess, conn)
				return
			}
			slog.Info("voice connection event", "session_id", sess.ID, "event", ev.Kind.String())
			switch ev.Kind {
			case discordpkg.ConnectionDisconnected:
				if graceCh == nil {
					graceTimer = time.NewTimer(m.graceWindow)
					graceCh = graceTimer.C
				}
			case discordpkg.ConnectionReconnecting, discordpkg.ConnectionReady:
				stopGrace()
			case discordpkg.ConnectionDestroyed:
				m.finishSession(sess, conn)
				return
			}
		case <-graceCh:
			slog.Info("no reconnection within grace window", "session_id", sess.ID, "grace", m.graceWindow)
			_ = conn.Disconnect()
			m.finishSession(sess, conn)
			return
		case burst, ok := <-bursts:
			if !ok {
				bursts = nil
				continue
			}
			m.handleBurst(sess, conn, burst)
		}
	}
}

// handleBurst records burst boundaries and, for completed bursts, runs
// admission and transcoding before enqueueing the transcription job. A
// rejected or failed burst keeps its recording entry but leaves no
// artifact, so reconstruction skips it.
func (m *Manager) handleBurst(sess *Session, conn discordpkg.VoiceConnection, burst discordpkg.BurstEvent) {
	if sess.State() != StateActive {
		return
	}
	if !burst.Ended {
		sess.BeginRecording(Recording{
			ID:        burst.BurstID,
			SpeakerID: burst.SpeakerID,
			StartedAt: burst.StartedAt,
		})
		return
	}

	if err := segment.Validate(burst.PCM, m.segmentFormat, m.segmentParams); err != nil {
		slog.Debug("segment rejected", "session_id", sess.ID, "burst_id", burst.BurstID, "speaker_id", burst.SpeakerID, "reason", err)
		sess.CompleteRecording(burst.BurstID, burst.EndedAt, "")
		return
	}

	pcmPath := filepath.Join(sess.TempDir, burst.BurstID+".pcm")
	wavPath := filepath.Join(sess.TempDir, burst.BurstID+".wav")
	if err := os.WriteFile(pcmPath, burst.PCM, 0o644); err != nil {
		slog.Error("failed to write segment buffer", "error", err, "session_id", sess.ID, "burst_id", burst.BurstID)
		sess.CompleteRecording(burst.BurstID, burst.EndedAt, "")
		return
	}
	err := m.transcoder.EncodePCMToWAV(context.Background(), pcmPath, wavPath)
	if removeErr := os.Remove(pcmPath); removeErr != nil {
		slog.Warn("failed to remove segment buffer", "error", removeErr, "session_id", sess.ID)
	}
	if err != nil {
		slog.Error("failed to transcode segment", "error", err, "session_id", sess.ID, "burst_id", burst.BurstID)
		sess.CompleteRecording(burst.BurstID, burst.EndedAt, "")
		return
	}

	sess.CompleteRecording(burst.BurstID, burst.EndedAt, wavPath)
	sess.Enqueue(SegmentJob{
		ID:              burst.BurstID,
		SpeakerID:       burst.SpeakerID,
		TargetChannelID: conn.ChannelID(),
		AudioPath:       wavPath,
	})
	slog.Debug("segment enqueued", "session_id", sess.ID, "burst_id", burst.BurstID, "speaker_id", burst.SpeakerID, "pending", sess.QueueLen())
}

// processJob is the drain loop's body: transcribe, filter, apply. Failure of
// the external call means no transcript, never a retry and never an aborted
// queue.
func (m *Manager) processJob(sess *Session, job SegmentJob) {
	ctx := context.Background()
	text, err := m.transcriber.Transcribe(ctx, job.AudioPath, m.cfg.TranscribeLanguage)
	if err != nil {
		slog.Warn("transcription failed; dropping segment", "error", err, "session_id", sess.ID, "job_id", job.ID)
		return
	}
	text = strings.TrimSpace(text)
	if !transcript.IsPlausible(text, m.cfg.TranscribeLanguage) {
		slog.Debug("transcript rejected as implausible", "session_id", sess.ID, "job_id", job.ID, "text", text)
		return
	}

	speaker := m.displayName(sess.GuildID, job.SpeakerID)
	options := sess.Options()
	if options.SendRealtimeMessage {
		if err := m.discord.SendChannelMessage(job.TargetChannelID, fmt.Sprintf("**%s**: %s", speaker, text)); err != nil {
			slog.Error("failed to post realtime transcript", "error", err, "session_id", sess.ID, "channel_id", job.TargetChannelID)
		}
	}
	if options.ExportReport {
		sess.AppendReport(ReportEntry{
			At:        time.Now(),
			SpeakerID: job.SpeakerID,
			Speaker:   speaker,
			Text:      text,
		})
	}
}

func (m *Manager) displayName(guildID, userID string) string {
	name, err := m.discord.GetUserDisplayName(guildID, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}

// finishSession drives Draining to Closed: wait for the queue to go idle,
// export the enabled artifacts, then tear down storage and registry entry.
// Export failures cost only the artifact they belong to.
func (m *Manager) finishSession(sess *Session, conn discordpkg.VoiceConnection) {
	if !sess.BeginDraining() {
		return
	}
	channelID := conn.ChannelID()
	slog.Info("session draining", "session_id", sess.ID, "guild_id", sess.GuildID, "pending", sess.QueueLen())
	_ = sess.WaitIdle(context.Background())

	endedAt := time.Now()
	entries := sess.ReportEntries()
	recordings := sess.Recordings()
	options := sess.Options()

	if options.ExportReport && len(entries) > 0 {
		m.exportReport(sess, channelID, endedAt, entries)
	}
	if options.ExportAudio && len(recordings) > 0 {
		m.exportMergedAudio(sess, channelID, recordings)
	}
	m.sendWebhook(sess, channelID, endedAt, entries, len(recordings))

	if err := os.RemoveAll(sess.TempDir); err != nil {
		slog.Warn("failed to remove session temp dir", "error", err, "session_id", sess.ID, "temp_dir", sess.TempDir)
	}

	m.mu.Lock()
	delete(m.conns, sess.GuildID)
	m.mu.Unlock()
	m.registry.Remove(sess.GuildID)
	sess.Close()
	slog.Info("session closed", "session_id", sess.ID, "guild_id", sess.GuildID, "segments", len(entries), "recordings", len(recordings))
}

func (m *Manager) exportReport(sess *Session, channelID string, endedAt time.Time, entries []ReportEntry) {
	body := buildReportText(sess.GuildID, channelID, sess.StartedAt, endedAt, entries)
	reportPath := filepath.Join(sess.TempDir, "report.txt")
	if err := os.WriteFile(reportPath, body, 0o644); err != nil {
		slog.Warn("failed to persist report file", "error", err, "session_id", sess.ID)
	}
	err := m.discord.SendChannelMessageWithFile(discordpkg.FileMessage{
		ChannelID:   channelID,
		Content:     messageReportAttachment,
		Filename:    fmt.Sprintf("transcript-%s.txt", sess.ID),
		ContentType: "text/plain",
		FileBody:    body,
	})
	if err != nil {
		slog.Error("failed to deliver report", "error", err, "session_id", sess.ID, "channel_id", channelID)
	}
}

func (m *Manager) exportMergedAudio(sess *Session, channelID string, recordings []Recording) {
	clips := make([]timelinepkg.Clip, 0, len(recordings))
	for _, rec := range recordings {
		if rec.FilePath != "" {
			if _, err := os.Stat(rec.FilePath); err != nil {
				continue
			}
		}
		clips = append(clips, timelinepkg.Clip{
			FilePath:  rec.FilePath,
			SpeakerID: rec.SpeakerID,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
		})
	}
	placements := timelinepkg.Reconstruct(sess.StartedAt, clips)
	if len(placements) == 0 {
		slog.Info("no reconstructable recordings; skipping merged audio", "session_id", sess.ID)
		return
	}

	outPath := filepath.Join(sess.TempDir, "merged.wav")
	if err := m.merger.Merge(context.Background(), placements, outPath); err != nil {
		slog.Error("failed to merge session audio", "error", err, "session_id", sess.ID)
		return
	}
	body, err := os.ReadFile(outPath)
	if err != nil {
		slog.Error("failed to read merged audio", "error", err, "session_id", sess.ID)
		return
	}
	err = m.discord.SendChannelMessageWithFile(discordpkg.FileMessage{
		ChannelID:   channelID,
		Content:     messageAudioAttachment,
		Filename:    fmt.Sprintf("recording-%s.wav", sess.ID),
		ContentType: "audio/wav",
		FileBody:    body,
	})
	if err != nil {
		slog.Error("failed to deliver merged audio", "error", err, "session_id", sess.ID, "channel_id", channelID)
	}
}

func (m *Manager) sendWebhook(sess *Session, channelID string, endedAt time.Time, entries []ReportEntry, recordingCount int) {
	payload := buildTranscriptWebhookPayload(sess, channelID, m.cfg.TranscribeLanguage, endedAt, entries, recordingCount)
	if err := m.webhook.SendTranscript(context.Background(), payload); err != nil {
		slog.Error("failed to send transcript webhook", "error", err, "session_id", sess.ID)
	}
}

func (m *Manager) respond(event discordpkg.SlashCommandEvent, content string) {
	if event.RespondEphemeral == nil {
		return
	}
	if err := event.RespondEphemeral(content); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName, "guild_id", event.GuildID)
	}
}
