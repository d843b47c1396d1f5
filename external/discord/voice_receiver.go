package discord

import (
	"encoding/binary"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/hraban/opus"

	discordpkg "github.com/foxseedlab/kikitorin/internal/discord"
)

const (
	sampleRate      = 48000
	channels        = 2
	frameSizeMs     = 20
	samplesPerFrame = sampleRate * frameSizeMs * channels / 1000

	// A gap this long without packets closes the speaker's burst.
	burstSilenceTimeout = 100 * time.Millisecond
	silenceTickInterval = 20 * time.Millisecond

	readyPollInterval = 250 * time.Millisecond
)

// voiceConnection wraps a discordgo voice connection and turns its raw opus
// packet stream into per-speaker bursts of decoded PCM. One receive goroutine
// owns the burst state; a second goroutine watches the gateway Ready flag and
// reports transport-level drops and recoveries.
type voiceConnection struct {
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string

	events      chan discordpkg.ConnectionEvent
	bursts      chan discordpkg.BurstEvent
	done        chan struct{}
	watcherDone chan struct{}

	// stopping closes once Disconnect is called; from then on nobody is
	// guaranteed to drain bursts, so sends must not block on it.
	stopping chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	ssrcToUser map[uint32]string
}

// burstAssembler accumulates one speaker's in-progress burst.
type burstAssembler struct {
	burstID      string
	userID       string
	startedAt    time.Time
	lastPacketAt time.Time
	decoder      *opus.Decoder
	pcm          []byte
}

func newVoiceConnection(vc *discordgo.VoiceConnection, guildID, channelID string) *voiceConnection {
	v := &voiceConnection{
		vc:         vc,
		guildID:    guildID,
		channelID:  channelID,
		events:      make(chan discordpkg.ConnectionEvent, 16),
		bursts:      make(chan discordpkg.BurstEvent, 64),
		done:        make(chan struct{}),
		watcherDone: make(chan struct{}),
		stopping:    make(chan struct{}),
		ssrcToUser:  make(map[uint32]string),
	}
	vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		if vs == nil || !vs.Speaking {
			return
		}
		v.mu.Lock()
		v.ssrcToUser[uint32(vs.SSRC)] = vs.UserID
		v.mu.Unlock()
	})
	go v.watchReadyState()
	go v.receiveLoop()
	return v
}

func (v *voiceConnection) GuildID() string                           { return v.guildID }
func (v *voiceConnection) ChannelID() string                         { return v.channelID }
func (v *voiceConnection) Events() <-chan discordpkg.ConnectionEvent { return v.events }
func (v *voiceConnection) Bursts() <-chan discordpkg.BurstEvent      { return v.bursts }

func (v *voiceConnection) Disconnect() error {
	v.markStopping()
	return v.vc.Disconnect()
}

func (v *voiceConnection) markStopping() {
	v.stopOnce.Do(func() { close(v.stopping) })
}

// watchReadyState polls the underlying connection's Ready flag and reports
// transitions. Discordgo renegotiates the UDP session internally on region
// changes and transient drops, so a flap here is not yet fatal; the consumer
// decides whether the outage lasted too long.
func (v *voiceConnection) watchReadyState() {
	defer close(v.watcherDone)
	v.emitEvent(discordpkg.ConnectionReady)
	wasReady := true
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			v.vc.RLock()
			ready := v.vc.Ready
			v.vc.RUnlock()
			if ready == wasReady {
				continue
			}
			wasReady = ready
			if ready {
				v.emitEvent(discordpkg.ConnectionReady)
			} else {
				v.emitEvent(discordpkg.ConnectionDisconnected)
			}
		}
	}
}

// receiveLoop drains OpusRecv until discordgo closes it, assembling packets
// into bursts. Burst state lives only on this goroutine.
func (v *voiceConnection) receiveLoop() {
	assemblers := make(map[uint32]*burstAssembler)
	ticker := time.NewTicker(silenceTickInterval)
	defer ticker.Stop()

	for {
		select {
		case p, ok := <-v.vc.OpusRecv:
			if !ok {
				v.shutdown(assemblers)
				return
			}
			if p == nil || len(p.Opus) == 0 {
				continue
			}
			v.ingestPacket(assemblers, p)
		case <-ticker.C:
			now := time.Now()
			for ssrc, a := range assemblers {
				if now.Sub(a.lastPacketAt) >= burstSilenceTimeout {
					delete(assemblers, ssrc)
					v.finishBurst(a, true)
				}
			}
		}
	}
}

func (v *voiceConnection) ingestPacket(assemblers map[uint32]*burstAssembler, p *discordgo.Packet) {
	a, ok := assemblers[p.SSRC]
	if !ok {
		dec, err := opus.NewDecoder(sampleRate, channels)
		if err != nil {
			slog.Error("failed to create opus decoder", "error", err, "ssrc", p.SSRC)
			return
		}
		now := time.Now()
		a = &burstAssembler{
			burstID:      uuid.NewString(),
			userID:       v.resolveUserID(p.SSRC),
			startedAt:    now,
			lastPacketAt: now,
			decoder:      dec,
		}
		assemblers[p.SSRC] = a
		select {
		case v.bursts <- discordpkg.BurstEvent{
			BurstID:   a.burstID,
			SpeakerID: a.userID,
			StartedAt: a.startedAt,
		}:
		case <-v.stopping:
		}
	}

	frame := make([]int16, samplesPerFrame)
	n, err := a.decoder.Decode(p.Opus, frame)
	if err != nil {
		slog.Warn("failed to decode opus packet", "error", err, "ssrc", p.SSRC)
		return
	}
	total := n * channels
	if total > samplesPerFrame {
		total = samplesPerFrame
	}
	buf := make([]byte, total*2)
	for i := 0; i < total; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(frame[i]))
	}
	a.pcm = append(a.pcm, buf...)
	a.lastPacketAt = time.Now()
}

// finishBurst emits the closing event. Once the connection is stopping or
// shutting down nobody is guaranteed to read, so the send gives up rather
// than wedge the receive loop.
func (v *voiceConnection) finishBurst(a *burstAssembler, wait bool) {
	event := discordpkg.BurstEvent{
		BurstID:   a.burstID,
		SpeakerID: a.userID,
		StartedAt: a.startedAt,
		EndedAt:   a.lastPacketAt,
		PCM:       a.pcm,
		Ended:     true,
	}
	if wait {
		select {
		case v.bursts <- event:
		case <-v.stopping:
			slog.Warn("dropping burst after disconnect", "burst_id", a.burstID, "speaker_id", a.userID)
		}
		return
	}
	select {
	case v.bursts <- event:
	default:
		slog.Warn("dropping burst on shutdown", "burst_id", a.burstID, "speaker_id", a.userID)
	}
}

func (v *voiceConnection) shutdown(assemblers map[uint32]*burstAssembler) {
	v.markStopping()
	close(v.done)
	<-v.watcherDone
	for _, a := range assemblers {
		v.finishBurst(a, false)
	}
	v.emitEvent(discordpkg.ConnectionDestroyed)
	close(v.bursts)
	close(v.events)
}

func (v *voiceConnection) emitEvent(kind discordpkg.ConnectionEventKind) {
	select {
	case v.events <- discordpkg.ConnectionEvent{Kind: kind, At: time.Now()}:
	default:
		slog.Warn("dropping voice connection event", "event", kind.String(), "guild_id", v.guildID)
	}
}

func (v *voiceConnection) resolveUserID(ssrc uint32) string {
	v.mu.RLock()
	userID := v.ssrcToUser[ssrc]
	v.mu.RUnlock()
	if userID == "" {
		userID = strconv.FormatUint(uint64(ssrc), 10)
	}
	return userID
}
