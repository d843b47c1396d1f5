package session

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle of one voice-connection session. Transitions only
// move forward; a later connection gets a fresh Session.
type State int32

const (
	StateActive State = iota
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options are fixed when the session starts.
type Options struct {
	SendRealtimeMessage bool
	ExportReport        bool
	ExportAudio         bool
}

// SegmentJob is one validated speech burst awaiting transcription. A job is
// consumed exactly once, success or failure; there are no retries.
type SegmentJob struct {
	ID              string
	SpeakerID       string
	TargetChannelID string
	AudioPath       string
}

// Recording tracks a speech burst for post-session timeline reconstruction.
// EndedAt stays nil until the burst's trailing silence closes it; FilePath
// stays empty when the burst was rejected or failed transcoding.
type Recording struct {
	ID        string
	SpeakerID string
	StartedAt time.Time
	EndedAt   *time.Time
	FilePath  string
}

// ReportEntry is one accepted transcript line.
type ReportEntry struct {
	At        time.Time
	SpeakerID string
	Speaker   string
	Text      string
}

// Session holds all state for one guild's voice connection: the FIFO
// transcription queue, the accumulated report and the captured recordings.
// The drain goroutine is the sole owner of the processing flag, so at most
// one job is ever in flight per session.
type Session struct {
	ID        string
	GuildID   string
	StartedAt time.Time
	TempDir   string

	process func(SegmentJob)

	mu         sync.Mutex
	cond       *sync.Cond
	state      State
	queue      []SegmentJob
	processing bool
	options    Options
	report     []ReportEntry
	recordings []Recording
}

// New creates an Active session. process is invoked by the drain loop for
// each dequeued job; it must apply the job's full outcome before returning.
func New(id, guildID, tempDir string, startedAt time.Time, options Options, process func(SegmentJob)) *Session {
	s := &Session{
		ID:        id,
		GuildID:   guildID,
		StartedAt: startedAt,
		TempDir:   tempDir,
		options:   options,
		process:   process,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Enqueue appends a job and, when the session is idle, starts the drain
// loop. Capture never waits on draining. Returns false once the session is
// closed.
func (s *Session) Enqueue(job SegmentJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.queue = append(s.queue, job)
	if !s.processing {
		s.processing = true
		go s.drain()
	}
	return true
}

// drain pops and processes jobs in FIFO order until the queue is observed
// empty, then clears the processing flag and signals waiters. The external
// calls inside process are the only points this goroutine blocks; enqueues
// during that time simply extend the loop.
func (s *Session) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.processing = false
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(job)
	}
}

// WaitIdle blocks until the queue is empty and no job is in flight.
func (s *Session) WaitIdle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for (len(s.queue) > 0 || s.processing) && ctx.Err() == nil {
		s.cond.Wait()
	}
	return ctx.Err()
}

// QueueLen reports pending jobs, excluding any job in flight.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// BeginDraining moves Active to Draining. Any other starting state is left
// alone and reported as false.
func (s *Session) BeginDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false
	}
	s.state = StateDraining
	return true
}

// Close marks the session terminal. Enqueue refuses afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// BeginRecording registers a burst that just started. Insertion order is
// burst-start event order and may race across concurrent speakers; the
// timeline reconstructor re-sorts by start time.
func (s *Session) BeginRecording(rec Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.recordings = append(s.recordings, rec)
}

// CompleteRecording sets the burst end and its artifact path. An empty path
// marks the burst unusable for reconstruction (rejected or failed
// transcode). Unknown IDs are a no-op.
func (s *Session) CompleteRecording(id string, endedAt time.Time, filePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recordings {
		if s.recordings[i].ID == id {
			ended := endedAt
			s.recordings[i].EndedAt = &ended
			s.recordings[i].FilePath = filePath
			return true
		}
	}
	return false
}

// Recordings returns a snapshot in insertion order.
func (s *Session) Recordings() []Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recording, len(s.recordings))
	copy(out, s.recordings)
	return out
}

func (s *Session) AppendReport(entry ReportEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = append(s.report, entry)
}

// ReportEntries returns the accumulated transcript lines in application
// order, which the queue guarantees matches capture order.
func (s *Session) ReportEntries() []ReportEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReportEntry, len(s.report))
	copy(out, s.report)
	return out
}
