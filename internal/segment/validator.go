package segment

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Format describes the layout of a captured PCM buffer.
type Format struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

func DefaultFormat() Format {
	return Format{SampleRate: 48000, Channels: 2, BytesPerSample: 2}
}

// Params holds the admission thresholds. The deployed defaults were tuned
// for one microphone gain profile; treat them as configuration, not law.
type Params struct {
	MinDuration      time.Duration
	MaxDuration      time.Duration
	MinRMSDBFS       float64
	MinPeakAmplitude int
	FrameDuration    time.Duration
	EnergyThreshold  float64
	// LongUtteranceScale relaxes EnergyThreshold for buffers longer than
	// LongUtteranceAfter, to tolerate micro-pauses in longer speech.
	LongUtteranceScale float64
	LongUtteranceAfter time.Duration
	MinVoiceRatio      float64
}

func DefaultParams() Params {
	return Params{
		MinDuration:        500 * time.Millisecond,
		MaxDuration:        30 * time.Second,
		MinRMSDBFS:         -40,
		MinPeakAmplitude:   1000,
		FrameDuration:      25 * time.Millisecond,
		EnergyThreshold:    1_000_000,
		LongUtteranceScale: 0.8,
		LongUtteranceAfter: 2 * time.Second,
		MinVoiceRatio:      0.1,
	}
}

var (
	ErrTooShort        = errors.New("segment shorter than minimum duration")
	ErrTooLong         = errors.New("segment longer than maximum duration")
	ErrLowSignalLevel  = errors.New("segment below signal level thresholds")
	ErrNoVoiceActivity = errors.New("segment has insufficient voice activity")
)

// RejectError carries the failing check plus the measured values, so the
// capture path can log why a burst was dropped.
type RejectError struct {
	Reason error
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Reason.Error(), e.Detail)
}

func (e *RejectError) Unwrap() error { return e.Reason }

// Validate runs the admission checks over a little-endian 16-bit PCM buffer.
// It returns nil when the buffer is worth transcribing and a *RejectError
// wrapping one of the sentinel reasons otherwise. The first failing check
// short-circuits; nothing outside the buffer and parameters is consulted.
func Validate(pcm []byte, format Format, params Params) error {
	duration := Duration(len(pcm), format)
	if duration < params.MinDuration {
		return &RejectError{Reason: ErrTooShort, Detail: fmt.Sprintf("duration=%s", duration)}
	}
	if duration > params.MaxDuration {
		return &RejectError{Reason: ErrTooLong, Detail: fmt.Sprintf("duration=%s", duration)}
	}
	if err := checkSignalLevel(pcm, params); err != nil {
		return err
	}
	return checkVoiceActivity(pcm, format, params, duration)
}

// Duration converts a byte length to wall-clock time at the given format.
func Duration(byteLength int, format Format) time.Duration {
	bytesPerSecond := format.SampleRate * format.Channels * format.BytesPerSample
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(byteLength) / float64(bytesPerSecond) * float64(time.Second))
}

// checkSignalLevel computes RMS over all 16-bit samples and converts it to
// dBFS against the 16-bit ceiling. Both the average level and the peak must
// clear their thresholds; a noise burst can have high peaks with low average
// energy, and a hum the opposite.
func checkSignalLevel(pcm []byte, params Params) error {
	sampleCount := len(pcm) / 2
	if sampleCount == 0 {
		return &RejectError{Reason: ErrLowSignalLevel, Detail: "empty buffer"}
	}
	var sumSquares float64
	peak := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		sumSquares += float64(s) * float64(s)
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	rms := math.Sqrt(sumSquares / float64(sampleCount))
	dbfs := 20 * math.Log10(rms/32767)
	if dbfs <= params.MinRMSDBFS || peak <= params.MinPeakAmplitude {
		return &RejectError{
			Reason: ErrLowSignalLevel,
			Detail: fmt.Sprintf("rms=%.2fdBFS peak=%d", dbfs, peak),
		}
	}
	return nil
}

// checkVoiceActivity partitions the buffer into fixed frames and counts the
// frames whose sum-of-squares energy clears the threshold. Longer utterances
// contain more micro-pauses, so the threshold is scaled down past
// LongUtteranceAfter.
func checkVoiceActivity(pcm []byte, format Format, params Params, duration time.Duration) error {
	frameBytes := int(params.FrameDuration.Seconds()*float64(format.SampleRate)) * format.Channels * format.BytesPerSample
	if frameBytes <= 0 {
		return nil
	}
	frameCount := len(pcm) / frameBytes
	if frameCount == 0 {
		return &RejectError{Reason: ErrNoVoiceActivity, Detail: "buffer shorter than one frame"}
	}

	threshold := params.EnergyThreshold
	if duration > params.LongUtteranceAfter {
		threshold *= params.LongUtteranceScale
	}

	activeFrames := 0
	for frame := 0; frame < frameCount; frame++ {
		start := frame * frameBytes
		end := start + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		var energy float64
		for i := start; i+1 < end; i += 2 {
			s := float64(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
			energy += s * s
		}
		if energy > threshold {
			activeFrames++
		}
	}

	ratio := float64(activeFrames) / float64(frameCount)
	if ratio < params.MinVoiceRatio {
		return &RejectError{
			Reason: ErrNoVoiceActivity,
			Detail: fmt.Sprintf("active_frames=%d/%d ratio=%.1f%%", activeFrames, frameCount, ratio*100),
		}
	}
	return nil
}
