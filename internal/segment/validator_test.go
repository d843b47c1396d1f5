package segment

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

// sinePCM builds a stereo 16-bit little-endian buffer with a 440Hz tone at
// the given amplitude. An amplitude of 0 produces digital silence.
func sinePCM(d time.Duration, amplitude float64) []byte {
	format := DefaultFormat()
	frames := int(d.Seconds() * float64(format.SampleRate))
	buf := make([]byte, frames*format.Channels*format.BytesPerSample)
	for i := 0; i < frames; i++ {
		sample := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(format.SampleRate)))
		for ch := 0; ch < format.Channels; ch++ {
			offset := (i*format.Channels + ch) * 2
			binary.LittleEndian.PutUint16(buf[offset:], uint16(sample))
		}
	}
	return buf
}

func TestValidate_RejectsOutOfBoundsDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     error
	}{
		{name: "just under half a second", duration: 400 * time.Millisecond, want: ErrTooShort},
		{name: "empty buffer", duration: 0, want: ErrTooShort},
		{name: "over thirty seconds", duration: 31 * time.Second, want: ErrTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(sinePCM(tt.duration, 8000), DefaultFormat(), DefaultParams())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_RejectsSilence(t *testing.T) {
	err := Validate(sinePCM(2*time.Second, 0), DefaultFormat(), DefaultParams())
	if !errors.Is(err, ErrLowSignalLevel) {
		t.Fatalf("expected ErrLowSignalLevel, got %v", err)
	}
}

func TestValidate_RejectsLowPeakDespiteAverageLevel(t *testing.T) {
	// Loud enough on average to clear -40dBFS but peaking under 1000.
	err := Validate(sinePCM(1*time.Second, 900), DefaultFormat(), DefaultParams())
	if !errors.Is(err, ErrLowSignalLevel) {
		t.Fatalf("expected ErrLowSignalLevel, got %v", err)
	}
}

func TestValidate_AcceptsSpeechLikeBuffer(t *testing.T) {
	if err := Validate(sinePCM(1*time.Second, 8000), DefaultFormat(), DefaultParams()); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestValidate_AcceptsLongUtteranceWithRelaxedThreshold(t *testing.T) {
	if err := Validate(sinePCM(5*time.Second, 8000), DefaultFormat(), DefaultParams()); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestValidate_RejectsInsufficientVoiceActivity(t *testing.T) {
	format := DefaultFormat()
	params := DefaultParams()
	// One second of tone, then nineteen seconds of silence: 5% active
	// frames, below the 10% floor, while the tone keeps the RMS and peak
	// checks satisfied.
	buf := sinePCM(20*time.Second, 16000)
	toneBytes := 1 * format.SampleRate * format.Channels * format.BytesPerSample
	for i := toneBytes; i < len(buf); i++ {
		buf[i] = 0
	}
	err := Validate(buf, format, params)
	if !errors.Is(err, ErrNoVoiceActivity) {
		t.Fatalf("expected ErrNoVoiceActivity, got %v", err)
	}
}

func TestValidate_HonorsCustomThresholds(t *testing.T) {
	params := DefaultParams()
	params.MinVoiceRatio = 0.01
	buf := sinePCM(20*time.Second, 16000)
	format := DefaultFormat()
	toneBytes := 1 * format.SampleRate * format.Channels * format.BytesPerSample
	for i := toneBytes; i < len(buf); i++ {
		buf[i] = 0
	}
	if err := Validate(buf, format, params); err != nil {
		t.Fatalf("expected accept with relaxed ratio, got %v", err)
	}
}

func TestDuration(t *testing.T) {
	format := DefaultFormat()
	oneSecond := format.SampleRate * format.Channels * format.BytesPerSample
	if got := Duration(oneSecond, format); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
	if got := Duration(oneSecond/2, format); got != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", got)
	}
}
