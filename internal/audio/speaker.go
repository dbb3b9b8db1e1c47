package audio

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output is the sink a Player streams into. The speaker package satisfies it
// process-wide; tests substitute their own mixer.
type Output interface {
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Clear()                  { speaker.Clear() }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

// Speaker is the process-wide audio device.
var Speaker Output = speakerOutput{}

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerRate        beep.SampleRate
)

// InitSpeaker opens the audio device once per process. Later calls are no-ops
// and a failed call may be retried.
func InitSpeaker(sampleRate beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerInitialized {
		return nil
	}

	bufferSize := sampleRate.N(time.Second / 10)
	if runtime.GOOS == "linux" {
		bufferSize = sampleRate.N(time.Second / 5)
	}

	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	speakerInitialized = true
	speakerRate = sampleRate
	return nil
}

// SpeakerRate is the rate the device was opened with, zero before InitSpeaker.
func SpeakerRate() beep.SampleRate {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	return speakerRate
}
