// internal/audio/capture.go
// Package audio connects the key to sound devices: capture feeds the tone
// key detector, playback renders the sidetone.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/golang/glog"
)

var (
	ErrNotInitialized = errors.New("audio context not initialized")
	ErrAlreadyRunning = errors.New("audio device already running")
	ErrNotRunning     = errors.New("audio device not running")
	ErrInvalidConfig  = errors.New("audio sample rate, channels and buffer size must be positive")
	ErrSourceRequired = errors.New("playback source is required")
)

// Config holds the settings shared by capture and playback devices
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // capture only; playback is always mono
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns settings suited to tone keying
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

func (c Config) validate() error {
	if c.SampleRate == 0 || c.Channels == 0 || c.BufferSize == 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SampleCallback is called from the audio thread with mono samples.
// It must be non-blocking and fast.
type SampleCallback func(samples []float32)

// Capture reads audio from an input device and hands mono samples to a
// callback, typically dsp.ToneKey.Process.
type Capture struct {
	config  Config
	backend *Context

	mu       sync.Mutex
	device   *malgo.Device
	running  bool
	callback atomic.Pointer[SampleCallback]
}

// NewCapture creates a capture device on backend
func NewCapture(backend *Context, cfg Config) (*Capture, error) {
	if backend == nil {
		return nil, ErrNotInitialized
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Capture{config: cfg, backend: backend}, nil
}

// SetCallback sets the sample consumer. It may be swapped while running.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callback.Store(nil)
		return
	}
	c.callback.Store(&cb)
}

// Start opens the device and begins delivering samples. The device stops
// when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels

	id, err := c.backend.deviceID(malgo.Capture, c.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	channels := int(c.config.Channels)
	onRecvFrames := func(_, input []byte, _ uint32) {
		if len(input) == 0 {
			return
		}
		cb := c.callback.Load()
		if cb == nil {
			return
		}
		(*cb)(downmix(bytesToFloat32(input), channels))
	}

	device, err := c.backend.initDevice(deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}
	c.device = device
	c.running = true
	glog.Infof("audio capture started: %d Hz, %d channel(s), %d frames", c.config.SampleRate, c.config.Channels, c.config.BufferSize)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()
	return nil
}

// Stop stops and releases the device
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	_ = c.device.Stop()
	c.device.Uninit()
	c.device = nil
	c.running = false
	glog.V(1).Info("audio capture stopped")
	return nil
}

// IsRunning returns true while the device is delivering samples
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// downmix averages interleaved frames into mono. Mono input is returned as is.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[f*channels+ch]
		}
		mono[f] = sum / float32(channels)
	}
	return mono
}
