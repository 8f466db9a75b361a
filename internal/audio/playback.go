// internal/audio/playback.go
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/golang/glog"
)

// Source renders mono samples on demand. dsp.Sidetone satisfies it.
type Source interface {
	Fill(out []float32)
}

// Playback pulls samples from a Source into an output device
type Playback struct {
	config  Config
	backend *Context
	source  Source

	mu      sync.Mutex
	device  *malgo.Device
	running bool
	scratch []float32
}

// NewPlayback creates a mono playback device rendering source
func NewPlayback(backend *Context, cfg Config, source Source) (*Playback, error) {
	if backend == nil {
		return nil, ErrNotInitialized
	}
	if source == nil {
		return nil, ErrSourceRequired
	}
	cfg.Channels = 1
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Playback{config: cfg, backend: backend, source: source}, nil
}

// Start opens the output device. It stops when ctx is cancelled.
func (p *Playback) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = p.config.SampleRate
	deviceConfig.PeriodSizeInFrames = p.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1

	id, err := p.backend.deviceID(malgo.Playback, p.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	onSendFrames := func(output, _ []byte, frames uint32) {
		p.render(output, int(frames))
	}

	device, err := p.backend.initDevice(deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start playback device: %w", err)
	}
	p.device = device
	p.running = true
	glog.Infof("audio playback started: %d Hz", p.config.SampleRate)

	go func() {
		<-ctx.Done()
		_ = p.Stop()
	}()
	return nil
}

// render fills output with frames samples from the source. It runs on the
// audio thread and reuses its scratch buffer.
func (p *Playback) render(output []byte, frames int) {
	frames = min(frames, len(output)/4)
	if cap(p.scratch) < frames {
		p.scratch = make([]float32, frames)
	}
	buf := p.scratch[:frames]
	p.source.Fill(buf)
	float32ToBytes(buf, output)
}

// Stop stops and releases the device
func (p *Playback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotRunning
	}
	_ = p.device.Stop()
	p.device.Uninit()
	p.device = nil
	p.running = false
	glog.V(1).Info("audio playback stopped")
	return nil
}

// IsRunning returns true while the device is rendering
func (p *Playback) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
