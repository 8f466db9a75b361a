// internal/audio/context.go
package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/golang/glog"
)

// DeviceKind selects capture or playback devices
type DeviceKind int

const (
	CaptureDevice DeviceKind = iota
	PlaybackDevice
)

func (k DeviceKind) String() string {
	switch k {
	case CaptureDevice:
		return "capture"
	case PlaybackDevice:
		return "playback"
	default:
		return "unknown"
	}
}

func (k DeviceKind) malgoType() malgo.DeviceType {
	if k == PlaybackDevice {
		return malgo.Playback
	}
	return malgo.Capture
}

// DeviceInfo describes one audio endpoint
type DeviceInfo struct {
	Index int
	Kind  DeviceKind
	Name  string
}

// Context owns the audio backend. Capture and playback devices share it.
type Context struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// Open initializes the default audio backend
func Open() (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		glog.V(2).Infof("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Context{ctx: ctx}, nil
}

// Devices lists the endpoints of the given kind
func (c *Context) Devices(kind DeviceKind) ([]DeviceInfo, error) {
	infos, err := c.malgoDevices(kind.malgoType())
	if err != nil {
		return nil, err
	}
	out := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		out[i] = DeviceInfo{Index: i, Kind: kind, Name: info.Name()}
	}
	return out, nil
}

func (c *Context) malgoDevices(t malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := c.ctx.Devices(t)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// deviceID resolves a device index; -1 selects the backend default (nil).
func (c *Context) deviceID(t malgo.DeviceType, index int) (*malgo.DeviceID, error) {
	if index < 0 {
		return nil, nil
	}
	infos, err := c.malgoDevices(t)
	if err != nil {
		return nil, err
	}
	if index >= len(infos) {
		return nil, fmt.Errorf("device index %d out of range (have %d devices)", index, len(infos))
	}
	id := infos[index].ID
	return &id, nil
}

func (c *Context) initDevice(cfg malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (*malgo.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	return malgo.InitDevice(c.ctx.Context, cfg, callbacks)
}

// Close releases the backend. Devices must be stopped first.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return nil
	}
	if err := c.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninit context: %w", err)
	}
	c.ctx.Free()
	c.ctx = nil
	return nil
}
