// Package camera defines the sensor collaborator: frame acquisition and
// the buffer pool discipline. The raw driver (pixel format, resolution
// negotiation) is a thin, swappable implementation behind the Sensor
// interface.
package camera

import "errors"

// Sensor provides still-image capture. Probe is called once by the init
// sequencer; Acquire hands out exclusively-owned frames.
type Sensor interface {
	// Probe checks the device is present and usable.
	Probe() error
	// Acquire captures one frame. The caller owns the returned Frame and
	// must Release it exactly once after consuming its bytes.
	Acquire() (*Frame, error)
}

// Frame is a transient, exclusively-owned handle to one capture's bytes.
// It must be released back to the sensor subsystem exactly once, on
// every exit path, or the buffer pool drains and all later captures
// fail.
type Frame struct {
	buf      []byte
	release  func()
	released bool
}

// NewFrame wraps sensor-acquired bytes. release returns the underlying
// buffer to the pool; it may be nil for implementations without pooling.
func NewFrame(buf []byte, release func()) *Frame {
	return &Frame{buf: buf, release: release}
}

// Bytes returns the frame payload. Invalid after Release.
func (f *Frame) Bytes() []byte {
	if f.released {
		return nil
	}
	return f.buf
}

// Len returns the payload size in bytes.
func (f *Frame) Len() int {
	if f.released {
		return 0
	}
	return len(f.buf)
}

// Release returns the buffer to the sensor subsystem. The second and
// later calls are no-ops, so a deferred Release composes safely with an
// explicit one.
func (f *Frame) Release() {
	if f.released {
		return
	}
	f.released = true
	f.buf = nil
	if f.release != nil {
		f.release()
	}
}

// Released reports whether the frame has been returned to the pool.
func (f *Frame) Released() bool {
	return f.released
}

// ErrNoDevice is returned by Probe when the configured device is absent.
var ErrNoDevice = errors.New("camera: device not found")
