// Package counter persists the image sequence counter in emulated
// non-volatile memory: a single uint16 stored little-endian at a fixed
// byte offset inside a dedicated file.
package counter

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Persistent is the durable image sequence counter. It is read once at
// startup and advanced exactly once per successful capture. The request
// loop is the only caller, so no locking is needed.
//
// Advance and Commit are split on purpose: the capture pipeline names
// the image with the advanced value but commits it to storage only after
// the image bytes have been written, so the on-disk value always
// reflects the last successfully completed capture.
type Persistent struct {
	f      *os.File
	offset int64
	value  uint16
}

// Open maps the counter onto the file at path. A missing file is created
// zero-filled up to offset+2; an existing file is trusted as-is, so
// whatever bytes sit at the offset become the starting value (garbage on
// a first-ever boot is a valid starting value).
func Open(path string, offset int64) (*Persistent, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("counter: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("counter: stat: %w", err)
	}
	if info.Size() < offset+2 {
		if err := f.Truncate(offset + 2); err != nil {
			f.Close()
			return nil, fmt.Errorf("counter: size nvm file: %w", err)
		}
	}

	var buf [2]byte
	if _, err := f.ReadAt(buf[:], offset); err != nil {
		f.Close()
		return nil, fmt.Errorf("counter: read at offset %d: %w", offset, err)
	}
	return &Persistent{
		f:      f,
		offset: offset,
		value:  binary.LittleEndian.Uint16(buf[:]),
	}, nil
}

// Value returns the current in-memory counter value.
func (c *Persistent) Value() uint16 {
	return c.value
}

// Advance increments the in-memory value and returns it, without
// touching storage. Wraps silently at 65536. An advance that is never
// committed leaves a permanently skipped sequence number for this boot.
func (c *Persistent) Advance() uint16 {
	c.value++
	return c.value
}

// Commit synchronously writes the current value to the backing file. A
// commit the OS accepted but never made durable is not detected; the
// storage driver is trusted.
func (c *Persistent) Commit() error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], c.value)
	if _, err := c.f.WriteAt(buf[:], c.offset); err != nil {
		return fmt.Errorf("counter: write: %w", err)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("counter: sync: %w", err)
	}
	return nil
}

// Close releases the backing file handle.
func (c *Persistent) Close() error {
	return c.f.Close()
}
