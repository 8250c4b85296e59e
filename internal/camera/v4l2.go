package camera

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// V4L2Source captures single JPEG frames from a V4L2 device by shelling
// out to ffmpeg. Acquisition is blocking; the device's own timeouts are
// the only bound on a stuck grab.
type V4L2Source struct {
	device string
	width  int
	height int
}

// NewV4L2Source creates a source for the given device path, e.g.
// /dev/video0.
func NewV4L2Source(device string, width, height int) *V4L2Source {
	return &V4L2Source{device: device, width: width, height: height}
}

// Probe verifies the device node exists.
func (s *V4L2Source) Probe() error {
	if _, err := os.Stat(s.device); err != nil {
		return fmt.Errorf("%w: %s", ErrNoDevice, s.device)
	}
	return nil
}

// Acquire grabs one MJPEG frame.
func (s *V4L2Source) Acquire() (*Frame, error) {
	cmd := exec.Command(
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.width, s.height),
		"-i", s.device,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("camera: frame grab failed: %w (stderr: %s)", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("camera: frame grab produced no data")
	}
	return NewFrame(stdout.Bytes(), nil), nil
}
