package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the appliance configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Media   MediaConfig       `yaml:"media"`
	Counter CounterConfig     `yaml:"counter"`
	Camera  CameraConfig      `yaml:"camera"`
	Journal JournalConfig     `yaml:"journal"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Media.Validate(); err != nil {
		return err
	}
	if err := c.Counter.Validate(); err != nil {
		return err
	}
	return c.Camera.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// MediaConfig holds the served media root and the image naming scheme.
//
// PhotoDir is the directory under the root where captures land, in URL
// form with a leading slash. Prefix is the image filename prefix; a
// capture with sequence number N is stored as PhotoDir/PrefixN.jpg.
type MediaConfig struct {
	Path     string `yaml:"path"`
	PhotoDir string `yaml:"photo_dir"`
	Prefix   string `yaml:"prefix"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.PhotoDir, validation.Required),
		validation.Field(&c.Prefix, validation.Required),
	); err != nil {
		return err
	}
	if !strings.HasPrefix(c.PhotoDir, "/") {
		return fmt.Errorf("media: photo_dir %q must start with /", c.PhotoDir)
	}
	return nil
}

// CounterConfig holds the sequence counter's backing file and the fixed
// byte offset of its two-byte slot inside that file.
type CounterConfig struct {
	Path   string `yaml:"path"`
	Offset int64  `yaml:"offset"`
}

// Validate validates the counter configuration.
func (c *CounterConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Offset, validation.Min(0)),
	)
}

// CameraConfig holds the capture device configuration.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Validate validates the camera configuration.
func (c *CameraConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Device, validation.Required),
		validation.Field(&c.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Height, validation.Required, validation.Min(1)),
	)
}

// JournalConfig holds the capture journal database path. An empty path
// disables the journal; capture still works without it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled returns true when a journal database is configured.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Media: MediaConfig{
			Path:     "./media",
			PhotoDir: "/photos",
			Prefix:   "Image",
		},
		Counter: CounterConfig{
			Path:   "./nvm.bin",
			Offset: 0,
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  1280,
			Height: 720,
		},
		Journal: JournalConfig{
			Path: "./obscura.db",
		},
	}
}
