package internal

import (
	"github.com/obscuracam/obscurad/internal/camera"
	"github.com/obscuracam/obscurad/internal/indicator"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	sensor    camera.Sensor
	indicator indicator.Indicator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithSensor overrides the default V4L2 sensor, e.g. for bench rigs
// without a camera attached.
func WithSensor(s camera.Sensor) Option {
	return func(a *application) {
		a.sensor = s
	}
}

// WithIndicator overrides the default logging indicator.
func WithIndicator(ind indicator.Indicator) Option {
	return func(a *application) {
		a.indicator = ind
	}
}
