// Package source supplies hand observations to a pipeline session.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// Kinds of source selectable through configuration.
const (
	KindServer  = "server"
	KindStdin   = "stdin"
	KindCommand = "command"
	KindMock    = "mock"
)

// ErrMalformedFrame is returned for a frame that cannot be decoded. The
// stream remains usable.
var ErrMalformedFrame = errors.New("malformed frame")

// Source produces hand observations. Next blocks until an observation is
// available; a nil Hand means no hand was in view. Next returns io.EOF once
// the source is exhausted.
type Source interface {
	Next(ctx context.Context) (landmark.Hand, error)
	Close() error
}

// Config selects and paces the observation source.
type Config struct {
	Kind          string        `envconfig:"AIRTYPE_SOURCE" default:"server"`
	Command       string        `envconfig:"AIRTYPE_SOURCE_COMMAND"`
	FrameInterval time.Duration `envconfig:"AIRTYPE_FRAME_INTERVAL" default:"450ms"`
}

// Validate checks that the selected kind is usable.
func (c Config) Validate() error {
	switch c.Kind {
	case KindServer, KindStdin, KindMock:
		return nil
	case KindCommand:
		if c.Command == "" {
			return errors.New("AIRTYPE_SOURCE_COMMAND is required for the command source")
		}
		return nil
	}
	return fmt.Errorf("unknown source %q", c.Kind)
}

// Open creates the source selected by cfg. stdin backs the stdin source. The
// server kind has no pull source; frames arrive over WebSocket instead.
func Open(cfg Config, stdin io.Reader, logger *zap.SugaredLogger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindStdin:
		return NewReader(stdin), nil
	case KindCommand:
		return NewCommand(cfg.Command, logger)
	case KindMock:
		return NewDemo(cfg.FrameInterval, demoFramesPerPose), nil
	}
	return nil, fmt.Errorf("source %q does not produce frames", cfg.Kind)
}

// demoFramesPerPose holds each demo pose past the default confirmation count.
const demoFramesPerPose = 14
