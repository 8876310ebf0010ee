package source

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// Mock replays scripted observations. It is used for demos and tests.
type Mock struct {
	mu       sync.Mutex
	hands    []landmark.Hand
	pos      int
	loop     bool
	interval time.Duration
	err      error
}

// NewMock creates a Mock returning hands in order, then io.EOF.
func NewMock(hands ...landmark.Hand) *Mock {
	return &Mock{hands: hands}
}

// NewDemo creates a looping Mock that holds each preset pose long enough to
// be confirmed, with empty frames in between.
func NewDemo(interval time.Duration, framesPerPose int) *Mock {
	var hands []landmark.Hand
	for _, pose := range []landmark.Hand{
		landmark.FistLandmarks(),
		landmark.OpenPalmLandmarks(),
		landmark.CShapeLandmarks(),
	} {
		for i := 0; i < framesPerPose; i++ {
			hands = append(hands, pose)
		}
		hands = append(hands, nil)
	}

	m := NewMock(hands...)
	m.SetLoop(true)
	m.SetInterval(interval)
	return m
}

// SetLoop makes the Mock restart from the first observation when exhausted.
func (m *Mock) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = loop
}

// SetInterval delays each observation by d.
func (m *Mock) SetInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// SetError sets the error that will be returned by Next.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next scripted observation.
func (m *Mock) Next(ctx context.Context) (landmark.Hand, error) {
	m.mu.Lock()
	interval := m.interval
	m.mu.Unlock()

	if interval > 0 {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.pos >= len(m.hands) {
		if !m.loop || len(m.hands) == 0 {
			return nil, io.EOF
		}
		m.pos = 0
	}

	h := m.hands[m.pos]
	m.pos++
	return h, nil
}

// Close is a no-op for the mock source.
func (m *Mock) Close() error {
	return nil
}
