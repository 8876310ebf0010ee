package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// maxLineSize bounds a single JSON frame.
const maxLineSize = 1 << 20

// Frame is the JSON wire format of one detector result.
type Frame struct {
	Hands []HandFrame `json:"hands"`
}

// HandFrame is one detected hand.
type HandFrame struct {
	Points     []landmark.Point `json:"points"`
	Handedness string           `json:"handedness,omitempty"`
	Score      float64          `json:"score,omitempty"`
}

// Hand returns the first hand of the frame, or nil.
func (f Frame) Hand() landmark.Hand {
	if len(f.Hands) == 0 || len(f.Hands[0].Points) == 0 {
		return nil
	}
	return landmark.Hand(f.Hands[0].Points)
}

// DecodeFrame parses one JSON frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return f, nil
}

type line struct {
	data []byte
	err  error
}

// Reader reads JSON frames, one per line. Blank lines are skipped.
type Reader struct {
	r     io.Reader
	once  sync.Once
	lines chan line
	done  chan struct{}
	close sync.Once
}

// NewReader creates a Reader over r. Reading starts on the first Next call.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:     r,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
}

// Next returns the next observation. A malformed line yields an error
// wrapping ErrMalformedFrame; later lines are still readable.
func (r *Reader) Next(ctx context.Context) (landmark.Hand, error) {
	r.once.Do(func() { go r.scan() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, io.EOF
	case l, ok := <-r.lines:
		if !ok {
			return nil, io.EOF
		}
		if l.err != nil {
			return nil, l.err
		}
		f, err := DecodeFrame(l.data)
		if err != nil {
			return nil, err
		}
		return f.Hand(), nil
	}
}

// Close stops delivering frames. It does not close the underlying reader.
func (r *Reader) Close() error {
	r.close.Do(func() { close(r.done) })
	return nil
}

func (r *Reader) scan() {
	defer close(r.lines)

	scanner := bufio.NewScanner(r.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if !r.send(line{data: append([]byte(nil), data...)}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		r.send(line{err: fmt.Errorf("read frames: %w", err)})
	}
}

func (r *Reader) send(l line) bool {
	select {
	case r.lines <- l:
		return true
	case <-r.done:
		return false
	}
}
