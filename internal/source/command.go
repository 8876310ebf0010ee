package source

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/logging"
)

// Command runs an external landmark producer and reads frames from its
// standard output.
type Command struct {
	cmd    *exec.Cmd
	reader *Reader
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// NewCommand starts commandLine, split on whitespace, and returns a source
// reading its output. Standard error of the producer is logged.
func NewCommand(commandLine string, logger *zap.SugaredLogger) (*Command, error) {
	args := strings.Fields(commandLine)
	if len(args) == 0 {
		return nil, errors.New("empty source command")
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	cmd := exec.Command(args[0], args[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = &logWriter{logger: logger.With("producer", args[0])}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmark producer: %w", err)
	}

	logger.Infow("landmark producer started", "command", args[0], "pid", cmd.Process.Pid)

	return &Command{
		cmd:    cmd,
		reader: NewReader(stdout),
		logger: logger,
	}, nil
}

// Next returns the next observation from the producer.
func (c *Command) Next(ctx context.Context) (landmark.Hand, error) {
	return c.reader.Next(ctx)
}

// Close stops the producer and waits for it to exit.
func (c *Command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.reader.Close()
	if c.cmd.ProcessState == nil {
		c.cmd.Process.Kill()
	}

	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed on purpose
		return nil
	}
	return err
}

// logWriter forwards producer stderr lines to the logger.
type logWriter struct {
	logger *zap.SugaredLogger
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, l := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if l != "" {
			w.logger.Debugw("producer output", "line", l)
		}
	}
	return len(p), nil
}
