package sink

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/resinker/resinker/internal/record"
)

// Stdout writes one event per line to standard output.
type Stdout struct {
	mu     sync.Mutex
	w      *bufio.Writer
	format string
}

// NewStdout builds a stdout sink.
func NewStdout(format string) *Stdout {
	return newStdoutTo(os.Stdout, format)
}

func newStdoutTo(w io.Writer, format string) *Stdout {
	return &Stdout{w: bufio.NewWriter(w), format: format}
}

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Emit(ev *record.Event) error {
	data, err := encode(ev, s.format)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *Stdout) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *Stdout) Close() error { return s.Flush() }
