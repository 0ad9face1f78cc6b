package adapters

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Stdio is the default TerminalIO, reading lines from an io.Reader (stdin
// in production) and writing prompts to an io.Writer (stdout).
type Stdio struct {
	scanner *bufio.Scanner
	out     io.Writer

	lines chan string
	errs  chan error
}

// NewStdio wraps r/w as a TerminalIO. ReadLine runs the scanner on a
// background goroutine so it can be interrupted by ctx cancellation even
// though bufio.Scanner itself has no context awareness.
func NewStdio(r io.Reader, w io.Writer) *Stdio {
	s := &Stdio{
		scanner: bufio.NewScanner(r),
		out:     w,
		lines:   make(chan string),
		errs:    make(chan error, 1),
	}
	go s.pump()
	return s
}

func (s *Stdio) pump() {
	for s.scanner.Scan() {
		s.lines <- s.scanner.Text()
	}
	if err := s.scanner.Err(); err != nil {
		s.errs <- err
	} else {
		s.errs <- io.EOF
	}
	close(s.lines)
}

// ReadLine implements TerminalIO.
func (s *Stdio) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", <-s.errs
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Printf implements TerminalIO.
func (s *Stdio) Printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
