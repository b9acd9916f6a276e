// Package sink implements the append-only results artifact. A Sink owns the only handle to the file and serializes
// writes so that every line reaches the file whole, never interleaved with another.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrIO is wrapped by every error caused by opening or writing the artifact.
var ErrIO = errors.New("results artifact i/o error")

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("results artifact closed")

// Sink is a single writer over an append-only file.
type Sink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens path for appending, creating it if absent. Existing content is never truncated.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}

	return &Sink{f: f, path: path}, nil
}

// Path returns the artifact path.
func (s *Sink) Path() string {
	return s.path
}

// Append writes line followed by a line terminator in a single write and flushes it to stable storage before
// returning. Line terminators inside line are replaced so a record always occupies exactly one line.
func (s *Sink) Append(line string) error {
	b := []byte(strings.NewReplacer("\r", " ", "\n", " ").Replace(line) + "\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("%w: %w", ErrIO, ErrClosed)
	}

	if _, err := s.f.Write(b); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, s.path, err)
	}

	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, s.path, err)
	}

	return nil
}

// Close flushes and closes the file. Further appends fail with ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}

	err := s.f.Close()
	s.f = nil

	if err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, s.path, err)
	}

	return nil
}

// Lines reads the artifact at path and returns its lines without terminators.
func Lines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	var lines []string

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	if err = sc.Err(); err != nil {
		return lines, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return lines, nil
}
