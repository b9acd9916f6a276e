package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseWorkers converts the operator input into a worker count. Non-numeric or non-positive input is an error.
func ParseWorkers(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrWorkers, strings.TrimSpace(s))
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrWorkers, n)
	}

	return n, nil
}

// PromptWorkers asks the operator once for the worker count, writing the question to out and reading a line from in.
func PromptWorkers(in io.Reader, out io.Writer) (int, error) {
	fmt.Fprint(out, "Number of workers: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, fmt.Errorf("%w: %v", ErrWorkers, err)
	}

	return ParseWorkers(line)
}
