package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/projecteru2/core/log"
	"golang.org/x/text/encoding/charmap"
)

// Charset selects how raw child output bytes are decoded into lines.
type Charset string

const (
	UTF8   Charset = "utf-8"
	Latin1 Charset = "latin-1"
)

// LineFunc receives one decoded output line, terminator stripped.
type LineFunc func(line string)

// Options control one Execute call.
type Options struct {
	// Output receives each line of the child's combined stdout/stderr.
	// Nil discards the output.
	Output LineFunc
	// Charset used to decode output; defaults to UTF8.
	Charset Charset
	// FailOnExitCode turns a non-zero exit status into an error.
	FailOnExitCode bool
}

// Executor runs child processes and streams their combined output
// line-by-line. External tools repaint progress in place with bare CRs, so
// the reader treats both \n and \r as terminators.
type Executor struct{}

func New() *Executor {
	return &Executor{}
}

// Execute runs args as a child process and returns its exit code. Stdout and
// stderr are merged and streamed through the line reader to opts.Output.
func (e *Executor) Execute(ctx context.Context, args []string, opts Options) (int, error) {
	logger := log.WithFunc("executor.Execute")
	logger.Debugf(ctx, "exec: %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // argv assembled by the engine
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("pipe stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", args[0], err)
	}

	output := opts.Output
	if output == nil {
		output = func(string) {}
	}
	readErr := ReadLines(stdout, opts.Charset, func(line string) {
		output(strings.TrimRight(line, "\r\n"))
	})

	code := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return -1, fmt.Errorf("wait %s: %w", args[0], err)
		}
		code = exitErr.ExitCode()
	}
	if readErr != nil {
		return code, fmt.Errorf("read output of %s: %w", args[0], readErr)
	}
	logger.Debugf(ctx, "subprocess terminated (%d)", code)

	if opts.FailOnExitCode && code != 0 {
		return code, fmt.Errorf("%s: process return code is %d", args[0], code)
	}
	return code, nil
}

// ReadLines consumes r byte-wise and yields decoded lines. A line ends on \n
// or \r (the terminator is kept in the yielded line); end-of-stream flushes
// the buffer. ASCII 8 (backspace, emitted by one of the burners instead of
// CR) is normalized to \r before line-end detection.
func ReadLines(r io.Reader, charset Charset, fn func(line string)) error {
	reader := bufio.NewReader(r)
	var buf []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			if len(buf) > 0 {
				fn(decode(buf, charset))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if b == 8 {
			b = '\r'
		}
		buf = append(buf, b)
		if b == '\r' || b == '\n' {
			fn(decode(buf, charset))
			buf = buf[:0]
		}
	}
}

// decode turns raw bytes into a string. Invalid sequences are reported as a
// warning line carrying the hex bytes rather than aborting the stream.
func decode(buf []byte, charset Charset) string {
	switch charset {
	case Latin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(buf)
		if err != nil {
			return fmt.Sprintf("Warning: undecodable %s sequence - %x", charset, buf)
		}
		return string(out)
	default:
		if !utf8.Valid(buf) {
			return fmt.Sprintf("Warning: invalid utf-8 sequence - %x", buf)
		}
		return string(buf)
	}
}
