package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Compile-time interface check.
var _ Generator = (*ConsoleArbiter)(nil)

// ConsoleArbiter asks a human at a terminal. The prompt goes to Out and
// the reply is read from In up to the first empty line.
type ConsoleArbiter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleArbiter creates an arbiter reading from in and writing to out.
func NewConsoleArbiter(in io.Reader, out io.Writer) *ConsoleArbiter {
	return &ConsoleArbiter{in: bufio.NewReader(in), out: out}
}

// Request prints prompt and collects the reply.
func (c *ConsoleArbiter) Request(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintln(c.out, prompt)
	fmt.Fprint(c.out, "> ")

	var lines []string
	for {
		line, err := c.in.ReadString('\n')
		if trimmed := strings.TrimRight(line, "\r\n"); trimmed != "" {
			lines = append(lines, trimmed)
		} else if len(lines) > 0 {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(lines) > 0 {
				break
			}
			return "", fmt.Errorf("agent: console arbiter: %w", err)
		}
	}
	return strings.Join(lines, "\n"), nil
}
