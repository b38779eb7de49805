package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// FileSelector asks the user for a source path. Returning ErrCancelled aborts
// the import without side effects.
type FileSelector interface {
	SelectFile(ctx context.Context) (string, error)
}

// SelectorFunc adapts a plain function to a FileSelector
type SelectorFunc func(ctx context.Context) (string, error)

// SelectFile calls f
func (f SelectorFunc) SelectFile(ctx context.Context) (string, error) {
	return f(ctx)
}

// PromptSelector reads a path from a line-oriented reader, writing a prompt first
type PromptSelector struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// NewPromptSelector creates a selector over in; the prompt goes to out when non-nil
func NewPromptSelector(in io.Reader, out io.Writer) *PromptSelector {
	return &PromptSelector{
		in:     bufio.NewReader(in),
		out:    out,
		prompt: "SVG file to import: ",
	}
}

// SelectFile returns the next non-blank line. An empty line or end of input cancels.
func (p *PromptSelector) SelectFile(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.out != nil {
		fmt.Fprint(p.out, p.prompt)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", ErrCancelled
	}
	return path, nil
}
