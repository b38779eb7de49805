package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Preprocessor rewrites SVG markup before import. It must not retain the text.
type Preprocessor interface {
	Preprocess(ctx context.Context, text string) (string, error)
}

// PreprocessFunc adapts a plain function to a Preprocessor
type PreprocessFunc func(ctx context.Context, text string) (string, error)

// Preprocess calls f
func (f PreprocessFunc) Preprocess(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// CommandPreprocessor pipes the markup through an external command. The
// command receives the text on stdin and writes the result to stdout.
type CommandPreprocessor struct {
	args []string
}

// NewCommandPreprocessor splits a shell-style command line into a preprocessor
func NewCommandPreprocessor(command string) (*CommandPreprocessor, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preprocessor command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty preprocessor command")
	}
	return &CommandPreprocessor{args: args}, nil
}

// Args returns the command and its arguments
func (p *CommandPreprocessor) Args() []string {
	return append([]string(nil), p.args...)
}

// Preprocess runs the command. A missing executable maps to
// ErrPreprocessorUnavailable, any other failure to ErrPreprocess.
func (p *CommandPreprocessor) Preprocess(ctx context.Context, text string) (string, error) {
	cmd := exec.CommandContext(ctx, p.args[0], p.args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s: %w", ErrPreprocessorUnavailable, p.args[0], err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %w: %s", ErrPreprocess, p.args[0], err, msg)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrPreprocess, p.args[0], err)
	}
	return stdout.String(), nil
}
