package importer

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandPreprocessor_SplitsArgs(t *testing.T) {
	p, err := NewCommandPreprocessor(`svgo --pretty --config "my config.js" -i -`)
	require.NoError(t, err)
	assert.Equal(t, []string{"svgo", "--pretty", "--config", "my config.js", "-i", "-"}, p.Args())

	_, err = NewCommandPreprocessor("   ")
	assert.Error(t, err)

	_, err = NewCommandPreprocessor(`svgo "unterminated`)
	assert.Error(t, err)
}

func TestCommandPreprocessor_MissingExecutable(t *testing.T) {
	p, err := NewCommandPreprocessor("definitely-not-an-installed-preprocessor-binary")
	require.NoError(t, err)

	_, err = p.Preprocess(context.Background(), "<svg/>")
	require.ErrorIs(t, err, ErrPreprocessorUnavailable)
}

func TestCommandPreprocessor_PipesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX tr")
	}
	if _, err := exec.LookPath("tr"); err != nil {
		t.Skip("tr not available")
	}

	p, err := NewCommandPreprocessor("tr a-z A-Z")
	require.NoError(t, err)

	out, err := p.Preprocess(context.Background(), "<svg/>")
	require.NoError(t, err)
	assert.Equal(t, "<SVG/>", out)
}

func TestCommandPreprocessor_FailureIsPreprocessError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	p, err := NewCommandPreprocessor(`sh -c "echo broken >&2; exit 3"`)
	require.NoError(t, err)

	_, err = p.Preprocess(context.Background(), "<svg/>")
	require.ErrorIs(t, err, ErrPreprocess)
	assert.True(t, strings.Contains(err.Error(), "broken"))
}

func TestPromptSelector(t *testing.T) {
	var out strings.Builder
	s := NewPromptSelector(strings.NewReader("  a.svg  \n\n"), &out)

	path, err := s.SelectFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.svg", path)
	assert.Contains(t, out.String(), "SVG file to import")

	_, err = s.SelectFile(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = s.SelectFile(context.Background())
	assert.ErrorIs(t, err, ErrCancelled, "EOF cancels")
}
