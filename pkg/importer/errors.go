package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExtension is returned when the source does not end in .svg
	ErrInvalidExtension = errors.New("selected file is not an SVG file")
	// ErrPreprocess is returned when reading, preprocessing or persisting the markup fails
	ErrPreprocess = errors.New("preprocessing failed")
	// ErrImportFailed is returned when the native importer produced no group
	ErrImportFailed = errors.New("failed to import SVG file")
	// ErrPreprocessorUnavailable is returned when a preprocessing variant has no preprocessor
	ErrPreprocessorUnavailable = errors.New("preprocessor unavailable")
	// ErrCancelled is returned when file selection was cancelled
	ErrCancelled = errors.New("import cancelled")
)

// Error reports the pipeline state an import failed in
type Error struct {
	State State
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.State, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsWarning reports whether err is an outcome that cancels an import without
// being a failure
func IsWarning(err error) bool {
	return errors.Is(err, ErrInvalidExtension) || errors.Is(err, ErrCancelled)
}
