// Package importer drives SVG imports through validation, optional
// preprocessing, the native importer and variant-specific post-processing.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/dedupe"
	"github.com/df07/go-enhanced-svg/pkg/material"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// NativeImporter turns an SVG file into a group of scene objects named after
// the file's base name
type NativeImporter interface {
	Import(ctx context.Context, sc *scene.Scene, path string) error
}

// Options configures post-processing
type Options struct {
	ScaleFactor float64 // uniform scale applied to emissive objects, 0 means 1
	TempDir     string  // parent of the per-call temp dir, empty means os.TempDir()
}

// Request is a single import
type Request struct {
	Path       string
	Variant    Variant
	Invocation Invocation
}

// Result describes a successful import
type Result struct {
	Group    *scene.Group
	Variant  Variant
	Source   string // path the user asked for
	Consumed string // path handed to the native importer
	Elapsed  time.Duration
	Trace    []State
	Stats    *dedupe.Stats // nil unless materials were canonicalized

	// SweepErr is set when the orphan sweep after canonicalization failed.
	// The import itself succeeded.
	SweepErr error
}

// Importer runs import requests against one scene
type Importer struct {
	scene         *scene.Scene
	native        NativeImporter
	preprocessor  Preprocessor
	selector      FileSelector
	canonicalizer *dedupe.Canonicalizer
	options       Options
	logger        *zap.Logger
}

// New creates an importer. A nil logger disables logging.
func New(sc *scene.Scene, native NativeImporter, options Options, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.ScaleFactor == 0 {
		options.ScaleFactor = 1
	}
	return &Importer{
		scene:         sc,
		native:        native,
		canonicalizer: dedupe.New(sc.Materials, logger.Named("dedupe")),
		options:       options,
		logger:        logger,
	}
}

// WithPreprocessor sets the preprocessor used by the Processed variants
func (im *Importer) WithPreprocessor(p Preprocessor) *Importer {
	im.preprocessor = p
	return im
}

// WithSelector sets the file selector used for dialog invocations
func (im *Importer) WithSelector(s FileSelector) *Importer {
	im.selector = s
	return im
}

// Scene returns the scene the importer writes to
func (im *Importer) Scene() *scene.Scene {
	return im.scene
}

// run tracks the state machine of one Import call
type run struct {
	req      Request
	trace    []State
	consumed string
	text     *string
}

func (r *run) enter(s State) {
	r.trace = append(r.trace, s)
}

func (r *run) fail(err error) error {
	state := r.trace[len(r.trace)-1]
	r.enter(Failed)
	return &Error{State: state, Path: r.req.Path, Err: err}
}

// Import runs one request. Failures return an *Error naming the state that
// failed; errors.Is matches the package's sentinel errors.
func (im *Importer) Import(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	r := &run{req: req, trace: []State{Idle}}

	if req.Invocation == DialogSelected || req.Path == "" {
		r.enter(Selecting)
		path, err := im.selectFile(ctx)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				im.logger.Warn("Import cancelled", zap.String("variant", req.Variant.String()))
			}
			return nil, r.fail(err)
		}
		r.req.Path = path
	}

	r.enter(Validating)
	if !strings.EqualFold(filepath.Ext(r.req.Path), ".svg") {
		im.logger.Warn("Selected file is not an SVG file", zap.String("path", r.req.Path))
		return nil, r.fail(ErrInvalidExtension)
	}
	r.consumed = r.req.Path

	if req.Variant.Preprocesses() {
		r.enter(Preprocessing)
		cleanup, err := im.preprocess(ctx, r)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			im.logger.Error("SVG preprocessing failed", zap.String("path", r.req.Path), zap.Error(err))
			return nil, r.fail(err)
		}
	}

	r.enter(Importing)
	existing := make(map[*material.Material]bool)
	for _, m := range im.scene.Materials.Materials() {
		existing[m] = true
	}
	group, err := im.importNative(ctx, r.consumed)
	if err != nil {
		im.logger.Error("Failed to import SVG file", zap.String("path", r.consumed), zap.Error(err))
		return nil, r.fail(err)
	}

	r.enter(PostProcessing)
	result := &Result{
		Group:    group,
		Variant:  req.Variant,
		Source:   r.req.Path,
		Consumed: r.consumed,
	}
	if err := im.postProcess(ctx, r, result); err != nil {
		if rmErr := im.scene.RemoveGroup(group); rmErr != nil {
			im.logger.Error("Failed to remove partial group", zap.String("group", group.Name()), zap.Error(rmErr))
		}
		im.discardMaterials(existing)
		im.logger.Error("SVG post-processing failed", zap.String("path", r.req.Path), zap.Error(err))
		return nil, r.fail(err)
	}

	r.enter(Done)
	result.Elapsed = time.Since(start)
	result.Trace = r.trace
	trace := make([]string, 0, len(r.trace))
	for _, st := range r.trace {
		trace = append(trace, st.String())
	}
	im.logger.Debug("Import state trace", zap.Strings("trace", trace))
	im.logger.Info(fmt.Sprintf("SVG Importer (%s): %s rendered in %.2f ms as %s",
		req.Variant, filepath.Base(r.req.Path), float64(result.Elapsed.Microseconds())/1000, group.Name()),
		zap.String("group", group.Name()),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (im *Importer) selectFile(ctx context.Context) (string, error) {
	if im.selector == nil {
		return "", fmt.Errorf("no file selector configured: %w", ErrCancelled)
	}
	path, err := im.selector.SelectFile(ctx)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrCancelled
	}
	return path, nil
}

// preprocess reads the source, runs the preprocessor and writes the result to a
// call-scoped temp dir. The returned cleanup removes that dir.
func (im *Importer) preprocess(ctx context.Context, r *run) (func(), error) {
	if im.preprocessor == nil {
		return nil, ErrPreprocessorUnavailable
	}

	raw, err := os.ReadFile(r.req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrPreprocess, r.req.Path, err)
	}

	text, err := im.preprocessor.Preprocess(ctx, string(raw))
	if err != nil {
		if errors.Is(err, ErrPreprocess) || errors.Is(err, ErrPreprocessorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPreprocess, err)
	}

	dir, err := os.MkdirTemp(im.options.TempDir, "enhanced-svg-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp dir: %w", ErrPreprocess, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			im.logger.Warn("Failed to remove temp dir", zap.String("dir", dir), zap.Error(err))
		}
	}

	base := filepath.Base(r.req.Path)
	tempPath := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".svg")
	if err := os.WriteFile(tempPath, []byte(text), 0o600); err != nil {
		return cleanup, fmt.Errorf("%w: failed to write %s: %w", ErrPreprocess, tempPath, err)
	}

	r.consumed = tempPath
	r.text = &text
	return cleanup, nil
}

// importNative runs the native importer and finds the group it created
func (im *Importer) importNative(ctx context.Context, path string) (*scene.Group, error) {
	before := make(map[*scene.Group]bool)
	for _, g := range im.scene.Groups() {
		before[g] = true
	}

	if err := im.native.Import(ctx, im.scene, path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	name := filepath.Base(path)
	for _, g := range im.scene.Groups() {
		if before[g] {
			continue
		}
		if g.Name() == name || strings.HasPrefix(g.Name(), name+".") {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: no group named %s", ErrImportFailed, name)
}

// discardMaterials removes unused materials registered after the snapshot.
// Orphans that predate the import are left alone.
func (im *Importer) discardMaterials(existing map[*material.Material]bool) {
	for _, m := range im.scene.Materials.Materials() {
		if existing[m] || m.Users() > 0 {
			continue
		}
		if err := im.scene.Materials.Remove(m); err != nil {
			im.logger.Error("Failed to remove material of aborted import", zap.String("material", m.Name), zap.Error(err))
		}
	}
}

func (im *Importer) postProcess(ctx context.Context, r *run, result *Result) error {
	group := result.Group
	base := filepath.Base(r.req.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	im.scene.RenameGroup(group, r.req.Variant.Prefix()+stem)
	group.Variant = r.req.Variant.String()
	if r.text != nil {
		group.ProcessedText = r.text
	}

	if !r.req.Variant.Emissive() {
		return nil
	}

	for _, obj := range group.Objects() {
		im.setupObject(obj)
	}

	stats, err := im.canonicalizer.Canonicalize(ctx, group)
	var sweepErr *dedupe.SweepError
	if errors.As(err, &sweepErr) {
		im.logger.Warn("Orphan sweep failed after deduplication", zap.String("group", group.Name()), zap.Error(err))
		result.SweepErr = err
	} else if err != nil {
		return fmt.Errorf("failed to canonicalize materials: %w", err)
	}
	result.Stats = &stats
	return nil
}

func (im *Importer) setupObject(obj *scene.Object) {
	if strings.HasPrefix(obj.Name(), "Curve") {
		im.scene.RenameObject(obj, "n"+strings.TrimPrefix(obj.Name(), "Curve"))
	}
	obj.Transform.Scale = obj.Transform.Scale.Multiply(im.options.ScaleFactor)
	obj.SetAttribute(material.OpacityAttribute, scene.FloatProperty{
		Value:   1.0,
		Default: 1.0,
		Min:     0.0,
		Max:     1.0,
		Step:    0.1,
	})
}
