// Package dedupe collapses the per-object materials of an imported group into
// one canonical emissive material per distinct color.
package dedupe

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/material"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// MaterialStore is the part of the scene's material registry the canonicalizer
// needs. *scene.Registry implements it.
type MaterialStore interface {
	Lookup(name string) (*material.Material, bool)
	Add(m *material.Material) error
	Remove(m *material.Material) error
	PurgeOrphans() ([]string, error)
}

// SynthesizeFunc builds a canonical material for a color
type SynthesizeFunc func(color core.Color, name string) *material.Material

// SweepError reports a failed orphan sweep. Deduplication performed before the
// sweep is kept.
type SweepError struct {
	Err error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("orphan sweep failed: %v", e.Err)
}

func (e *SweepError) Unwrap() error {
	return e.Err
}

// Stats summarizes one canonicalization pass
type Stats struct {
	Objects    int // objects that carried a material
	Canonical  int // distinct color keys
	Reused     int // canonical materials found in the registry by name
	Released   int // original materials removed right after reassignment
	Swept      int // materials removed by the final orphan sweep
	Unassigned int // objects skipped because they had no material
}

// Canonicalizer deduplicates materials by exact diffuse RGB
type Canonicalizer struct {
	store      MaterialStore
	synthesize SynthesizeFunc
	logger     *zap.Logger
}

// New creates a canonicalizer over the given store. A nil logger disables logging.
func New(store MaterialStore, logger *zap.Logger) *Canonicalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Canonicalizer{
		store:      store,
		synthesize: material.Synthesize,
		logger:     logger,
	}
}

// WithSynthesizer replaces the material builder used on cache misses
func (c *Canonicalizer) WithSynthesizer(fn SynthesizeFunc) *Canonicalizer {
	c.synthesize = fn
	return c
}

type cacheEntry struct {
	key core.ColorKey
	mat *material.Material
}

// Canonicalize rewrites every material slot of the group so that objects whose
// first material has the same color share one canonical material, then sweeps
// the store for orphaned materials. Objects without materials are untouched.
func (c *Canonicalizer) Canonicalize(ctx context.Context, group *scene.Group) (Stats, error) {
	var stats Stats
	index := make(map[core.ColorKey]int)
	var cache []cacheEntry

	for _, obj := range group.Objects() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !obj.HasMaterial() {
			stats.Unassigned++
			continue
		}
		stats.Objects++

		original := obj.Materials()[0]
		key := original.Key()

		if i, ok := index[key]; ok {
			obj.SetMaterials(cache[i].mat)
			c.release(original, &stats)
			continue
		}

		name := fmt.Sprintf("Mat%d_#%s", len(cache), original.DiffuseColor.Hex())
		canonical, err := c.resolve(name, original.DiffuseColor, &stats)
		if err != nil {
			return stats, err
		}

		index[key] = len(cache)
		cache = append(cache, cacheEntry{key: key, mat: canonical})
		obj.SetMaterials(canonical)
		c.release(original, &stats)
	}
	stats.Canonical = len(cache)

	removed, err := c.store.PurgeOrphans()
	stats.Swept = len(removed)
	if err != nil {
		c.logger.Warn("Orphan material sweep failed", zap.String("group", group.Name()), zap.Error(err))
		return stats, &SweepError{Err: err}
	}

	c.logger.Debug("Materials canonicalized",
		zap.String("group", group.Name()),
		zap.Int("objects", stats.Objects),
		zap.Int("canonical", stats.Canonical),
		zap.Int("reused", stats.Reused),
		zap.Int("released", stats.Released),
		zap.Int("swept", stats.Swept))
	return stats, nil
}

// resolve returns the registry material with the deterministic name, or
// synthesizes and registers a new one. An existing material is trusted as is.
func (c *Canonicalizer) resolve(name string, color core.Color, stats *Stats) (*material.Material, error) {
	if existing, ok := c.store.Lookup(name); ok {
		stats.Reused++
		if existing.Graph == nil {
			c.logger.Warn("Reusing material without a node tree", zap.String("material", name))
		} else if err := existing.Graph.Validate(); err != nil {
			c.logger.Warn("Reusing material with an unexpected node tree", zap.String("material", name), zap.Error(err))
		}
		return existing, nil
	}

	mat := c.synthesize(color, name)
	if err := c.store.Add(mat); err != nil {
		return nil, fmt.Errorf("failed to register material %s: %w", name, err)
	}
	return mat, nil
}

// release removes a replaced material as soon as nothing references it
func (c *Canonicalizer) release(original *material.Material, stats *Stats) {
	if original.Users() != 0 {
		return
	}
	if err := c.store.Remove(original); err != nil {
		// Not registered in this store; the sweep has nothing to do with it either.
		c.logger.Debug("Released material was not registered", zap.String("material", original.Name), zap.Error(err))
		return
	}
	stats.Released++
}
