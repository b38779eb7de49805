// Package layout positions the objects of a group: reactive vertical stacking
// along Z and whole-group placement.
package layout

import (
	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// ElevationConfig is the per-scene stacking configuration
type ElevationConfig struct {
	Target *scene.Group // nil disables stacking
	Step   float64
}

// Assignment is the desired elevation of one object
type Assignment struct {
	Object *scene.Object
	Index  int // position in the group, counting skipped objects
	Z      float64
}

// Plan returns the absolute elevations for the given objects: the object at
// position i gets i*step. Positions count every object, but only Mesh, Curve and
// Empty objects receive an assignment. Plan has no side effects.
func Plan(objects []*scene.Object, step float64) []Assignment {
	plan := make([]Assignment, 0, len(objects))
	for i, obj := range objects {
		if !obj.Stackable() {
			continue
		}
		plan = append(plan, Assignment{Object: obj, Index: i, Z: float64(i) * step})
	}
	return plan
}

// Apply sets each object's Z coordinate from the plan
func Apply(plan []Assignment) {
	for _, a := range plan {
		a.Object.Transform.Location = a.Object.Transform.Location.WithZ(a.Z)
	}
}

// Controller owns a scene's elevation configuration and restacks the target
// group every time the configuration changes. There is no other way to trigger
// a recompute.
type Controller struct {
	scene  *scene.Scene
	config ElevationConfig
	logger *zap.Logger
}

// NewController creates a controller with no target
func NewController(sc *scene.Scene, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{scene: sc, logger: logger}
}

// Config returns the current configuration
func (c *Controller) Config() ElevationConfig {
	return c.config
}

// SetTarget changes the target group and recomputes
func (c *Controller) SetTarget(g *scene.Group) []Assignment {
	c.config.Target = g
	return c.recompute()
}

// SetStep changes the step and recomputes
func (c *Controller) SetStep(step float64) []Assignment {
	c.config.Step = step
	return c.recompute()
}

// Set replaces the whole configuration and recomputes
func (c *Controller) Set(cfg ElevationConfig) []Assignment {
	c.config = cfg
	return c.recompute()
}

func (c *Controller) recompute() []Assignment {
	target := c.config.Target
	if target == nil {
		return nil
	}
	if !c.scene.Contains(target) {
		c.logger.Debug("Elevation target is no longer in the scene", zap.String("group", target.Name()))
		return nil
	}

	plan := Plan(target.Objects(), c.config.Step)
	Apply(plan)
	c.logger.Debug("Elevation recomputed",
		zap.String("group", target.Name()),
		zap.Float64("step", c.config.Step),
		zap.Int("moved", len(plan)))
	return plan
}
