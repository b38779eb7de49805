package layout

import (
	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// Place scales every object of the group per axis and moves it to position
func Place(g *scene.Group, position, scale core.Vec3) {
	for _, obj := range g.Objects() {
		obj.Transform.Scale = obj.Transform.Scale.MultiplyVec(scale)
		obj.Transform.Location = position
	}
}
