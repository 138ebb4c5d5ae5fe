package canvas

import (
	"math"

	"github.com/canvex/canvex/pkg/models"
)

// ToCanvas inverts the current pan/zoom transform, mapping a screen point to
// canvas coordinates: px = (screenX - panX) / zoom.
func (e *Engine) ToCanvas(screen models.Position) models.Position {
	return models.Position{
		X: (screen.X - e.view.Pan.X) / e.view.Zoom,
		Y: (screen.Y - e.view.Pan.Y) / e.view.Zoom,
	}
}

// ToScreen maps a canvas point to screen coordinates.
func (e *Engine) ToScreen(canvas models.Position) models.Position {
	return models.Position{
		X: canvas.X*e.view.Zoom + e.view.Pan.X,
		Y: canvas.Y*e.view.Zoom + e.view.Pan.Y,
	}
}

// HitStep returns the topmost step under the canvas point, or nil. A step at
// (x, y) with half extents (hw, hh) is hit when the point lies within the
// axis-aligned box around its position. Later steps render on top, so the
// slice is scanned in reverse.
func (e *Engine) HitStep(point models.Position) *models.Step {
	steps := e.model.Steps()

	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]

		if math.Abs(point.X-step.Position.X) <= e.stepHalfWidth &&
			math.Abs(point.Y-step.Position.Y) <= e.stepHalfHeight {
			return step
		}
	}

	return nil
}

// HitConnection returns the first connection whose segment passes within the
// hit radius of the canvas point, or nil. The tolerance is fixed in screen
// pixels, so it is divided by zoom to compare in canvas units.
func (e *Engine) HitConnection(point models.Position) *models.Connection {
	radius := e.edgeHitRadius / e.view.Zoom

	for _, connection := range e.model.Connections() {
		source := e.model.Workflow().StepByID(connection.Source)
		target := e.model.Workflow().StepByID(connection.Target)

		if source == nil || target == nil {
			continue
		}

		if distanceToSegment(point, source.Position, target.Position) < radius {
			return connection
		}
	}

	return nil
}

// distanceToSegment computes the distance from p to the segment p1-p2 by
// clamping the perpendicular projection parameter to [0, 1].
func distanceToSegment(p, p1, p2 models.Position) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y

	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return math.Hypot(p.X-p1.X, p.Y-p1.Y)
	}

	t := ((p.X-p1.X)*dx + (p.Y-p1.Y)*dy) / lengthSquared
	t = math.Max(0, math.Min(1, t))

	closestX := p1.X + t*dx
	closestY := p1.Y + t*dy

	return math.Hypot(p.X-closestX, p.Y-closestY)
}
