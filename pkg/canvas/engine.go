package canvas

import (
	"log/slog"

	"github.com/canvex/canvex/pkg/graph"
	"github.com/canvex/canvex/pkg/models"
)

// Default geometry in canvas units and screen pixels.
const (
	defaultStepHalfWidth  = 90.0
	defaultStepHalfHeight = 40.0
	defaultEdgeHitRadius  = 8.0
	minZoom               = 0.1
	maxZoom               = 4.0
)

// Engine drives the canvas interaction state machine over one workflow's
// graph model. All transitions happen synchronously in response to discrete
// input events; the engine never blocks and is driven from a single event
// loop.
type Engine struct {
	model *graph.Model
	view  *ViewState

	stepHalfWidth  float64
	stepHalfHeight float64
	edgeHitRadius  float64

	logger *slog.Logger
}

// NewEngine creates an engine over the given model with a fresh view state.
func NewEngine(model *graph.Model, logger *slog.Logger) *Engine {
	return &Engine{
		model:          model,
		view:           NewViewState(),
		stepHalfWidth:  defaultStepHalfWidth,
		stepHalfHeight: defaultStepHalfHeight,
		edgeHitRadius:  defaultEdgeHitRadius,
		logger:         logger.With("module", "canvas_engine"),
	}
}

// View returns the current view state.
func (e *Engine) View() *ViewState {
	return e.view
}

// Model returns the underlying graph model.
func (e *Engine) Model() *graph.Model {
	return e.model
}

// SwitchWorkflow swaps the model and resets the view state.
func (e *Engine) SwitchWorkflow(model *graph.Model) {
	e.model = model
	e.view.Reset()
}

// PointerDown starts a drag over a step or a pan over empty canvas. While a
// connection is in progress the press is resolved by PointerUp.
func (e *Engine) PointerDown(screen models.Position) {
	e.view.lastScreen = screen
	e.view.Pointer = e.ToCanvas(screen)

	if e.view.Gesture == GestureConnecting {
		return
	}

	if step := e.HitStep(e.view.Pointer); step != nil {
		e.view.Gesture = GestureDraggingStep
		e.view.DragStepID = step.ID

		return
	}

	e.view.Gesture = GesturePanning
}

// PointerMove advances the active gesture. Drags apply the pointer delta
// scaled into canvas units rather than absolute positions, so they do not
// drift when the zoom changes mid-gesture.
func (e *Engine) PointerMove(screen models.Position) {
	deltaX := screen.X - e.view.lastScreen.X
	deltaY := screen.Y - e.view.lastScreen.Y
	e.view.lastScreen = screen
	e.view.Pointer = e.ToCanvas(screen)

	switch e.view.Gesture {
	case GestureDraggingStep:
		step, err := e.model.Step(e.view.DragStepID)
		if err != nil {
			e.logger.Warn("Dragged step vanished, cancelling drag", "step_id", e.view.DragStepID)
			e.view.toIdle()

			return
		}

		moved := models.Position{
			X: step.Position.X + deltaX/e.view.Zoom,
			Y: step.Position.Y + deltaY/e.view.Zoom,
		}

		if err := e.model.MoveStep(step.ID, moved); err != nil {
			e.logger.Warn("Failed to move step", "step_id", step.ID, "error", err)
		}

	case GesturePanning:
		e.view.Pan.X += deltaX
		e.view.Pan.Y += deltaY

	case GestureConnecting, GestureIdle:
		// Pointer tracking only; the provisional edge follows e.view.Pointer.
	}
}

// PointerUp ends the active gesture. Completing a connection on a second,
// distinct step creates it; releasing over empty canvas or the source step
// cancels without mutation.
func (e *Engine) PointerUp(screen models.Position) {
	e.view.Pointer = e.ToCanvas(screen)

	if e.view.Gesture == GestureConnecting {
		e.completeConnection(e.view.Pointer)

		return
	}

	e.view.toIdle()
}

// Click resolves selection: the hit step or connection becomes the sole
// selection, and a miss clears it. During an active connection the click
// completes or cancels it instead.
func (e *Engine) Click(screen models.Position) {
	point := e.ToCanvas(screen)
	e.view.Pointer = point

	if e.view.Gesture == GestureConnecting {
		e.completeConnection(point)

		return
	}

	if step := e.HitStep(point); step != nil {
		e.view.SelectStep(step.ID)

		return
	}

	if connection := e.HitConnection(point); connection != nil {
		e.view.SelectConnection(connection.ID)

		return
	}

	e.view.ClearSelection()
}

// BeginConnection enters connect mode from the given source step. The host
// maps its distinguished gesture (double click or a connect affordance) to
// this call.
func (e *Engine) BeginConnection(sourceID string) error {
	if _, err := e.model.Step(sourceID); err != nil {
		return err
	}

	e.view.Gesture = GestureConnecting
	e.view.ConnectionSource = sourceID

	return nil
}

// completeConnection finishes connect mode at the given canvas point.
func (e *Engine) completeConnection(point models.Position) {
	source := e.view.ConnectionSource
	e.view.toIdle()

	target := e.HitStep(point)
	if target == nil || target.ID == source {
		return
	}

	connection, err := e.model.AddConnection(source, target.ID)
	if err != nil {
		e.logger.Warn("Connection rejected", "source", source, "target", target.ID, "error", err)

		return
	}

	e.view.SelectConnection(connection.ID)
}

// Cancel aborts any in-progress gesture without mutating the graph, used for
// pointer-leave and escape.
func (e *Engine) Cancel() {
	e.view.toIdle()
}

// ZoomAt multiplies the zoom factor and recomputes the pan so the canvas
// point under the cursor stays fixed on screen (anchor-preserving zoom).
func (e *Engine) ZoomAt(screen models.Position, factor float64) {
	zoom := e.view.Zoom * factor
	if zoom < minZoom {
		zoom = minZoom
	}

	if zoom > maxZoom {
		zoom = maxZoom
	}

	anchor := e.ToCanvas(screen)

	e.view.Zoom = zoom
	e.view.Pan.X = screen.X - anchor.X*zoom
	e.view.Pan.Y = screen.Y - anchor.Y*zoom
}

// RemoveStep removes the step through the model and clears the selection when
// it pointed at the removed step or one of its cascaded connections.
func (e *Engine) RemoveStep(id string) error {
	if err := e.model.RemoveStep(id); err != nil {
		return err
	}

	if e.view.SelectedStepID() == id {
		e.view.ClearSelection()
	}

	if selected := e.view.SelectedConnectionID(); selected != "" {
		if e.model.Workflow().ConnectionByID(selected) == nil {
			e.view.ClearSelection()
		}
	}

	if e.view.DragStepID == id || e.view.ConnectionSource == id {
		e.view.toIdle()
	}

	return nil
}

// RemoveConnection removes the connection through the model and clears a
// selection pointing at it.
func (e *Engine) RemoveConnection(id string) error {
	if err := e.model.RemoveConnection(id); err != nil {
		return err
	}

	if e.view.SelectedConnectionID() == id {
		e.view.ClearSelection()
	}

	return nil
}
