// Package canvas translates pointer input into graph mutations and view-state
// changes: pan, zoom, drag, selection, and interactive edge creation.
package canvas

import "github.com/canvex/canvex/pkg/models"

// Gesture is the interaction state machine's current state.
type Gesture string

const (
	GestureIdle         Gesture = "idle"
	GestureDraggingStep Gesture = "dragging_step"
	GesturePanning      Gesture = "panning"
	GestureConnecting   Gesture = "connecting"
)

// SelectionKind distinguishes what a selection points at.
type SelectionKind string

const (
	SelectionStep       SelectionKind = "step"
	SelectionConnection SelectionKind = "connection"
)

// Selection identifies the single selected step or connection. Selection is
// mutually exclusive between the two kinds.
type Selection struct {
	Kind SelectionKind `json:"kind"`
	ID   string        `json:"id"`
}

// ViewState is the ephemeral editor state. It is created with the editor
// session, reset on workflow switch, and never persisted with the workflow.
type ViewState struct {
	Pan       models.Position `json:"pan"`
	Zoom      float64         `json:"zoom"`
	Selection *Selection      `json:"selection,omitempty"`

	Gesture Gesture `json:"gesture"`

	// DragStepID is the step being dragged while Gesture == GestureDraggingStep.
	DragStepID string `json:"drag_step_id,omitempty"`

	// ConnectionSource is the source step while Gesture == GestureConnecting.
	// The provisional edge is rendered from it to Pointer.
	ConnectionSource string `json:"connection_source,omitempty"`

	// Pointer is the last pointer position in canvas coordinates.
	Pointer models.Position `json:"pointer"`

	// lastScreen tracks the previous pointer position in screen coordinates
	// so drags and pans apply deltas rather than absolute positions.
	lastScreen models.Position
}

// NewViewState returns the initial view state for a fresh editor session.
func NewViewState() *ViewState {
	return &ViewState{Zoom: 1, Gesture: GestureIdle}
}

// Reset returns the view state to its initial value, used on workflow switch.
func (v *ViewState) Reset() {
	*v = *NewViewState()
}

// SelectStep marks the step as the sole selection.
func (v *ViewState) SelectStep(id string) {
	v.Selection = &Selection{Kind: SelectionStep, ID: id}
}

// SelectConnection marks the connection as the sole selection.
func (v *ViewState) SelectConnection(id string) {
	v.Selection = &Selection{Kind: SelectionConnection, ID: id}
}

// ClearSelection removes any selection.
func (v *ViewState) ClearSelection() {
	v.Selection = nil
}

// SelectedStepID returns the selected step id, or "".
func (v *ViewState) SelectedStepID() string {
	if v.Selection != nil && v.Selection.Kind == SelectionStep {
		return v.Selection.ID
	}

	return ""
}

// SelectedConnectionID returns the selected connection id, or "".
func (v *ViewState) SelectedConnectionID() string {
	if v.Selection != nil && v.Selection.Kind == SelectionConnection {
		return v.Selection.ID
	}

	return ""
}

func (v *ViewState) toIdle() {
	v.Gesture = GestureIdle
	v.DragStepID = ""
	v.ConnectionSource = ""
}
