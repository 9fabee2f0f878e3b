package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"brain/internal/visual"
)

// keySource is the part of *glfw.Window input polling needs.
type keySource interface {
	GetKey(glfw.Key) glfw.Action
	GetMouseButton(glfw.MouseButton) glfw.Action
}

// Action is what one input edge asks the host to do.
type Action int

const (
	ActionNone Action = iota
	ActionFire
	ActionToggleMotion
	ActionQuit
)

// Command pairs an action with the event it fires, if any.
type Command struct {
	Action Action
	Event  visual.Event
}

// pressBindings fire on the press edge.
var pressBindings = map[glfw.Key]Command{
	glfw.KeyC:      {ActionFire, visual.EventClickPrimary},
	glfw.KeyO:      {ActionFire, visual.EventOperationStart},
	glfw.KeyS:      {ActionFire, visual.EventOperationSuccess},
	glfw.KeyE:      {ActionFire, visual.EventOperationError},
	glfw.KeyK:      {ActionFire, visual.EventCycle},
	glfw.KeyI:      {ActionFire, visual.EventIdle},
	glfw.KeyM:      {Action: ActionToggleMotion},
	glfw.KeyQ:      {Action: ActionQuit},
	glfw.KeyEscape: {Action: ActionQuit},
}

// holdBindings fire their event on press and idle on release.
var holdBindings = map[glfw.Key]visual.Event{
	glfw.KeyH:     visual.EventHoverPrimary,
	glfw.KeySpace: visual.EventHoverSecondary,
}

type Input struct {
	prevKeys  map[glfw.Key]bool
	prevMouse map[glfw.MouseButton]bool
}

func NewInput() *Input {
	return &Input{
		prevKeys:  make(map[glfw.Key]bool),
		prevMouse: make(map[glfw.MouseButton]bool),
	}
}

// edge reports press and release transitions of key since the last poll.
func (in *Input) edge(src keySource, key glfw.Key) (pressed, released bool) {
	down := src.GetKey(key) == glfw.Press
	was := in.prevKeys[key]
	in.prevKeys[key] = down
	return down && !was, !down && was
}

func (in *Input) JustClicked(src keySource, btn glfw.MouseButton) bool {
	down := src.GetMouseButton(btn) == glfw.Press
	jp := down && !in.prevMouse[btn]
	in.prevMouse[btn] = down
	return jp
}

// Poll returns the commands triggered since the previous poll.
func (in *Input) Poll(src keySource) []Command {
	var out []Command
	for key, cmd := range pressBindings {
		if pressed, _ := in.edge(src, key); pressed {
			out = append(out, cmd)
		}
	}
	for key, e := range holdBindings {
		pressed, released := in.edge(src, key)
		switch {
		case pressed:
			out = append(out, Command{ActionFire, e})
		case released:
			out = append(out, Command{ActionFire, visual.EventIdle})
		}
	}
	if in.JustClicked(src, glfw.MouseButtonLeft) {
		out = append(out, Command{ActionFire, visual.EventClickPrimary})
	}
	return out
}
