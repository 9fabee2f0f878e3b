package term

import (
	"github.com/gdamore/tcell/v2"

	"brain/internal/visual"
)

type action int

const (
	actionNone action = iota
	actionFire
	actionToggleMotion
	actionQuit
)

type command struct {
	action action
	event  visual.Event
}

var runeBindings = map[rune]command{
	'c': {actionFire, visual.EventClickPrimary},
	'o': {actionFire, visual.EventOperationStart},
	's': {actionFire, visual.EventOperationSuccess},
	'e': {actionFire, visual.EventOperationError},
	'k': {actionFire, visual.EventCycle},
	'i': {actionFire, visual.EventIdle},
	'm': {action: actionToggleMotion},
	'q': {action: actionQuit},
}

// keyState tracks hover toggles and mouse edges. Terminals report no key
// releases, so a hover key pressed a second time counts as leaving.
type keyState struct {
	hovering rune
	mouse    bool
}

func (k *keyState) command(ev *tcell.EventKey) command {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return command{action: actionQuit}
	case tcell.KeyRune:
	default:
		return command{}
	}
	r := ev.Rune()
	var hover visual.Event
	switch r {
	case 'h':
		hover = visual.EventHoverPrimary
	case ' ':
		hover = visual.EventHoverSecondary
	default:
		k.hovering = 0
		return runeBindings[r]
	}
	if k.hovering == r {
		k.hovering = 0
		return command{actionFire, visual.EventIdle}
	}
	k.hovering = r
	return command{actionFire, hover}
}

func (k *keyState) clicked(ev *tcell.EventMouse) bool {
	down := ev.Buttons()&tcell.Button1 != 0
	edge := down && !k.mouse
	k.mouse = down
	return edge
}
