package button

import (
	"github.com/kuretru/Wibutler-Gateway/entity"
)

const (
	transitionDown = 'D'
)

// Resolve decodes one switch-group value into the button it targets.
// The first character of value is the button index and the last one is the
// transition; anything in between is ignored.
func Resolve(group, value string) (target string, pressed bool, ok bool) {
	if !IsSwitchGroup(group) {
		return "", false, false
	}
	runes := []rune(value)
	if len(runes) == 0 {
		return "", false, false
	}
	index := string(runes[0])
	pressed = runes[len(runes)-1] == transitionDown

	if group == SwitchSingle {
		return "BTN_" + index, pressed, true
	}

	// SWT_A 与 SWT_B 编码相同，以组内按键列表区分
	for _, candidate := range []string{"BTN_A" + index, "BTN_B" + index} {
		if groupHasButton(group, candidate) {
			return candidate, pressed, true
		}
	}
	return "", false, false
}

// Decode computes the state of button from a device's component snapshot.
// current is returned unchanged when no switch group in the snapshot targets
// button. When several do, the last one wins.
func Decode(components []entity.Component, button string, current bool) bool {
	state := current
	for _, component := range components {
		if !IsSwitchGroup(component.Name) {
			continue
		}
		value := component.StringValue()
		if value == "" {
			continue
		}
		target, pressed, ok := Resolve(component.Name, value)
		if !ok || target != button {
			continue
		}
		state = pressed
	}
	return state
}
