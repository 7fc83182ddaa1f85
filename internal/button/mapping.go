package button

const (
	// ButtonPrefix 只有以此开头的数据点才是按键
	ButtonPrefix = "BTN"
	// ReconButton 网关的诊断伪按键，不对应任何物理按键
	ReconButton = "BTNRECON"

	SwitchSingle = "SWT"
	SwitchLeft   = "SWT_A"
	SwitchRight  = "SWT_B"
)

// switchGroups 翘板开关数据点 -> 其可驱动的按键
var switchGroups = [...]struct {
	name    string
	buttons [2]string
}{
	{name: SwitchSingle, buttons: [2]string{"BTN_0", "BTN_1"}},
	{name: SwitchLeft, buttons: [2]string{"BTN_A0", "BTN_A1"}},
	{name: SwitchRight, buttons: [2]string{"BTN_B0", "BTN_B1"}},
}

// GroupButtons returns the buttons driven by a switch-group component.
// ok is false when name is not a switch group.
func GroupButtons(name string) (buttons [2]string, ok bool) {
	for _, group := range switchGroups {
		if group.name == name {
			return group.buttons, true
		}
	}
	return buttons, false
}

// IsSwitchGroup reports whether a component carries button state.
func IsSwitchGroup(name string) bool {
	_, ok := GroupButtons(name)
	return ok
}

func groupHasButton(name, button string) bool {
	buttons, ok := GroupButtons(name)
	if !ok {
		return false
	}
	return buttons[0] == button || buttons[1] == button
}
