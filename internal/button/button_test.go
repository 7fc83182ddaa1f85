package button

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

type fakeHub struct {
	listeners []Listener
}

func (hub *fakeHub) RegisterListener(listener Listener) {
	hub.listeners = append(hub.listeners, listener)
}

func (hub *fakeHub) push(deviceID string, components []entity.Component) {
	for _, listener := range hub.listeners {
		listener.OnHubUpdate(deviceID, components)
	}
}

type notification struct {
	uniqueID string
	on       bool
}

type fakeNotifier struct {
	notifications []notification
	announced     []string
}

func (notifier *fakeNotifier) AnnounceSensors(sensors []*Sensor) {
	for _, sensor := range sensors {
		notifier.announced = append(notifier.announced, sensor.UniqueID())
	}
}

func (notifier *fakeNotifier) NotifyState(sensor *Sensor, on bool) {
	notifier.notifications = append(notifier.notifications, notification{sensor.UniqueID(), on})
}

func swt(name, value string) entity.Component {
	raw, _ := json.Marshal(value)
	return entity.Component{Name: name, Text: name, Value: raw}
}

func btn(name, text string) entity.Component {
	return entity.Component{Name: name, Text: text}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		group   string
		value   string
		target  string
		pressed bool
		ok      bool
	}{
		{SwitchSingle, "0D", "BTN_0", true, true},
		{SwitchSingle, "1U", "BTN_1", false, true},
		{SwitchLeft, "1U", "BTN_A1", false, true},
		{SwitchLeft, "0xxD", "BTN_A0", true, true},
		{SwitchRight, "0D", "BTN_B0", true, true},
		{SwitchRight, "1D", "BTN_B1", true, true},
		{SwitchLeft, "7D", "", false, false},
		{SwitchSingle, "", "", false, false},
		{"LVL", "0D", "", false, false},
		{SwitchSingle, "D", "BTN_D", true, true},
	}
	for _, c := range cases {
		target, pressed, ok := Resolve(c.group, c.value)
		assert.Equal(t, c.ok, ok, "%v=%q", c.group, c.value)
		assert.Equal(t, c.target, target, "%v=%q", c.group, c.value)
		assert.Equal(t, c.pressed, pressed, "%v=%q", c.group, c.value)
	}
}

func TestDecode(t *testing.T) {
	snapshot := []entity.Component{btn("BTN_0", "Top"), swt(SwitchSingle, "0D")}
	assert.True(t, Decode(snapshot, "BTN_0", false))
	assert.False(t, Decode(snapshot, "BTN_1", false))
	assert.True(t, Decode(snapshot, "BTN_1", true))

	assert.False(t, Decode([]entity.Component{swt(SwitchLeft, "1U")}, "BTN_A1", true))
	assert.True(t, Decode([]entity.Component{swt(SwitchLeft, "1U")}, "BTN_B1", true))
	assert.True(t, Decode([]entity.Component{swt(SwitchRight, "0D")}, "BTN_B0", false))
	assert.False(t, Decode([]entity.Component{swt(SwitchRight, "0D")}, "BTN_A0", false))
}

func TestDecodeSkipsMissingAndMalformedValues(t *testing.T) {
	snapshot := []entity.Component{
		{Name: SwitchSingle, Text: "Wippe"},
		{Name: SwitchSingle, Value: json.RawMessage(`null`)},
		swt(SwitchSingle, ""),
		swt(SwitchLeft, "9D"),
		swt("LVL", "0D"),
	}
	assert.True(t, Decode(snapshot, "BTN_0", true))
	assert.False(t, Decode(snapshot, "BTN_A0", false))
	assert.True(t, Decode(nil, "BTN_0", true))
}

func TestDecodeLastWriteWins(t *testing.T) {
	snapshot := []entity.Component{swt(SwitchSingle, "0D"), swt(SwitchSingle, "0U")}
	assert.False(t, Decode(snapshot, "BTN_0", true))

	snapshot = []entity.Component{swt(SwitchSingle, "0U"), swt(SwitchSingle, "0D")}
	assert.True(t, Decode(snapshot, "BTN_0", false))
}

func TestGroupButtons(t *testing.T) {
	buttons, ok := GroupButtons(SwitchLeft)
	require.True(t, ok)
	assert.Equal(t, [2]string{"BTN_A0", "BTN_A1"}, buttons)

	_, ok = GroupButtons("BTN_0")
	assert.False(t, ok)
}

type SensorTest struct {
	suite.Suite
	hub      *fakeHub
	notifier *fakeNotifier
	device   *entity.Device
}

func (s *SensorTest) SetupTest() {
	s.hub = &fakeHub{}
	s.notifier = &fakeNotifier{}
	s.device = &entity.Device{
		ID:   "17",
		Name: "Flur",
		Components: []entity.Component{
			btn("BTN_A0", "Links unten"),
			btn("BTN_A1", "Links oben"),
			btn("BTN_B0", "Rechts unten"),
			btn("BTN_B1", "Rechts oben"),
			swt(SwitchLeft, "1D"),
		},
	}
}

func (s *SensorTest) Test_newSensor() {
	sensor := NewSensor(s.device, s.device.Components[1], s.hub, s.notifier)
	s.Equal("Flur - Links oben", sensor.Name())
	s.Equal("17_BTN_A1", sensor.UniqueID())
	s.Equal("BTN_A1", sensor.ButtonName())
	s.Equal("Links oben", sensor.Text())
	s.Equal("17", sensor.DeviceID())
	s.True(sensor.IsOn())
	s.Empty(s.hub.listeners)
	s.Empty(s.notifier.notifications)

	other := NewSensor(s.device, s.device.Components[0], s.hub, s.notifier)
	s.False(other.IsOn())
}

func (s *SensorTest) Test_attachRegistersListener() {
	sensor := NewSensor(s.device, s.device.Components[0], s.hub, s.notifier)
	sensor.Attach()
	s.Require().Len(s.hub.listeners, 1)
	s.Same(sensor, s.hub.listeners[0])
}

func (s *SensorTest) Test_updateChangesStateAndNotifiesOnce() {
	sensor := NewSensor(s.device, s.device.Components[2], s.hub, s.notifier)
	s.False(sensor.IsOn())

	update := []entity.Component{swt(SwitchRight, "0D")}
	sensor.OnHubUpdate("17", update)
	sensor.OnHubUpdate("17", update)
	s.True(sensor.IsOn())
	s.Equal([]notification{{"17_BTN_B0", true}}, s.notifier.notifications)

	sensor.OnHubUpdate("17", []entity.Component{swt(SwitchRight, "0U")})
	s.False(sensor.IsOn())
	s.Len(s.notifier.notifications, 2)
}

func (s *SensorTest) Test_updateForOtherDeviceIsIgnored() {
	sensor := NewSensor(s.device, s.device.Components[1], s.hub, s.notifier)
	s.True(sensor.IsOn())

	sensor.OnHubUpdate("18", []entity.Component{swt(SwitchLeft, "1U")})
	s.True(sensor.IsOn())
	s.Empty(s.notifier.notifications)
}

func (s *SensorTest) Test_updateWithoutSwitchGroupKeepsState() {
	sensor := NewSensor(s.device, s.device.Components[1], s.hub, s.notifier)
	sensor.OnHubUpdate("17", []entity.Component{btn("BTN_A1", "Links oben")})
	s.True(sensor.IsOn())
	s.Empty(s.notifier.notifications)
}

func (s *SensorTest) Test_wrongGroupDoesNotAffectSensor() {
	sensor := NewSensor(s.device, s.device.Components[3], s.hub, s.notifier)
	sensor.OnHubUpdate("17", []entity.Component{swt(SwitchRight, "1D")})
	s.True(sensor.IsOn())

	sensor.OnHubUpdate("17", []entity.Component{swt(SwitchLeft, "1U")})
	s.True(sensor.IsOn())
	s.Len(s.notifier.notifications, 1)
}

func (s *SensorTest) Test_nilNotifier() {
	sensor := NewSensor(s.device, s.device.Components[0], nil, nil)
	sensor.Attach()
	sensor.OnHubUpdate("17", []entity.Component{swt(SwitchLeft, "0D")})
	s.True(sensor.IsOn())
}

func TestSensor(t *testing.T) {
	suite.Run(t, new(SensorTest))
}

func TestSetup(t *testing.T) {
	hub := &fakeHub{}
	notifier := &fakeNotifier{}
	devices := map[string]*entity.Device{
		"b": {
			ID:   "b",
			Name: "X",
			Components: []entity.Component{
				{Name: ReconButton},
				btn("BTN_0", "Top"),
			},
		},
		"a": {
			ID:   "a",
			Name: "Y",
			Components: []entity.Component{
				{Text: "no name"},
				swt(SwitchSingle, "1D"),
				btn("BTN_0", "Unten"),
				btn("BTN_1", "Oben"),
			},
		},
		"c": nil,
	}

	sensors := Setup(devices, hub, notifier)
	require.Len(t, sensors, 3)
	assert.Equal(t, "a_BTN_0", sensors[0].UniqueID())
	assert.Equal(t, "a_BTN_1", sensors[1].UniqueID())
	assert.True(t, sensors[1].IsOn())
	assert.Equal(t, "b_BTN_0", sensors[2].UniqueID())
	assert.Equal(t, "X - Top", sensors[2].Name())
	assert.Len(t, hub.listeners, 3)
	assert.Equal(t, []string{"a_BTN_0", "a_BTN_1", "b_BTN_0"}, notifier.announced)

	hub.push("b", []entity.Component{swt(SwitchSingle, "0D")})
	assert.False(t, sensors[0].IsOn())
	assert.True(t, sensors[2].IsOn())
	assert.Equal(t, []notification{{"b_BTN_0", true}}, notifier.notifications)
}
