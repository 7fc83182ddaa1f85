package button

import (
	"fmt"
	"log/slog"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

// Listener receives every device update pushed by the hub.
type Listener interface {
	OnHubUpdate(deviceID string, components []entity.Component)
}

// Registrar is the hub handle sensors subscribe to.
type Registrar interface {
	RegisterListener(listener Listener)
}

// Notifier is told about every sensor state change.
type Notifier interface {
	NotifyState(sensor *Sensor, on bool)
}

// Announcer is implemented by notifiers that want to know every sensor before
// it starts receiving hub pushes.
type Announcer interface {
	AnnounceSensors(sensors []*Sensor)
}

// Sensor 一个物理按键，按下为 on
type Sensor struct {
	hub      Registrar
	notifier Notifier

	deviceID   string
	deviceName string
	button     string
	text       string
	name       string
	uniqueID   string
	on         bool
}

func NewSensor(device *entity.Device, component entity.Component, hub Registrar, notifier Notifier) *Sensor {
	sensor := &Sensor{
		hub:        hub,
		notifier:   notifier,
		deviceID:   device.ID,
		deviceName: device.Name,
		button:     component.Name,
		text:       component.Text,
		name:       fmt.Sprintf("%v - %v", device.Name, component.Text),
		uniqueID:   fmt.Sprintf("%v_%v", device.ID, component.Name),
	}
	sensor.on = Decode(device.Components, sensor.button, false)
	return sensor
}

func (sensor *Sensor) IsOn() bool {
	return sensor.on
}

func (sensor *Sensor) Name() string {
	return sensor.name
}

func (sensor *Sensor) UniqueID() string {
	return sensor.uniqueID
}

func (sensor *Sensor) DeviceID() string {
	return sensor.deviceID
}

func (sensor *Sensor) DeviceName() string {
	return sensor.deviceName
}

func (sensor *Sensor) ButtonName() string {
	return sensor.button
}

// Text is the component label, without the device name.
func (sensor *Sensor) Text() string {
	return sensor.text
}

// Attach subscribes the sensor to hub pushes.
func (sensor *Sensor) Attach() {
	if sensor.hub != nil {
		sensor.hub.RegisterListener(sensor)
	}
}

// OnHubUpdate refreshes the state from a pushed snapshot. Updates for other
// devices are ignored.
func (sensor *Sensor) OnHubUpdate(deviceID string, components []entity.Component) {
	if deviceID != sensor.deviceID {
		return
	}

	on := Decode(components, sensor.button, sensor.on)
	if on == sensor.on {
		return
	}
	slog.Debug("Button: state changed", "name", sensor.name, "deviceId", sensor.deviceID,
		"button", sensor.button, "old", sensor.on, "new", on)
	sensor.on = on
	if sensor.notifier != nil {
		sensor.notifier.NotifyState(sensor, on)
	}
}
