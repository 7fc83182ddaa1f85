package button

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

// Setup creates one attached sensor per BTN* component of every device.
// Devices are visited in id order, components in the order the hub lists
// them. An Announcer notifier sees the sensors before any of them is attached.
func Setup(devices map[string]*entity.Device, hub Registrar, notifier Notifier) []*Sensor {
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sensors := make([]*Sensor, 0)
	for _, id := range ids {
		device := devices[id]
		if device == nil {
			continue
		}
		for _, component := range device.Components {
			if component.Name == "" || !strings.HasPrefix(component.Name, ButtonPrefix) {
				continue
			}
			if component.Name == ReconButton {
				slog.Debug("Button: skipped BTNRECON", "deviceName", device.Name, "deviceId", id)
				continue
			}
			sensors = append(sensors, NewSensor(device, component, hub, notifier))
		}
	}

	if announcer, ok := notifier.(Announcer); ok {
		announcer.AnnounceSensors(sensors)
	}
	for _, sensor := range sensors {
		sensor.Attach()
	}
	slog.Info("Button: sensors created", "count", len(sensors))
	return sensors
}
