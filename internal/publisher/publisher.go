package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuretru/Wibutler-Gateway/entity"
	"github.com/kuretru/Wibutler-Gateway/internal/button"
	"github.com/kuretru/Wibutler-Gateway/internal/metrics"
)

var (
	lock       sync.RWMutex
	publishers []WibutlerPublisher
)

type WibutlerPublisher interface {
	Run(ctx context.Context, config *entity.PublisherConfig) error
	Stop(ctx context.Context)
	RegisterSensors(ctx context.Context, sensors []SensorInfo)
	PublishState(ctx context.Context, sensor SensorInfo, on bool)
}

// SensorInfo 按键传感器的只读快照，发布器不直接持有 *button.Sensor
type SensorInfo struct {
	DeviceID   string
	DeviceName string
	Button     string
	Text       string
	Name       string
	UniqueID   string
	On         bool
}

func NewSensorInfo(sensor *button.Sensor) SensorInfo {
	return SensorInfo{
		DeviceID:   sensor.DeviceID(),
		DeviceName: sensor.DeviceName(),
		Button:     sensor.ButtonName(),
		Text:       sensor.Text(),
		Name:       sensor.Name(),
		UniqueID:   sensor.UniqueID(),
		On:         sensor.IsOn(),
	}
}

func Init(ctx context.Context, configs []*entity.PublisherConfig) error {
	if len(configs) == 0 {
		return fmt.Errorf("publisher config is empty")
	}

	result := make([]WibutlerPublisher, 0, len(configs))
	for _, config := range configs {
		var publisher WibutlerPublisher
		switch config.Type {
		case "hass_mqtt":
			publisher = &HomeAssistantMQTTPublisher{}
		default:
			return fmt.Errorf("unknown publisher type %v", config.Type)
		}

		if err := publisher.Run(ctx, config); err != nil {
			return fmt.Errorf("publisher: run %v publisher failed, %v", config.Type, err)
		}
		result = append(result, publisher)
	}

	lock.Lock()
	publishers = result
	lock.Unlock()
	return nil
}

func Stop(ctx context.Context) {
	for _, publisher := range running() {
		publisher.Stop(ctx)
	}
}

func running() []WibutlerPublisher {
	lock.RLock()
	defer lock.RUnlock()
	result := make([]WibutlerPublisher, len(publishers))
	copy(result, publishers)
	return result
}

// Notifier 把按键状态变化转发给所有发布器
type Notifier struct{}

func (Notifier) AnnounceSensors(sensors []*button.Sensor) {
	infos := make([]SensorInfo, 0, len(sensors))
	for _, sensor := range sensors {
		infos = append(infos, NewSensorInfo(sensor))
	}
	metrics.SetButtonSensors(len(infos))
	for _, publisher := range running() {
		publisher.RegisterSensors(context.Background(), infos)
	}
}

func (Notifier) NotifyState(sensor *button.Sensor, on bool) {
	metrics.ObserveButtonTransition(sensor.DeviceID(), sensor.ButtonName(), on)
	info := NewSensorInfo(sensor)
	info.On = on
	for _, publisher := range running() {
		publisher.PublishState(context.Background(), info, on)
	}
}
