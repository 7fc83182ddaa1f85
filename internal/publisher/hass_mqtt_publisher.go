package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/kuretru/Wibutler-Gateway/entity"
	"github.com/kuretru/Wibutler-Gateway/entity/hass"
	"github.com/kuretru/Wibutler-Gateway/internal/utils"
)

const (
	devicePrefix      = "wibutler_"
	availabilityTopic = "wibutler/gateway/availability"

	defaultDiscoveryPrefix   = "homeassistant"
	defaultRepublishInterval = 5 * time.Minute
)

type HomeAssistantMQTTPublisher struct {
	config            *entity.MQTTPublisherConfig
	connectionManager *autopaho.ConnectionManager
	cancel            context.CancelFunc

	lock    sync.Mutex
	devices map[string]*deviceSensors
}

// deviceSensors 一个 Wibutler 设备下的所有按键
type deviceSensors struct {
	id      string
	name    string
	sensors []SensorInfo
}

func (publisher *HomeAssistantMQTTPublisher) Run(ctx context.Context, config *entity.PublisherConfig) error {
	if config.MQTT == nil {
		return fmt.Errorf("Publisher.HASS_MQTT: mqtt config is nil")
	}
	publisher.config = config.MQTT
	publisher.devices = make(map[string]*deviceSensors)
	u, err := url.Parse(config.MQTT.URL)
	if err != nil {
		return fmt.Errorf("Publisher.HASS_MQTT: parse mqtt url failed: %v, %v", config.MQTT.URL, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	publisher.cancel = cancel

	clientConfig := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{u},
		KeepAlive:       config.MQTT.Keepalive,
		ConnectUsername: config.MQTT.Username,
		ConnectPassword: []byte(config.MQTT.Password),
		// CleanStartOnInitialConnection defaults to false. Setting this to true will clear the session on the first connection.
		CleanStartOnInitialConnection: false,
		// SessionExpiryInterval - Seconds that a session will survive after disconnection.
		SessionExpiryInterval: 60,
		WillMessage: &paho.WillMessage{
			Retain:  true,
			QoS:     1,
			Topic:   availabilityTopic,
			Payload: []byte("offline"),
		},
		OnConnectionUp: func(connectionManager *autopaho.ConnectionManager, connAck *paho.Connack) {
			slog.Info("Publisher.HASS_MQTT: connected to server")
			go publisher.publishAll(runCtx, connectionManager)
		},
		OnConnectError: func(err error) {
			slog.Error("Publisher.HASS_MQTT: connect failed", "err", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: config.MQTT.ClientID,
			OnClientError: func(err error) {
				slog.Info("Publisher.HASS_MQTT: client error", "err", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil && d.Properties.ReasonString != "" {
					slog.Error("Publisher.HASS_MQTT: server requested disconnect", "reason", d.Properties.ReasonString)
				} else {
					slog.Error("Publisher.HASS_MQTT: server requested disconnect", "reasonCode", d.ReasonCode)
				}
			},
		},
	}

	publisher.connectionManager, err = autopaho.NewConnection(runCtx, clientConfig)
	if err != nil {
		cancel()
		return fmt.Errorf("Publisher.HASS_MQTT: NewConnection failed, %v", err)
	}
	if err = publisher.connectionManager.AwaitConnection(ctx); err != nil {
		cancel()
		return fmt.Errorf("Publisher.HASS_MQTT: AwaitConnection failed, %v", err)
	}
	slog.Info("Publisher.HASS_MQTT: initialized", "server", config.MQTT.URL)

	go publisher.runRepublish(runCtx)
	return nil
}

func (publisher *HomeAssistantMQTTPublisher) Stop(ctx context.Context) {
	if publisher.connectionManager != nil {
		_, _ = publisher.connectionManager.Publish(ctx, availabilityMessage("offline"))
		_ = publisher.connectionManager.Disconnect(ctx)
	}
	if publisher.cancel != nil {
		publisher.cancel()
	}
	slog.Info("Publisher.HASS_MQTT: stopped")
}

// RegisterSensors 记录按键并发布对应设备的自动发现配置与状态
func (publisher *HomeAssistantMQTTPublisher) RegisterSensors(ctx context.Context, sensors []SensorInfo) {
	publisher.lock.Lock()
	touched := make(map[string]struct{})
	for _, sensor := range sensors {
		device, ok := publisher.devices[sensor.DeviceID]
		if !ok {
			device = &deviceSensors{id: sensor.DeviceID, name: sensor.DeviceName}
			publisher.devices[sensor.DeviceID] = device
		}
		device.upsert(sensor)
		touched[sensor.DeviceID] = struct{}{}
	}
	messages := make([]*paho.Publish, 0, 2*len(touched))
	for deviceID := range touched {
		device := publisher.devices[deviceID]
		messages = append(messages, publisher.configMessage(device), publisher.stateMessage(device))
	}
	publisher.lock.Unlock()

	publisher.publish(ctx, publisher.connectionManager, messages...)
	slog.Info("Publisher.HASS_MQTT: sensors registered", "sensors", len(sensors), "devices", len(touched))
}

func (publisher *HomeAssistantMQTTPublisher) PublishState(ctx context.Context, sensor SensorInfo, on bool) {
	publisher.lock.Lock()
	device, ok := publisher.devices[sensor.DeviceID]
	if !ok {
		publisher.lock.Unlock()
		slog.Warn("Publisher.HASS_MQTT: state for unregistered sensor", "uniqueId", sensor.UniqueID)
		return
	}
	sensor.On = on
	device.upsert(sensor)
	message := publisher.stateMessage(device)
	publisher.lock.Unlock()

	publisher.publish(ctx, publisher.connectionManager, message)
}

func (publisher *HomeAssistantMQTTPublisher) runRepublish(ctx context.Context) {
	interval := publisher.config.RepublishInterval.Duration
	if interval <= 0 {
		interval = defaultRepublishInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publisher.publishAll(ctx, publisher.connectionManager)
		}
	}
}

// publishAll 重新发布可用性、全部设备的配置与状态
func (publisher *HomeAssistantMQTTPublisher) publishAll(ctx context.Context, connectionManager *autopaho.ConnectionManager) {
	publisher.lock.Lock()
	devices := publisher.sortedDevices()
	messages := []*paho.Publish{availabilityMessage("online")}
	for _, device := range devices {
		messages = append(messages, publisher.configMessage(device), publisher.stateMessage(device))
	}
	publisher.lock.Unlock()

	publisher.publish(ctx, connectionManager, messages...)
	slog.Info("Publisher.HASS_MQTT: published config and state topics", "devices", len(devices))
}

func (publisher *HomeAssistantMQTTPublisher) publish(ctx context.Context, connectionManager *autopaho.ConnectionManager, messages ...*paho.Publish) {
	if connectionManager == nil {
		return
	}
	for _, message := range messages {
		if _, err := connectionManager.Publish(ctx, message); err != nil {
			slog.Error("Publisher.HASS_MQTT: publish failed", "topic", message.Topic, "err", err)
		}
	}
}

func (publisher *HomeAssistantMQTTPublisher) sortedDevices() []*deviceSensors {
	result := make([]*deviceSensors, 0, len(publisher.devices))
	for _, device := range publisher.devices {
		result = append(result, device)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}

func (publisher *HomeAssistantMQTTPublisher) discoveryPrefix() string {
	if publisher.config == nil || publisher.config.DiscoveryPrefix == "" {
		return defaultDiscoveryPrefix
	}
	return publisher.config.DiscoveryPrefix
}

func (publisher *HomeAssistantMQTTPublisher) configMessage(device *deviceSensors) *paho.Publish {
	payloadBytes, _ := json.Marshal(buildDiscoveryMessage(publisher.discoveryPrefix(), device))
	return &paho.Publish{
		QoS:     0,
		Retain:  true,
		Topic:   deviceTopic(publisher.discoveryPrefix(), device.id, "config"),
		Payload: payloadBytes,
	}
}

func (publisher *HomeAssistantMQTTPublisher) stateMessage(device *deviceSensors) *paho.Publish {
	payloadBytes, _ := json.Marshal(buildStatePayload(device))
	return &paho.Publish{
		QoS:     0,
		Retain:  true,
		Topic:   deviceTopic(publisher.discoveryPrefix(), device.id, "state"),
		Payload: payloadBytes,
	}
}

func availabilityMessage(payload string) *paho.Publish {
	return &paho.Publish{
		QoS:     1,
		Retain:  true,
		Topic:   availabilityTopic,
		Payload: []byte(payload),
	}
}

func (device *deviceSensors) upsert(sensor SensorInfo) {
	if sensor.DeviceName != "" {
		device.name = sensor.DeviceName
	}
	for i := range device.sensors {
		if device.sensors[i].UniqueID == sensor.UniqueID {
			device.sensors[i] = sensor
			return
		}
	}
	device.sensors = append(device.sensors, sensor)
}

func deviceTopic(prefix, deviceID, suffix string) string {
	return fmt.Sprintf("%v/device/%v%v/%v", prefix, devicePrefix, utils.SanitizeTopicSegment(deviceID), suffix)
}

func buildDiscoveryMessage(prefix string, device *deviceSensors) hass.DeviceDiscoveryMessage {
	deviceKey := devicePrefix + utils.SanitizeTopicSegment(device.id)
	payload := hass.DeviceDiscoveryMessage{
		Device: hass.DeviceInfo{
			Identifiers:  []string{deviceKey},
			Name:         device.name,
			Manufacturer: "Wibutler",
		},
		Origin: hass.OriginInfo{
			Name: "wibutler-gateway",
		},
		Components:        make(map[string]hass.Component, len(device.sensors)),
		StateTopic:        deviceTopic(prefix, device.id, "state"),
		AvailabilityTopic: availabilityTopic,
		QOS:               0,
	}
	for _, sensor := range device.sensors {
		key := utils.SanitizeTopicSegment(sensor.UniqueID)
		// Home Assistant 会在实体名前加上设备名，这里只用数据点的标签
		name := sensor.Text
		if name == "" {
			name = sensor.Button
		}
		payload.Components[key] = hass.Component{
			Key:           key,
			Platform:      hass.PlatformBinarySensor,
			Name:          name,
			ObjectID:      devicePrefix + key,
			UniqueID:      devicePrefix + key,
			ValueTemplate: fmt.Sprintf("{{ value_json['%v'] }}", key),
			PayloadOn:     hass.StateOn,
			PayloadOff:    hass.StateOff,
		}
	}
	return payload
}

func buildStatePayload(device *deviceSensors) map[string]string {
	payload := make(map[string]string, len(device.sensors))
	for _, sensor := range device.sensors {
		state := hass.StateOff
		if sensor.On {
			state = hass.StateOn
		}
		payload[utils.SanitizeTopicSegment(sensor.UniqueID)] = state
	}
	return payload
}
