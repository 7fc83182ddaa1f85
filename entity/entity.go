package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kuretru/Wibutler-Gateway/internal/utils"
)

type WibutlerCollectorConfig struct {
	URL                string   `yaml:"url"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	ReconnectInterval  Duration `yaml:"reconnect_interval"`
	Keepalive          Duration `yaml:"keepalive"`
}

type CollectorConfig struct {
	Type     string                   `yaml:"type"`
	Wibutler *WibutlerCollectorConfig `yaml:"wibutler"`
}

type MQTTPublisherConfig struct {
	URL               string   `yaml:"url"`
	Keepalive         uint16   `yaml:"keepalive"`
	ClientID          string   `yaml:"client_id"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DiscoveryPrefix   string   `yaml:"discovery_prefix"`
	RepublishInterval Duration `yaml:"republish_interval"`
}

type PublisherConfig struct {
	Type string               `yaml:"type"`
	MQTT *MQTTPublisherConfig `yaml:"mqtt"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration 支持 "30s"、"5m" 这类写法
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(data []byte) error {
	text := string(bytes.Trim(bytes.TrimSpace(data), `"'`))
	if text == "" {
		d.Duration = 0
		return nil
	}
	value, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q, %v", text, err)
	}
	d.Duration = value
	return nil
}

// Device Wibutler 网关上的设备
type Device struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Components []Component `json:"components"`
}

func (d *Device) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		Name       string          `json:"name"`
		Components []Component     `json:"components"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID = utils.ParseStringOrEmpty(raw.ID)
	d.Name = raw.Name
	d.Components = raw.Components
	return nil
}

// Component 设备的一个数据点，例如 SWT、BTN_0
type Component struct {
	Name  string          `json:"name"`
	Text  string          `json:"text"`
	Value json.RawMessage `json:"value,omitempty"`
}

// StringValue 按字符串读取 value，缺失或 null 时为空
func (c Component) StringValue() string {
	return utils.ParseStringOrEmpty(c.Value)
}
