package hass

const (
	PlatformBinarySensor = "binary_sensor"

	StateOn  = "ON"
	StateOff = "OFF"
)

// DeviceDiscoveryMessage Home Assistant 设备级自动发现消息
type DeviceDiscoveryMessage struct {
	Device            DeviceInfo           `json:"device"`
	Origin            OriginInfo           `json:"origin"`
	Components        map[string]Component `json:"components"`
	StateTopic        string               `json:"state_topic"`
	AvailabilityTopic string               `json:"availability_topic,omitempty"`
	QOS               int                  `json:"qos"`
}

type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

type OriginInfo struct {
	Name            string `json:"name"`
	SoftwareVersion string `json:"sw_version,omitempty"`
	SupportUrl      string `json:"support_url,omitempty"`
}

type Component struct {
	Key           string `json:"-"`
	Platform      string `json:"platform"`
	DeviceClass   string `json:"device_class,omitempty"`
	Name          string `json:"name,omitempty"`
	ObjectID      string `json:"object_id,omitempty"`
	UniqueID      string `json:"unique_id,omitempty"`
	ValueTemplate string `json:"value_template,omitempty"`

	// binary_sensor
	PayloadOn  string `json:"payload_on,omitempty"`
	PayloadOff string `json:"payload_off,omitempty"`
}
