package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

type Config struct {
	Log        entity.LogConfig          `yaml:"log"`
	Collector  *entity.CollectorConfig   `yaml:"collector"`
	Publishers []*entity.PublisherConfig `yaml:"publishers"`
	Metrics    *entity.MetricsConfig     `yaml:"metrics"`
}

func parseConfig(configBytes []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return nil, err
	}
	if config.Collector == nil {
		return nil, fmt.Errorf("collector section is missing")
	}
	config.applyDefaults()
	return &config, nil
}

func (config *Config) applyDefaults() {
	if config.Collector.Type == "" {
		config.Collector.Type = "wibutler"
	}
	if wibutler := config.Collector.Wibutler; wibutler != nil && wibutler.ReconnectInterval.Duration <= 0 {
		wibutler.ReconnectInterval.Duration = 10 * time.Second
	}
	if wibutler := config.Collector.Wibutler; wibutler != nil && wibutler.Keepalive.Duration <= 0 {
		wibutler.Keepalive.Duration = 60 * time.Second
	}
	for _, publisher := range config.Publishers {
		if publisher.MQTT == nil {
			continue
		}
		if publisher.MQTT.ClientID == "" {
			publisher.MQTT.ClientID = "wibutler-gateway-" + uuid.New().String()
		}
		if publisher.MQTT.Keepalive == 0 {
			publisher.MQTT.Keepalive = 30
		}
		if publisher.MQTT.DiscoveryPrefix == "" {
			publisher.MQTT.DiscoveryPrefix = "homeassistant"
		}
		if publisher.MQTT.RepublishInterval.Duration <= 0 {
			publisher.MQTT.RepublishInterval.Duration = 5 * time.Minute
		}
	}
}

func (config *Config) logLevel() slog.Level {
	switch strings.ToLower(config.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
