package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kuretru/Wibutler-Gateway/entity"
	"github.com/kuretru/Wibutler-Gateway/internal/button"
)

// WibutlerCollector 从网关获取设备并把推送分发给按键
type WibutlerCollector interface {
	button.Registrar
	Run(ctx context.Context, config *entity.CollectorConfig) error
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

func Init(ctx context.Context, config *entity.CollectorConfig) (WibutlerCollector, error) {
	if config == nil {
		return nil, fmt.Errorf("collector config is nil")
	}

	var collector WibutlerCollector
	switch config.Type {
	case "wibutler":
		collector = NewHubCollector()
	default:
		return nil, fmt.Errorf("unknown collector type %v", config.Type)
	}

	if err := collector.Run(ctx, config); err != nil {
		return nil, fmt.Errorf("Collector: run %v collector failed, %v", config.Type, err)
	}
	slog.Info("Collector: collector initialized", "type", config.Type)
	return collector, nil
}
