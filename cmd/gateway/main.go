package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuretru/Wibutler-Gateway/internal/button"
	"github.com/kuretru/Wibutler-Gateway/internal/collector"
	"github.com/kuretru/Wibutler-Gateway/internal/database"
	"github.com/kuretru/Wibutler-Gateway/internal/metrics"
	"github.com/kuretru/Wibutler-Gateway/internal/publisher"
)

func main() {
	config := loadConfig()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.logLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database.Init(ctx)
	if err := metrics.Init(ctx, config.Metrics); err != nil {
		slog.Error("Gateway: init metrics failed", "err", err)
		os.Exit(1)
	}
	if err := publisher.Init(ctx, config.Publishers); err != nil {
		slog.Error("Gateway: init publishers failed", "err", err)
		os.Exit(1)
	}
	hub, err := collector.Init(ctx, config.Collector)
	if err != nil {
		slog.Error("Gateway: init collector failed", "err", err)
		os.Exit(1)
	}

	sensors := button.Setup(database.GetAllDevices(ctx), hub, publisher.Notifier{})
	hub.Start(ctx)
	slog.Info("Gateway: started", "sensors", len(sensors))

	<-ctx.Done()
	slog.Info("Received shutdown signal, exiting gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Stop(shutdownCtx)
	publisher.Stop(shutdownCtx)
}

func loadConfig() *Config {
	configFilePath := flag.String("config", "./configs/gateway.yaml", "Config file path")
	flag.Parse()
	if configFilePath == nil || *configFilePath == "" {
		_, _ = fmt.Fprintf(os.Stderr, "Config file not provide")
		os.Exit(2)
	}
	if _, err := os.Stat(*configFilePath); err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintf(os.Stderr, "Config file not exist")
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Stat config file failed, %v", err)
		}
		os.Exit(3)
	}

	configBytes, err := os.ReadFile(*configFilePath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Read config file failed, %v", err)
		os.Exit(3)
	}
	config, err := parseConfig(configBytes)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Unmarshal config file failed, %v", err)
		os.Exit(3)
	}
	return config
}
