package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

var (
	hubUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wibutler_hub_updates_total",
			Help: "Number of messages received from the hub stream.",
		},
		[]string{
			"type",
		},
	)
	buttonTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wibutler_button_transitions_total",
			Help: "Number of button state changes.",
		},
		[]string{
			"device",
			"button",
			"state",
		},
	)
	buttonSensors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wibutler_button_sensors",
			Help: "Number of registered button sensors.",
		},
	)
)

func init() {
	prometheus.MustRegister(hubUpdates, buttonTransitions, buttonSensors)
}

func ObserveHubUpdate(messageType string) {
	hubUpdates.WithLabelValues(messageType).Inc()
}

func ObserveButtonTransition(deviceID, button string, on bool) {
	state := "up"
	if on {
		state = "down"
	}
	buttonTransitions.WithLabelValues(deviceID, button, state).Inc()
}

func SetButtonSensors(count int) {
	buttonSensors.Set(float64(count))
}

// Init 启动 /metrics 服务，listen 为空时不启动
func Init(ctx context.Context, config *entity.MetricsConfig) error {
	if config == nil || config.Listen == "" {
		slog.Info("Metrics: disabled")
		return nil
	}

	listener, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return fmt.Errorf("Metrics: listen on %v failed, %v", config.Listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics: serve failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics: initialized", "listen", listener.Addr().String())
	return nil
}
