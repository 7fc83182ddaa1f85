package collector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kuretru/Wibutler-Gateway/entity"
	"github.com/kuretru/Wibutler-Gateway/internal/button"
	"github.com/kuretru/Wibutler-Gateway/internal/database"
	"github.com/kuretru/Wibutler-Gateway/internal/metrics"
)

const (
	loginPath   = "/api/login"
	devicesPath = "/api/devices"
	streamPath  = "/api/stream/"

	defaultReconnectInterval = 10 * time.Second
	maxReconnectInterval     = 5 * time.Minute
	defaultPongWait          = 60 * time.Second
	writeWait                = 10 * time.Second
)

type HubCollector struct {
	config     *entity.WibutlerCollectorConfig
	baseURL    *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
	token      string

	listenerLock sync.RWMutex
	listeners    []button.Listener

	connLock sync.Mutex
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHubCollector() *HubCollector {
	return &HubCollector{}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"sessionToken"`
}

type devicesResponse struct {
	Devices []entity.Device `json:"devices"`
}

type StreamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (collector *HubCollector) Run(ctx context.Context, config *entity.CollectorConfig) error {
	if config.Wibutler == nil {
		return fmt.Errorf("Collector.Wibutler: wibutler config is nil")
	}
	collector.config = config.Wibutler

	u, err := url.Parse(strings.TrimRight(config.Wibutler.URL, "/"))
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: parse hub url failed: %v, %v", config.Wibutler.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("Collector.Wibutler: unsupported hub url scheme %v", u.Scheme)
	}
	collector.baseURL = u

	tlsConfig := &tls.Config{InsecureSkipVerify: config.Wibutler.InsecureSkipVerify}
	collector.httpClient = &http.Client{
		Timeout:   30 * time.Second,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}
	collector.dialer = &websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
		TLSClientConfig:  tlsConfig,
	}

	if err = collector.login(ctx); err != nil {
		return err
	}
	if err = collector.refreshDevices(ctx); err != nil {
		return err
	}

	slog.Info("Collector.Wibutler: initialized", "server", collector.baseURL.String())
	return nil
}

// Start 开始接收推送，应在所有监听者注册之后调用
func (collector *HubCollector) Start(ctx context.Context) {
	if collector.cancel != nil {
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	collector.cancel = cancel
	collector.done = make(chan struct{})
	go collector.runStream(streamCtx)
}

func (collector *HubCollector) Stop(_ context.Context) {
	if collector.cancel != nil {
		collector.cancel()
		<-collector.done
	}
	slog.Info("Collector.Wibutler: stopped")
}

// RegisterListener 注册后即可收到之后的所有推送
func (collector *HubCollector) RegisterListener(listener button.Listener) {
	collector.listenerLock.Lock()
	defer collector.listenerLock.Unlock()
	collector.listeners = append(collector.listeners, listener)
}

func (collector *HubCollector) dispatch(deviceID string, components []entity.Component) {
	collector.listenerLock.RLock()
	listeners := make([]button.Listener, len(collector.listeners))
	copy(listeners, collector.listeners)
	collector.listenerLock.RUnlock()

	for _, listener := range listeners {
		listener.OnHubUpdate(deviceID, components)
	}
}

func (collector *HubCollector) login(ctx context.Context) error {
	body, _ := json.Marshal(loginRequest{
		Username: collector.config.Username,
		Password: collector.config.Password,
	})
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, collector.baseURL.String()+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: create login request failed, %v", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := collector.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: login failed, %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("Collector.Wibutler: login failed, status %v", response.StatusCode)
	}

	var result loginResponse
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return fmt.Errorf("Collector.Wibutler: decode login response failed, %v", err)
	}
	if result.SessionToken == "" {
		return fmt.Errorf("Collector.Wibutler: login response has no session token")
	}
	collector.token = result.SessionToken
	slog.Debug("Collector.Wibutler: logged in", "username", collector.config.Username)
	return nil
}

func (collector *HubCollector) refreshDevices(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, collector.baseURL.String()+devicesPath, nil)
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: create devices request failed, %v", err)
	}
	request.Header.Set("Authorization", "Bearer "+collector.token)

	response, err := collector.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: fetch devices failed, %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("Collector.Wibutler: fetch devices failed, status %v", response.StatusCode)
	}

	var result devicesResponse
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return fmt.Errorf("Collector.Wibutler: decode devices failed, %v", err)
	}
	database.SetDevices(ctx, result.Devices)
	slog.Info("Collector.Wibutler: devices loaded", "count", len(result.Devices))
	return nil
}

func (collector *HubCollector) streamURL() string {
	u := *collector.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + streamPath + url.PathEscape(collector.token)
	return u.String()
}

func (collector *HubCollector) runStream(ctx context.Context) {
	defer close(collector.done)

	for {
		err := collector.readStream(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Error("Collector.Wibutler: stream disconnected", "err", err)
		if !collector.reconnect(ctx) {
			return
		}
	}
}

// reconnect 按退避间隔重新登录，断线期间的推送已丢失，成功后用完整设备列表重新同步
func (collector *HubCollector) reconnect(ctx context.Context) bool {
	interval := collector.config.ReconnectInterval.Duration
	if interval <= 0 {
		interval = defaultReconnectInterval
	}
	for backoff := interval; ; backoff = min(backoff*2, maxReconnectInterval) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		err := collector.login(ctx)
		if err == nil {
			err = collector.refreshDevices(ctx)
		}
		if err == nil {
			break
		}
		slog.Error("Collector.Wibutler: reconnect failed", "err", err, "waited", backoff)
	}

	for deviceID, device := range database.GetAllDevices(ctx) {
		collector.dispatch(deviceID, device.Components)
	}
	return true
}

func (collector *HubCollector) readStream(ctx context.Context) error {
	conn, _, err := collector.dialer.DialContext(ctx, collector.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("Collector.Wibutler: dial stream failed, %v", err)
	}
	collector.connLock.Lock()
	collector.conn = conn
	collector.connLock.Unlock()
	defer collector.closeConn()

	pongWait := collector.config.Keepalive.Duration
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go collector.keepalive(ctx, conn, pongWait/2, stop)
	slog.Info("Collector.Wibutler: stream connected")

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			continue
		}
		collector.handleMessage(ctx, payload)
	}
}

// keepalive 定期发送 ping，半开连接会因收不到 pong 而读超时
func (collector *HubCollector) keepalive(ctx context.Context, conn *websocket.Conn, period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			collector.closeConn()
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("Collector.Wibutler: ping failed", "err", err)
				collector.closeConn()
				return
			}
		}
	}
}

func (collector *HubCollector) closeConn() {
	collector.connLock.Lock()
	defer collector.connLock.Unlock()
	if collector.conn != nil {
		_ = collector.conn.Close()
		collector.conn = nil
	}
}

func (collector *HubCollector) handleMessage(ctx context.Context, payload []byte) {
	var message StreamMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		slog.Warn("Collector.Wibutler: StreamMessage unmarshal failed", "err", err)
		return
	}
	metrics.ObserveHubUpdate(message.Type)

	switch message.Type {
	case "DeviceUpdate", "DeviceUpdated":
	default:
		slog.Debug("Collector.Wibutler: message ignored", "type", message.Type)
		return
	}

	var device entity.Device
	if err := json.Unmarshal(message.Data, &device); err != nil {
		slog.Warn("Collector.Wibutler: device update unmarshal failed", "err", err)
		return
	}
	if device.ID == "" {
		slog.Warn("Collector.Wibutler: device update without id")
		return
	}
	database.MergeDevice(ctx, &device)
	collector.dispatch(device.ID, device.Components)
}
