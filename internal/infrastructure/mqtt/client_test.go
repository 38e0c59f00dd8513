package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "geogate-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"security event", Topics{}.SecurityEvent("session_revoked"), "geogate/security/session_revoked"},
		{"sanitized event", Topics{}.SecurityEvent("a/b+c#"), "geogate/security/a_b_c_"},
		{"empty event", Topics{}.SecurityEvent(""), "geogate/security/unknown"},
		{"all security", Topics{}.AllSecurityEvents(), "geogate/security/+"},
		{"system status", Topics{}.SystemStatus(), "geogate/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "gate", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg, clientID(cfg))

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "geogate-test" {
		t.Errorf("ClientID = %q, want geogate-test", opts.ClientID)
	}
	if opts.Username != "gate" || opts.Password != "secret" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Error("TLS config should be set with minimum version")
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("auto reconnect and connect retry should be enabled")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "geogate-test")
	configureLWT(opts, "geogate-test")

	if !opts.WillEnabled || opts.WillTopic != "geogate/system/status" || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), `"unexpected_disconnect"`) {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

func TestStatusPayload(t *testing.T) {
	var online gateStatus
	if err := json.Unmarshal(statusPayload("gw", statusOnline, ""), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if online.Service != "geogate" || online.Status != "online" || online.ClientID != "gw" || online.Reason != "" {
		t.Errorf("online status = %+v", online)
	}

	var offline gateStatus
	if err := json.Unmarshal(statusPayload("gw", statusOffline, reasonShutdown), &offline); err != nil {
		t.Fatalf("offline payload: %v", err)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" || offline.Timestamp.IsZero() {
		t.Errorf("offline status = %+v", offline)
	}
}

func TestClientID(t *testing.T) {
	if got := clientID(testConfig()); got != "geogate-test" {
		t.Errorf("clientID() = %q, want configured id", got)
	}

	cfg := testConfig()
	cfg.Broker.ClientID = ""
	a, b := clientID(cfg), clientID(cfg)
	if !strings.HasPrefix(a, "geogate-") || len(a) != len("geogate-")+8 {
		t.Errorf("generated id = %q, want geogate-<8 chars>", a)
	}
	if a == b {
		t.Errorf("generated ids collide: %q", a)
	}
}

func TestEventQoS(t *testing.T) {
	for _, tt := range []struct {
		configured int
		want       byte
	}{
		{-1, 0}, {0, 0}, {1, 1}, {2, 2}, {7, 2},
	} {
		cfg := testConfig()
		cfg.QoS = tt.configured
		if got := eventQoS(cfg); got != tt.want {
			t.Errorf("eventQoS(%d) = %d, want %d", tt.configured, got, tt.want)
		}
	}
}

func TestBuildClientOptions_ReconnectFallbacks(t *testing.T) {
	cfg := testConfig()
	cfg.Reconnect = config.MQTTReconnectConfig{}

	opts := buildClientOptions(cfg, "gw")
	if opts.ConnectRetryInterval != fallbackRetryDelay || opts.MaxReconnectInterval != fallbackMaxDelay {
		t.Errorf("retry = %v, max = %v; want fallbacks", opts.ConnectRetryInterval, opts.MaxReconnectInterval)
	}
	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("scheme = %q, want tcp", opts.Servers[0].Scheme)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 0, ErrInvalidTopic},
		{"bad qos", "geogate/x", nil, 3, ErrInvalidQoS},
		{"oversized", "geogate/x", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"not connected", "geogate/x", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := c.PublishSecurityEvent("login", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishSecurityEvent() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_NilSafety(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}

	idle := &Client{}
	if err := idle.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := idle.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}
