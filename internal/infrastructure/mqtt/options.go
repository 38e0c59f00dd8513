package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultPublishTimeout  = 5 * time.Second
	defaultKeepAlive       = 60 * time.Second
	disconnectQuiesceMilli = 1000

	maxQoS = 2

	// Reconnect delays used when the config leaves them at zero.
	fallbackRetryDelay = 2 * time.Second
	fallbackMaxDelay   = 60 * time.Second
)

// clientID returns the configured client id, or a per-process
// "geogate-<uuid>" so two gates on one broker never evict each other.
func clientID(cfg config.MQTTConfig) string {
	if cfg.Broker.ClientID != "" {
		return cfg.Broker.ClientID
	}
	return "geogate-" + uuid.NewString()[:8]
}

// eventQoS clamps the configured QoS for security events to what the
// protocol allows. Status messages always go out at QoS 1.
func eventQoS(cfg config.MQTTConfig) byte {
	switch {
	case cfg.QoS <= 0:
		return 0
	case cfg.QoS >= maxQoS:
		return maxQoS
	default:
		return byte(cfg.QoS)
	}
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// buildClientOptions maps the mqtt config section onto paho options.
// The gate only publishes, so sessions are clean and nothing is subscribed.
func buildClientOptions(cfg config.MQTTConfig, id string) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(id).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(secondsOr(cfg.Reconnect.InitialDelay, fallbackRetryDelay)).
		SetMaxReconnectInterval(secondsOr(cfg.Reconnect.MaxDelay, fallbackMaxDelay)).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// configureLWT has the broker mark the gate offline if it vanishes
// without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, id string) {
	opts.SetBinaryWill(Topics{}.SystemStatus(), statusPayload(id, statusOffline, reasonUnexpected), 1, true)
}
