package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // ms
	defaultKeepAlive         = 60 * time.Second
	maxReconnectInterval     = 60 * time.Second

	maxQoS         = 2
	clientIDPrefix = "aharecorder-"
)

// Status payloads published on Topics.Status.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// clientID returns the configured client ID or a generated unique one.
func clientID(cfg config.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return clientIDPrefix + uuid.NewString()
}

// connectTimeout returns the configured timeout or the default.
func connectTimeout(cfg config.MQTTConfig) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return time.Duration(cfg.ConnectTimeout) * time.Second
}

// validateBroker accepts tcp, ssl, tls, mqtt, mqtts, ws and wss URLs with a host.
func validateBroker(broker string) (*url.URL, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBroker, err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBroker, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidBroker, broker)
	}
	return u, nil
}

// buildClientOptions translates the MQTT section into paho options. Secure
// schemes get a TLS 1.2+ config; the status topic doubles as last will.
func buildClientOptions(cfg config.MQTTConfig, id string, topics Topics) (*pahomqtt.ClientOptions, error) {
	broker, err := validateBroker(cfg.Broker)
	if err != nil {
		return nil, err
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker.String())
	opts.SetClientID(id)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(connectTimeout(cfg))
	opts.SetKeepAlive(defaultKeepAlive)

	switch broker.Scheme {
	case "ssl", "tls", "mqtts", "wss":
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetWill(topics.Status(), statusOffline, 1, true)
	return opts, nil
}
