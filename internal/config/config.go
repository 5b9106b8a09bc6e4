package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the dashboard client needs to reach its two
// collaborators: the REST backend and the MQTT broker.
type Config struct {
	// Backend API
	APIBaseURL  string
	HTTPTimeout time.Duration
	TokenFile   string

	// MQTT broker
	BrokerURL        string
	AnomalyTopic     string
	PresenceDeviceID string
	KeepAlive        time.Duration
	ConnectTimeout   time.Duration
	ReconnectDelay   time.Duration
	HeartbeatTimeout time.Duration

	// Polling
	CountsInterval    time.Duration
	ShipmentsInterval time.Duration

	// Notifications
	ToastTTL time.Duration
}

// Load reads the config from environment variables, falling back to the
// defaults the original deployment used.
func Load() *Config {
	return &Config{
		APIBaseURL:  envOr("API_BASE_URL", "http://127.0.0.1:8000/api"),
		HTTPTimeout: envDuration("HTTP_TIMEOUT", 10*time.Second),
		TokenFile:   envOr("TOKEN_FILE", "tokens.json"),

		BrokerURL:        envOr("MQTT_BROKER_URL", "ws://mqtt.eclipseprojects.io:80/mqtt"),
		AnomalyTopic:     envOr("MQTT_ANOMALY_TOPIC", "manufacturing/anomalies"),
		PresenceDeviceID: os.Getenv("PRESENCE_DEVICE_ID"),
		KeepAlive:        envDuration("MQTT_KEEPALIVE", 60*time.Second),
		ConnectTimeout:   envDuration("MQTT_CONNECT_TIMEOUT", 30*time.Second),
		ReconnectDelay:   envDuration("MQTT_RECONNECT_DELAY", 5*time.Second),
		HeartbeatTimeout: envDuration("HEARTBEAT_TIMEOUT", 15*time.Second),

		CountsInterval:    envDuration("COUNTS_POLL_INTERVAL", 5*time.Second),
		ShipmentsInterval: envDuration("SHIPMENTS_POLL_INTERVAL", 30*time.Second),

		ToastTTL: envDuration("TOAST_TTL", 5*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration accepts either a Go duration string ("30s") or a plain
// number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
