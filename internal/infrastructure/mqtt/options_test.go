package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker config.MQTTBrokerConfig
		want   string
	}{
		{broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883}, want: "tcp://localhost:1883"},
		{broker: config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true}, want: "ssl://broker.lan:8883"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.broker); got != tt.want {
			t.Errorf("brokerURL(%+v) = %q, want %q", tt.broker, got, tt.want)
		}
	}
}

func TestNewClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "home", Password: "secret"}
	cfg.Broker.TLS = true

	opts := newClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != cfg.Broker.ClientID || !opts.CleanSession || !opts.AutoReconnect {
		t.Errorf("ClientID = %q, CleanSession = %v, AutoReconnect = %v", opts.ClientID, opts.CleanSession, opts.AutoReconnect)
	}
	if opts.Username != "home" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil with TLS enabled")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}

	if !opts.WillEnabled || opts.WillTopic != presenceTopic || !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will = %v %q retained=%v qos=%d", opts.WillEnabled, opts.WillTopic, opts.WillRetained, opts.WillQos)
	}
	var will presence
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if will.Status != presenceOffline || will.Reason != reasonConnection || will.ClientID != cfg.Broker.ClientID {
		t.Errorf("will = %+v", will)
	}
}

func TestNewClientOptions_Anonymous(t *testing.T) {
	opts := newClientOptions(testConfig())
	if opts.Username != "" || opts.Servers[0].Scheme != "tcp" {
		t.Errorf("Username = %q, scheme = %q", opts.Username, opts.Servers[0].Scheme)
	}
}

func TestPresencePayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	var online map[string]any
	if err := json.Unmarshal(presencePayload("home-1", presenceOnline, "", at), &online); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "home-1" || online["timestamp"] != "2026-03-01T11:00:00Z" {
		t.Errorf("online = %v", online)
	}
	if _, ok := online["reason"]; ok {
		t.Error("online presence carries a reason")
	}

	var offline presence
	if err := json.Unmarshal(presencePayload("home-1", presenceOffline, reasonShutdown, at), &offline); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if offline.Reason != reasonShutdown {
		t.Errorf("offline reason = %q", offline.Reason)
	}
}
