package mqtt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nerrad567/dwell-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "dwell-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "source state",
			got:      topics.SourceState("motion-hall"),
			expected: "dwell/source/motion-hall/state",
		},
		{
			name:     "all source states",
			got:      topics.AllSourceStates(),
			expected: "dwell/source/+/state",
		},
		{
			name:     "source metrics",
			got:      topics.SourceMetrics("motion-hall"),
			expected: "dwell/metrics/motion-hall",
		},
		{
			name:     "all source metrics",
			got:      topics.AllSourceMetrics(),
			expected: "dwell/metrics/+",
		},
		{
			name:     "discovery sources",
			got:      topics.DiscoverySources(),
			expected: "dwell/discovery/sources",
		},
		{
			name:     "system status",
			got:      topics.SystemStatus(),
			expected: "dwell/system/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestParseSourceStateTopic(t *testing.T) {
	tests := []struct {
		name   string
		topic  string
		wantID string
		wantOK bool
	}{
		{name: "valid", topic: "dwell/source/motion-hall/state", wantID: "motion-hall", wantOK: true},
		{name: "wrong prefix", topic: "other/source/motion-hall/state", wantOK: false},
		{name: "missing state suffix", topic: "dwell/source/motion-hall", wantOK: false},
		{name: "empty id", topic: "dwell/source//state", wantOK: false},
		{name: "nested id rejected", topic: "dwell/source/a/b/state", wantOK: false},
		{name: "metrics topic rejected", topic: "dwell/metrics/motion-hall", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseSourceStateTopic(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("ParseSourceStateTopic(%q) ok = %v, want %v", tt.topic, ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("ParseSourceStateTopic(%q) id = %q, want %q", tt.topic, id, tt.wantID)
			}
		})
	}
}

func TestParseSourceMetricsTopic(t *testing.T) {
	id, ok := ParseSourceMetricsTopic("dwell/metrics/motion-hall")
	if !ok || id != "motion-hall" {
		t.Errorf("ParseSourceMetricsTopic() = (%q, %v), want (motion-hall, true)", id, ok)
	}

	if _, ok := ParseSourceMetricsTopic("dwell/source/motion-hall/state"); ok {
		t.Error("ParseSourceMetricsTopic() accepted a source state topic")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if got := opts.ClientID; got != "dwell-test" {
		t.Errorf("ClientID = %q, want %q", got, "dwell-test")
	}

	servers := opts.Servers
	if len(servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(servers))
	}
	if servers[0].Scheme != "tcp" {
		t.Errorf("broker scheme = %q, want tcp", servers[0].Scheme)
	}
	if servers[0].Host != "127.0.0.1:1883" {
		t.Errorf("broker host = %q, want 127.0.0.1:1883", servers[0].Host)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("broker scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config to be set")
	}
}

func TestStatusPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"online":  buildOnlinePayload("dwell-test"),
		"offline": buildOfflinePayload("dwell-test"),
	} {
		t.Run(name, func(t *testing.T) {
			var msg map[string]any
			if err := json.Unmarshal([]byte(payload), &msg); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if msg["status"] != name {
				t.Errorf("status = %v, want %q", msg["status"], name)
			}
			if msg["client_id"] != "dwell-test" {
				t.Errorf("client_id = %v, want dwell-test", msg["client_id"])
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	// A client that never connected still validates inputs before touching
	// the connection.
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("dwell/metrics/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}

	big := []byte(strings.Repeat("x", maxPayloadSize+1))
	err := c.Publish("dwell/metrics/x", big, 1, false)
	if err == nil || !strings.Contains(err.Error(), "payload size") {
		t.Errorf("oversized payload error = %v, want payload size error", err)
	}
}

func TestSubscriptionBookkeeping(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("dwell/source/+/state") {
		t.Error("HasSubscription() = true for untracked topic")
	}

	c.subMu.Lock()
	c.subscriptions["dwell/source/+/state"] = subscription{topic: "dwell/source/+/state", qos: 1}
	c.subMu.Unlock()

	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}
	if !c.HasSubscription("dwell/source/+/state") {
		t.Error("HasSubscription() = false for tracked topic")
	}
}
