package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/dwell-core/internal/infrastructure/config"
)

// testConfig returns a valid InfluxDB configuration for testing.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "test-token",
		Org:           "dwell",
		Bucket:        "occupancy",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:19999" // Nothing listening

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for unreachable server")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{connected: false}

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	c := &Client{}
	if c.IsConnected() {
		t.Error("IsConnected() = true for zero-value client")
	}
}

func TestWriteOccupancySnapshot_NotConnected(t *testing.T) {
	// Writes on a disconnected client must be silently dropped, never panic.
	c := &Client{connected: false}
	c.WriteOccupancySnapshot("motion-hall", 12.5, 3, true, time.Now())
}

func TestWritePoint_NotConnected(t *testing.T) {
	c := &Client{connected: false}
	c.WritePoint("system_stats",
		map[string]string{"host": "dwell-01"},
		map[string]interface{}{"trackers": 3},
	)
	c.WritePointWithTime("system_stats", nil, map[string]interface{}{"trackers": 3}, time.Now())
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestFlush_NotConnected(t *testing.T) {
	c := &Client{}
	c.Flush() // No-op without a write API
}

func TestSetOnError(t *testing.T) {
	c := &Client{}

	called := make(chan error, 1)
	c.SetOnError(func(err error) {
		called <- err
	})

	errsCh := make(chan error, 1)
	go c.handleWriteErrors(errsCh)

	want := errors.New("write failed")
	errsCh <- want
	close(errsCh)

	select {
	case got := <-called:
		if !errors.Is(got, want) {
			t.Errorf("callback error = %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("error callback was not invoked")
	}
}
