package history

import (
	"errors"
	"testing"

	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.HistoryConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClient_NilSafe(t *testing.T) {
	var c *Client

	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
	c.Flush()
}

func TestAttributeValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"int64", int64(2153), 2153, true},
		{"float", 21.5, 21.5, true},
		{"string skipped", "ON", 0, false},
		{"nil skipped", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := attributeValue(tt.value)
			if got != tt.want || ok != tt.ok {
				t.Errorf("attributeValue(%v) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}
