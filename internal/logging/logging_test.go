package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoggerWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(logrus.StandardLogger().Out)

	if err := Configure("debug", "json"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	logger := NewLogger("checkout")
	logger.Info("Checkout started", Fields{"payment_id": "payment_1"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}

	if entry["component"] != "checkout" {
		t.Errorf("component = %v, want checkout", entry["component"])
	}
	if entry["payment_id"] != "payment_1" {
		t.Errorf("payment_id = %v, want payment_1", entry["payment_id"])
	}
	if entry["msg"] != "Checkout started" {
		t.Errorf("msg = %v, want Checkout started", entry["msg"])
	}
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := Configure("loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(logrus.StandardLogger().Out)

	if err := Configure("info", "text"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	NewLogger("test").Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug entry written at info level: %q", buf.String())
	}
}
