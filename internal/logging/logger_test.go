package logging

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer SetLogger(zap.NewNop())

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogExchange(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	LogExchange("id-1", "10.0.0.2:522", "$dat", "upd01-", 42, 10*time.Millisecond, nil)
	LogExchange("id-2", "10.0.0.2:522", "$dmy", "ack", 0, time.Second, errors.New("timeout"))

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("success level = %v, want debug", entries[0].Level)
	}
	if got := entries[0].ContextMap()["exchange_id"]; got != "id-1" {
		t.Errorf("exchange_id = %v, want id-1", got)
	}

	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("failure level = %v, want warn", entries[1].Level)
	}
	if got := entries[1].ContextMap()["error"]; got != "timeout" {
		t.Errorf("error field = %v, want timeout", got)
	}
}

func TestLogRawBytes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	LogRawBytes("response", []byte("01$cr00\r\n"))

	entries := logs.AllUntimed()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ascii"] != "01$cr00.." {
		t.Errorf("ascii = %v, want %q", fields["ascii"], "01$cr00..")
	}
	if fields["hex"] != "303124637230300d0a" {
		t.Errorf("hex = %v", fields["hex"])
	}
}

func TestDumpTruncation(t *testing.T) {
	data := make([]byte, maxDumpBytes+10)
	for i := range data {
		data[i] = 'a'
	}

	if got := hexDump(data); len(got) != maxDumpBytes*2+3 {
		t.Errorf("hexDump length = %d, want %d", len(got), maxDumpBytes*2+3)
	}
	if got := asciiDump(data); len(got) != maxDumpBytes {
		t.Errorf("asciiDump length = %d, want %d", len(got), maxDumpBytes)
	}
}
