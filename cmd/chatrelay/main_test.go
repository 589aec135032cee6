package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mandalnilabja/chatrelay/internal/storage"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"text info", "info", "text", false},
		{"json debug", "debug", "json", false},
		{"upper case level", "WARN", "text", false},
		{"bad level", "loud", "text", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := setupLogger(&buf, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestSetupLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := setupLogger(&buf, "info", "json")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "chatrelay ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLogsCmd(t *testing.T) {
	dir := t.TempDir()
	db := dir + "/history.db"
	t.Setenv("HISTORY_DB", db)

	store, err := openHistory(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for model, age := range map[string]time.Duration{
		"deepseek-chat":     2 * time.Hour,
		"deepseek-reasoner": time.Hour,
	} {
		if err := store.LogRequest(ctx, &storage.RequestLog{
			RequestID:  "req-" + model,
			Model:      model,
			Outcome:    "relayed",
			StatusCode: 200,
			CreatedAt:  time.Now().Add(-age).UTC(),
		}); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", dir + "/config.toml", "logs", "--model", "deepseek-reasoner"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "req-deepseek-reasoner") {
		t.Errorf("missing entry in %q", out.String())
	}
	if strings.Contains(out.String(), "req-deepseek-chat") {
		t.Errorf("filter ignored: %q", out.String())
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", dir + "/config.toml", "logs", "--since", "90m"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "req-deepseek-reasoner") || strings.Contains(out.String(), "req-deepseek-chat") {
		t.Errorf("--since 90m output = %q", out.String())
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", dir + "/config.toml", "logs", "--prune", "1m"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "deleted 2 entries") {
		t.Errorf("prune output = %q", out.String())
	}
}

func TestLogsCmd_HistoryDisabled(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HISTORY_DB", "off")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", dir + "/config.toml", "logs"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error with history disabled")
	}
}
