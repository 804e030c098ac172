package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/provider"
	"github.com/flemzord/recall/internal/telemetry"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "recall dev") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	good := writeConfig(t, "version: \"1\"\nembedding:\n  dimension: 64\n")
	out, err := execute(t, "", "config", "check", good)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "64 dimensions") {
		t.Errorf("output = %q", out)
	}

	bad := writeConfig(t, "version: \"2\"\n")
	if _, err := execute(t, "", "config", "check", bad); err == nil || !strings.Contains(err.Error(), "unsupported version") {
		t.Errorf("config check(bad) err = %v", err)
	}
}

func TestExtractCmd(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "version: \"1\"\n")
	out, err := execute(t, "", "--config", cfg, "extract", "I love hiking in the Alps. What time is it")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "0.70\tI love hiking in the Alps") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "", "--config", cfg, "extract", "the weather is nice today")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "No facts found.") {
		t.Errorf("output = %q", out)
	}
}

func TestChatCmd_RemembersFacts(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "version: \"1\"\nlog:\n  level: error\nembedding:\n  dimension: 32\n")
	stdin := strings.Join([]string{
		"hello",
		"I love green tea",
		"/memories",
		"/history",
		"/quit",
		"never sent",
	}, "\n")

	out, err := execute(t, stdin, "--config", cfg, "chat", "--user", "alice", "--session", "s1")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	for _, want := range []string{
		provider.CannedGreeting,
		"(remembered 1 new fact(s))",
		"- I love green tea (accessed",
		"user: hello",
		"assistant: " + provider.CannedGreeting,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "never sent") {
		t.Error("input after /quit was processed")
	}
}

func TestChatCmd_SQLiteHistory(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "history.db")
	cfg := writeConfig(t, "version: \"1\"\nlog:\n  level: error\nhistory:\n  backend: sqlite\n  sqlite:\n    path: "+db+"\n")

	if _, err := execute(t, "first message\n", "--config", cfg, "chat", "--session", "persisted"); err != nil {
		t.Fatalf("first chat: %v", err)
	}
	out, err := execute(t, "/history\n", "--config", cfg, "chat", "--session", "persisted")
	if err != nil {
		t.Fatalf("second chat: %v", err)
	}
	if !strings.Contains(out, "user: first message") {
		t.Errorf("history not persisted:\n%s", out)
	}
}

func TestOpenHistory_HealthChecks(t *testing.T) {
	t.Parallel()

	a := &app{logger: slog.Default()}
	defer func() { _ = a.Close(context.Background()) }()

	cfg := &config.Config{}
	cfg.History.Backend = config.HistorySQLite
	cfg.History.SQLite.Path = filepath.Join(t.TempDir(), "history.db")
	h, err := a.openHistory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openHistory(sqlite): %v", err)
	}
	p, ok := h.(telemetry.Pinger)
	if !ok {
		t.Fatalf("sqlite history %T is not health-checkable", h)
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	cfg.History.Backend = config.HistoryMemory
	h, err = a.openHistory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openHistory(memory): %v", err)
	}
	if _, ok := h.(telemetry.Pinger); ok {
		t.Errorf("in-memory history %T should not register a health check", h)
	}
}

func TestChatCmd_AnonymousMemories(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "version: \"1\"\nlog:\n  level: error\n")
	out, err := execute(t, "/memories\n/forget\n", "--config", cfg, "chat")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out, "Memories need a user") != 2 {
		t.Errorf("output = %q", out)
	}
}
