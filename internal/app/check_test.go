package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck_SummarizesSectionsAndSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.toml")
	spool := filepath.Join(t.TempDir(), "spool.pb")
	raw := `
[global]
host = "web-1"
prefix = "prod"

[[sink]]
type = "proto"
path = "` + spool + `"

[[metrics.cpu]]
[[metrics.cpu]]
per_core = true

[[metrics.port]]
ports = [22]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if err := Check(path, &out); err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		`config ok: host=web-1 prefix="prod" interval=15s`,
		"sinks: proto:" + spool,
		"workers: cpu=2\nworkers: port=1\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
	if _, err := os.Stat(spool); !os.IsNotExist(err) {
		t.Fatalf("check must not open sinks, stat err=%v", err)
	}
}

func TestCheck_ReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.toml")
	if err := os.WriteFile(path, []byte("[[metrics.port]]\nports = [70000]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	err := Check(path, &out)
	if err == nil || !strings.Contains(err.Error(), "metrics.port[0].ports[0]") {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no summary for invalid config, got %q", out.String())
	}
}
