package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rundemo/rundemo/pkg/models"
	"github.com/rundemo/rundemo/pkg/tracker"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"K_SERVICE", "K_REVISION", "K_CONFIGURATION", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "PORT"} {
		t.Setenv(k, "")
	}
	dbPath := filepath.Join(t.TempDir(), "usage.db")
	t.Setenv("RUNDEMO_DB_PATH", dbPath)
	return dbPath
}

func TestInfoCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("K_SERVICE", "demo")
	t.Setenv("K_REVISION", "demo-00002")

	out, err := run(t, "info")
	if err != nil {
		t.Fatal(err)
	}
	var snap models.InfoSnapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if snap.Service != "demo" || snap.Revision != "demo-00002" || snap.Configuration != "local" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestStressCommand(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "stress", "-n", "1000")
	if err != nil {
		t.Fatal(err)
	}
	var res models.StressResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Iterations != 1000 {
		t.Errorf("expected 1000 iterations, got %d", res.Iterations)
	}

	if _, err := run(t, "stress", "-n", "0"); err == nil {
		t.Error("expected error for zero iterations")
	}
}

func TestStatsCommand(t *testing.T) {
	dbPath := isolateEnv(t)

	out, err := run(t, "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No usage data found.") {
		t.Errorf("unexpected output: %q", out)
	}

	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = tr.Record(context.Background(), models.UsageRecord{
		RequestID: "req-1", Model: "gpt-3.5-turbo", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15,
		CreatedAt: time.Now().UTC(),
	})
	tr.Close()

	out, err = run(t, "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gpt-3.5-turbo") || !strings.Contains(out, "15") {
		t.Errorf("expected summary row, got %q", out)
	}

	out, err = run(t, "stats", "--recent", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "req-1") {
		t.Errorf("expected recent row, got %q", out)
	}

	out, err = run(t, "stats", "--since", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ": 15") {
		t.Errorf("expected total, got %q", out)
	}
}

func TestSecretsGetRequiresName(t *testing.T) {
	isolateEnv(t)

	if _, err := run(t, "secrets", "get"); err == nil {
		t.Error("expected argument error")
	}
}
