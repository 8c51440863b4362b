package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.ShutdownTimeout.Std() != DefaultShutdownTimeout {
		t.Errorf("Server.ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.Buffer.Capacity != DefaultBufferCapacity {
		t.Errorf("Buffer.Capacity = %d, want %d", cfg.Buffer.Capacity, DefaultBufferCapacity)
	}
	if cfg.Snapshot.Backend != BackendMemory {
		t.Errorf("Snapshot.Backend = %q, want %q", cfg.Snapshot.Backend, BackendMemory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if errors.Code(err) != "VT122" {
		t.Errorf("missing config: code = %q, want VT122 (%v)", errors.Code(err), err)
	}

	writeFile(t, tmpDir, ConfigFileName, `{
  "server": {
    "addr": "127.0.0.1:9000",
    "shutdownTimeout": "3s"
  },
  "snapshot": {
    "backend": "file",
    "dir": "snaps"
  },
  "metrics": { "enabled": false },
  "log": { "level": "debug", "format": "json" }
}
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout.Std() != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.ReadBufferSize != DefaultBufferSize {
		t.Errorf("Server.ReadBufferSize = %d, want default", cfg.Server.ReadBufferSize)
	}
	if want := filepath.Join(tmpDir, "snaps"); cfg.Snapshot.Dir != want {
		t.Errorf("Snapshot.Dir = %q, want %q", cfg.Snapshot.Dir, want)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want default", cfg.Metrics.Namespace)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, YAMLConfigFileName, `
server:
  addr: ":7000"
  shutdownTimeout: 2
  pongWait: 30s
snapshot:
  backend: s3
  bucket: trees
  prefix: dev/
  region: us-east-1
  endpoint: http://localhost:9000
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout.Std() != 2*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 2s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.PongWait.Std() != 30*time.Second {
		t.Errorf("Server.PongWait = %v, want 30s", cfg.Server.PongWait)
	}
	want := SnapshotConfig{
		Backend:  BackendS3,
		Bucket:   "trees",
		Prefix:   "dev/",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
	}
	if cfg.Snapshot != want {
		t.Errorf("Snapshot = %+v, want %+v", cfg.Snapshot, want)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"server": {"addr": ":1"}}`)
	writeFile(t, tmpDir, YAMLConfigFileName, "server:\n  addr: \":2\"\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":1" {
		t.Errorf("Server.Addr = %q, want :1 from %s", cfg.Server.Addr, ConfigFileName)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantText string
	}{
		{"bad json", "a.json", `{"server":`, "VT121", ""},
		{"bad yaml", "a.yaml", "server: [", "VT121", ""},
		{"unknown extension", "a.toml", "addr = 1", "VT123", ""},
		{"bad backend", "b.json", `{"snapshot": {"backend": "redis"}}`, "VT120", "Snapshot.Backend must be one of"},
		{"s3 without bucket", "c.json", `{"snapshot": {"backend": "s3", "region": "x"}}`, "VT120", "Snapshot.Bucket is required"},
		{"bad log level", "d.json", `{"log": {"level": "loud"}}`, "VT120", "Log.Level"},
		{"bad duration", "e.json", `{"server": {"shutdownTimeout": "soon"}}`, "VT121", ""},
		{"bad endpoint", "f.json", `{"snapshot": {"backend": "s3", "bucket": "b", "region": "r", "endpoint": "::"}}`, "VT120", "Snapshot.Endpoint must be a URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tmpDir, tt.file, tt.content)
			_, err := LoadFile(path)
			if got := errors.Code(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q (%v)", got, tt.wantCode, err)
			}
			if tt.wantText != "" {
				var ce *errors.Error
				errors.As(err, &ce)
				if !strings.Contains(ce.Detail, tt.wantText) {
					t.Errorf("Detail = %q, want it to contain %q", ce.Detail, tt.wantText)
				}
			}
		})
	}

	_, err := LoadFile(filepath.Join(tmpDir, "missing.json"))
	if errors.Code(err) != "VT122" {
		t.Errorf("missing file: code = %q, want VT122", errors.Code(err))
	}
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"server": {"addr": ":1"}}`)

	t.Setenv(EnvAddr, ":4444")
	t.Setenv(EnvLogLevel, "WARN")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":4444" {
		t.Errorf("Server.Addr = %q, want :4444", cfg.Server.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}

	t.Setenv(EnvLogLevel, "chatty")
	if _, err := LoadOrDefault(tmpDir); errors.Code(err) != "VT120" {
		t.Errorf("invalid env override: code = %q, want VT120", errors.Code(err))
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should return false for empty dir")
	}
	writeFile(t, tmpDir, YAMLConfigFileName, "{}\n")
	if !Exists(tmpDir) {
		t.Error("Exists should return true when vtree.yaml exists")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, tmpDir, ConfigFileName, "{}")

	root, err := FindProjectRoot(subDir)
	if err != nil {
		t.Fatalf("FindProjectRoot failed: %v", err)
	}

	absRoot, _ := filepath.Abs(tmpDir)
	if root != absRoot {
		t.Errorf("FindProjectRoot = %q, want %q", root, absRoot)
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	if err := d.UnmarshalJSON([]byte(`"1m30s"`)); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", d)
	}
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1m30s"` {
		t.Errorf("MarshalJSON = %s", data)
	}
	if err := d.UnmarshalJSON([]byte(`true`)); err == nil {
		t.Error("bool should not parse as a duration")
	}
}
