package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// mapOverrides returns a fixed override document.
type mapOverrides map[string]any

func (m mapOverrides) Load() (map[string]any, error) { return m, nil }

func TestOverrideSingleFlagChangesOnlyThatFlag(t *testing.T) {
	defaults := loadBase(t, baseEnv())

	cfg, err := Load(mapResolver(baseEnv()), mapOverrides{
		"feature_flags": map[string]any{"DASHBOARD_RBAC": true},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.FeatureFlags["DASHBOARD_RBAC"] {
		t.Fatal("DASHBOARD_RBAC should be enabled by the override")
	}
	for name, enabled := range defaults.FeatureFlags {
		if name == "DASHBOARD_RBAC" {
			continue
		}
		if cfg.FeatureFlags[name] != enabled {
			t.Fatalf("flag %s changed unexpectedly: %t -> %t", name, enabled, cfg.FeatureFlags[name])
		}
	}
}

func TestMissingOverrideFileLeavesDefaults(t *testing.T) {
	defaults := loadBase(t, baseEnv())

	missing := FileOverrides{Path: filepath.Join(t.TempDir(), "panorama_config_docker.yaml")}
	cfg, err := Load(mapResolver(baseEnv()), missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !reflect.DeepEqual(cfg, defaults) {
		t.Fatalf("config with absent override differs from defaults:\n%+v\n%+v", cfg, defaults)
	}
}

func TestOverrideReplacesKnownKeys(t *testing.T) {
	cfg, err := Load(mapResolver(baseEnv()), mapOverrides{
		"database_uri":    "postgresql://ro:ro@replica:5432/d",
		"guest_role_name": "Viewer",
		"http_port":       "9001",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if want := "postgresql://ro:ro@replica:5432/d"; cfg.DatabaseURI != want {
		t.Fatalf("database URI = %q, want %q", cfg.DatabaseURI, want)
	}
	if cfg.GuestRoleName != "Viewer" {
		t.Fatalf("guest role = %q, want Viewer", cfg.GuestRoleName)
	}
	if cfg.HTTPPort != "9001" {
		t.Fatalf("http port = %q, want 9001", cfg.HTTPPort)
	}
}

func TestOverridePartialStructKeepsOtherFields(t *testing.T) {
	cfg, err := Load(mapResolver(baseEnv()), mapOverrides{
		"task_queue": map[string]any{"task_acks_late": true},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.TaskQueue.TaskAcksLate {
		t.Fatal("task_acks_late should be overridden to true")
	}
	if want := "redis://redis:6379/0"; cfg.TaskQueue.BrokerURL != want {
		t.Fatalf("broker URL lost by partial override: %q", cfg.TaskQueue.BrokerURL)
	}
}

func TestOverrideUnknownKeysRetained(t *testing.T) {
	cfg, err := Load(mapResolver(baseEnv()), mapOverrides{
		"smtp_host": "mail.internal",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	got, ok := cfg.Extra["smtp_host"]
	if !ok {
		t.Fatal("unknown override key was dropped")
	}
	if got != "mail.internal" {
		t.Fatalf("extra key = %v, want mail.internal", got)
	}
}

func TestFileOverridesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panorama_config_docker.yaml")
	doc := "guest_role_name: Viewer\nfeature_flags:\n  THUMBNAILS: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	cfg, err := Load(mapResolver(baseEnv()), FileOverrides{Path: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.GuestRoleName != "Viewer" {
		t.Fatalf("guest role = %q, want Viewer", cfg.GuestRoleName)
	}
	if !cfg.FeatureFlags["THUMBNAILS"] {
		t.Fatal("THUMBNAILS should be enabled by the override file")
	}
}

func TestFileOverridesMalformedDocumentFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panorama_config_docker.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	if _, err := Load(mapResolver(baseEnv()), FileOverrides{Path: path}); err == nil {
		t.Fatal("expected Load to fail for a malformed override file")
	}
}

func TestOverridePathResolvedFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(path, []byte("guest_role_name: Viewer\n"), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	env := baseEnv()
	env["PANORAMA_CONFIG_PATH"] = path
	cfg, err := Load(mapResolver(env), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.GuestRoleName != "Viewer" {
		t.Fatalf("guest role = %q, want Viewer", cfg.GuestRoleName)
	}
}
