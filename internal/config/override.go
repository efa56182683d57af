package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides supplies an optional partial configuration document that is
// merged over the resolved defaults. It is the sole extension point exposed
// to deployers: every top-level name the document defines replaces the
// corresponding resolved value.
type Overrides interface {
	Load() (map[string]any, error)
}

// ErrNoOverrides signals that the override source does not exist. This is
// the expected condition in default and local deployments, never an error.
var ErrNoOverrides = errors.New("config: no override source")

// NoOverrides is an Overrides provider that never finds a source.
type NoOverrides struct{}

// Load always reports the source as absent.
func (NoOverrides) Load() (map[string]any, error) { return nil, ErrNoOverrides }

// FileOverrides loads the override document from a YAML file. A missing
// file maps to ErrNoOverrides; a present but unparseable file is an error,
// since a deployment that ships an override intends it to be applied.
type FileOverrides struct {
	Path string
}

// Load reads and parses the override file.
func (f FileOverrides) Load() (map[string]any, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoOverrides
	}
	if err != nil {
		return nil, fmt.Errorf("config: read override file %s: %w", f.Path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse override file %s: %w", f.Path, err)
	}
	return doc, nil
}

// applyOverrides merges the override document into cfg. Known keys decode
// into their typed fields, feature_flags merges per key, and unknown keys
// are kept in cfg.Extra.
func applyOverrides(cfg *Config, src Overrides) error {
	doc, err := src.Load()
	if errors.Is(err, ErrNoOverrides) {
		slog.Info("no override configuration found, using defaults", "component", "config")
		return nil
	}
	if err != nil {
		return err
	}

	for key, val := range doc {
		var dst any
		switch key {
		case "database_uri":
			dst = &cfg.DatabaseURI
		case "cache":
			dst = &cfg.Cache
		case "data_cache":
			dst = &cfg.DataCache
		case "task_queue":
			dst = &cfg.TaskQueue
		case "auth":
			dst = &cfg.Auth
		case "http_port":
			dst = &cfg.HTTPPort
		case "guest_role_name":
			dst = &cfg.GuestRoleName
		case "report_base_url":
			dst = &cfg.ReportBaseURL
		case "report_base_url_user_friendly":
			dst = &cfg.ReportBaseURLUserFriendly
		case "querylab_ctas_no_limit":
			dst = &cfg.QueryLabCTASNoLimit
		case "alert_reports_dry_run":
			dst = &cfg.AlertReportsDryRun
		case "results_store_path":
			dst = &cfg.ResultsStorePath
		case "feature_flags":
			overlay := map[string]bool{}
			if err := decodeOverride(key, val, &overlay); err != nil {
				return err
			}
			MergeFlags(cfg.FeatureFlags, overlay)
			continue
		default:
			if cfg.Extra == nil {
				cfg.Extra = map[string]any{}
			}
			cfg.Extra[key] = val
			continue
		}
		if err := decodeOverride(key, val, dst); err != nil {
			return err
		}
	}

	slog.Info("applied override configuration", "component", "config")
	return nil
}

// decodeOverride round-trips one override value through YAML into its typed
// destination. Partial documents only touch the fields they define.
func decodeOverride(key string, val, dst any) error {
	data, err := yaml.Marshal(val)
	if err != nil {
		return fmt.Errorf("config: override key %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: override key %s: %w", key, err)
	}
	return nil
}
