// Package config resolves the deployment configuration for Panorama from
// environment variables, with an optional YAML override document applied as
// the final step. Resolution is fail-fast: a missing required variable
// aborts before any derived value is computed, so a partially resolved
// configuration never escapes this package.
package config

import (
	"fmt"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultQueueDB   = "0"
	DefaultResultsDB = "1"

	DefaultCacheTimeout   = 300 * time.Second
	DefaultCacheKeyPrefix = "panorama_"

	DefaultHTTPPort     = "8088"
	DefaultResultsPath  = "/app/panorama_home/querylab"
	DefaultOverridePath = "panorama_config_docker.yaml"

	DefaultGuestRoleName = "Gamma"
	DefaultReportBaseURL = "http://panorama:8088/"
)

// CacheSettings configures one named cache backend.
type CacheSettings struct {
	Type           string        `yaml:"type"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	KeyPrefix      string        `yaml:"key_prefix"`
	RedisHost      string        `yaml:"redis_host"`
	RedisPort      string        `yaml:"redis_port"`
	RedisDB        string        `yaml:"redis_db"`
}

// ScheduleEntry names a task and the cron expression that triggers it.
type ScheduleEntry struct {
	Task     string `yaml:"task"`
	Schedule string `yaml:"schedule"`
}

// TaskQueueSettings configures the background task queue: where tasks are
// dispatched, where their results are recorded, and the beat schedule.
type TaskQueueSettings struct {
	BrokerURL                string                   `yaml:"broker_url"`
	ResultBackendURL         string                   `yaml:"result_backend_url"`
	Imports                  []string                 `yaml:"imports"`
	WorkerPrefetchMultiplier int                      `yaml:"worker_prefetch_multiplier"`
	TaskAcksLate             bool                     `yaml:"task_acks_late"`
	BeatSchedule             map[string]ScheduleEntry `yaml:"beat_schedule"`
}

// AuthSettings holds role and registration policy defaults.
type AuthSettings struct {
	AdminRole        string `yaml:"admin_role"`
	PublicRole       string `yaml:"public_role"`
	UserRegistration bool   `yaml:"user_registration"`
	RegistrationRole string `yaml:"registration_role"`
	CSRFEnabled      bool   `yaml:"csrf_enabled"`
}

// Config is the resolved deployment configuration. It is constructed once
// by Load, treated as read-only afterwards, and passed explicitly to every
// consumer — there is no ambient global configuration.
type Config struct {
	DatabaseURI string `yaml:"database_uri"`

	// Cache and DataCache are resolved to identical settings; deployments
	// that want a separate data cache split them in the override document.
	Cache     CacheSettings `yaml:"cache"`
	DataCache CacheSettings `yaml:"data_cache"`

	TaskQueue TaskQueueSettings `yaml:"task_queue"`

	FeatureFlags map[string]bool `yaml:"feature_flags"`

	Auth AuthSettings `yaml:"auth"`

	HTTPPort                  string `yaml:"http_port"`
	GuestRoleName             string `yaml:"guest_role_name"`
	ReportBaseURL             string `yaml:"report_base_url"`
	ReportBaseURLUserFriendly string `yaml:"report_base_url_user_friendly"`
	QueryLabCTASNoLimit       bool   `yaml:"querylab_ctas_no_limit"`
	AlertReportsDryRun        bool   `yaml:"alert_reports_dry_run"`
	ResultsStorePath          string `yaml:"results_store_path"`

	// Extra holds override keys that do not correspond to any known
	// setting. The override merge is deliberately unrestricted, so
	// deployment-specific names survive here instead of being rejected.
	Extra map[string]any `yaml:"-"`
}

// Load resolves the full configuration. A nil resolver reads the process
// environment; a nil override source falls back to the YAML file named by
// PANORAMA_CONFIG_PATH. The override document, when present, is applied
// last and wins over everything resolved here.
func Load(r *Resolver, override Overrides) (*Config, error) {
	if r == nil {
		r = NewResolver()
	}

	dialect, err := r.Require("DATABASE_DIALECT")
	if err != nil {
		return nil, err
	}
	user, err := r.Require("DATABASE_USER")
	if err != nil {
		return nil, err
	}
	password, err := r.Require("DATABASE_PASSWORD")
	if err != nil {
		return nil, err
	}
	dbHost, err := r.Require("DATABASE_HOST")
	if err != nil {
		return nil, err
	}
	dbPort, err := r.Require("DATABASE_PORT")
	if err != nil {
		return nil, err
	}
	dbName, err := r.Require("DATABASE_DB")
	if err != nil {
		return nil, err
	}
	redisHost, err := r.Require("REDIS_HOST")
	if err != nil {
		return nil, err
	}
	redisPort, err := r.Require("REDIS_PORT")
	if err != nil {
		return nil, err
	}

	queueDB := r.Get("REDIS_QUEUE_DB", DefaultQueueDB)
	resultsDB := r.Get("REDIS_RESULTS_DB", DefaultResultsDB)

	cacheSettings := CacheSettings{
		Type:           "redis",
		DefaultTimeout: DefaultCacheTimeout,
		KeyPrefix:      DefaultCacheKeyPrefix,
		RedisHost:      redisHost,
		RedisPort:      redisPort,
		RedisDB:        resultsDB,
	}

	cfg := &Config{
		DatabaseURI: BuildDatabaseURI(dialect, user, password, dbHost, dbPort, dbName),
		Cache:       cacheSettings,
		DataCache:   cacheSettings,
		TaskQueue: TaskQueueSettings{
			BrokerURL:                fmt.Sprintf("redis://%s:%s/%s", redisHost, redisPort, queueDB),
			ResultBackendURL:         fmt.Sprintf("redis://%s:%s/%s", redisHost, redisPort, resultsDB),
			Imports:                  []string{"panorama.reports"},
			WorkerPrefetchMultiplier: 1,
			TaskAcksLate:             false,
			BeatSchedule:             defaultBeatSchedule(),
		},
		FeatureFlags: DefaultFlags(),
		Auth: AuthSettings{
			AdminRole:        "Admin",
			PublicRole:       "Public",
			UserRegistration: true,
			RegistrationRole: "Gamma",
			CSRFEnabled:      false,
		},
		HTTPPort:                  r.Get("PANORAMA_PORT", DefaultHTTPPort),
		GuestRoleName:             DefaultGuestRoleName,
		ReportBaseURL:             DefaultReportBaseURL,
		ReportBaseURLUserFriendly: DefaultReportBaseURL,
		QueryLabCTASNoLimit:       true,
		AlertReportsDryRun:        true,
		ResultsStorePath:          r.Get("QUERYLAB_RESULTS_PATH", DefaultResultsPath),
	}

	MergeFlags(cfg.FeatureFlags, BuiltinFlagOverlay())

	if override == nil {
		override = FileOverrides{Path: r.Get("PANORAMA_CONFIG_PATH", DefaultOverridePath)}
	}
	if err := applyOverrides(cfg, override); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BuildDatabaseURI formats a connection string from its parts. Components
// are not validated here; the required ones are resolved upstream.
func BuildDatabaseURI(dialect, user, password, host, port, db string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s", dialect, user, password, host, port, db)
}

// defaultBeatSchedule is the schedule table handed to the beat scheduler:
// the report scheduler sweeps every minute, the log pruner runs daily at
// ten past midnight.
func defaultBeatSchedule() map[string]ScheduleEntry {
	return map[string]ScheduleEntry{
		"reports.scheduler": {Task: "reports.scheduler", Schedule: "* * * * *"},
		"reports.prune_log": {Task: "reports.prune_log", Schedule: "10 0 * * *"},
	}
}
