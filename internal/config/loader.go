package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Bounds on the worker count a run may be configured with.
const (
	MinThreads = 1
	MaxThreads = 50
)

// Settings is the run configuration loaded once at batch start and immutable
// for the run's duration.
type Settings struct {
	// Site
	BaseURL          string
	RegisterFormID   string
	LoginFormID      string
	LoggedOutMarker  string
	RequestTimeoutMs int

	// Network
	ProxyURL           string
	ProxyTestURL       string
	ProxyTestTimeoutMs int

	// Processing
	Threads          int
	RegisterSettleMs int
	LoginSettleMs    int
	PopTimeoutMs     int
	WorkerExitWaitMs int
	EventQueueSize   int

	// Paths
	OutputDir     string
	LogDir        string
	HistoryDBPath string
	RoomsFile     string

	// Logging
	LogLevel       string
	LoggingEnabled bool
}

// NewDefaultSettings returns settings matching a stock install, used when no
// Settings.ini exists yet.
func NewDefaultSettings() *Settings {
	return &Settings{
		BaseURL:            "https://gladecontest.ca/",
		RegisterFormID:     "gform_1",
		LoginFormID:        "gform_3",
		LoggedOutMarker:    "Login to play",
		RequestTimeoutMs:   30000,
		ProxyTestURL:       "https://httpbin.org/ip",
		ProxyTestTimeoutMs: 10000,
		Threads:            5,
		RegisterSettleMs:   2000,
		LoginSettleMs:      1000,
		PopTimeoutMs:       1000,
		WorkerExitWaitMs:   2000,
		EventQueueSize:     256,
		OutputDir:          ".",
		LogDir:             "logs",
		HistoryDBPath:      "data/history.db",
		RoomsFile:          "rooms.yaml",
		LogLevel:           "INFO",
		LoggingEnabled:     true,
	}
}

// Load reads settings from an INI file, filling defaults for missing keys.
func Load(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	defaults := NewDefaultSettings()
	settings := &Settings{}

	site := cfg.Section("Site")
	settings.BaseURL = site.Key("BaseURL").MustString(defaults.BaseURL)
	settings.RegisterFormID = site.Key("RegisterFormID").MustString(defaults.RegisterFormID)
	settings.LoginFormID = site.Key("LoginFormID").MustString(defaults.LoginFormID)
	settings.LoggedOutMarker = site.Key("LoggedOutMarker").MustString(defaults.LoggedOutMarker)
	settings.RequestTimeoutMs = site.Key("RequestTimeoutMs").MustInt(defaults.RequestTimeoutMs)

	network := cfg.Section("Network")
	settings.ProxyURL = network.Key("ProxyURL").MustString("")
	settings.ProxyTestURL = network.Key("ProxyTestURL").MustString(defaults.ProxyTestURL)
	settings.ProxyTestTimeoutMs = network.Key("ProxyTestTimeoutMs").MustInt(defaults.ProxyTestTimeoutMs)

	processing := cfg.Section("Processing")
	settings.Threads = processing.Key("Threads").MustInt(defaults.Threads)
	settings.RegisterSettleMs = processing.Key("RegisterSettleMs").MustInt(defaults.RegisterSettleMs)
	settings.LoginSettleMs = processing.Key("LoginSettleMs").MustInt(defaults.LoginSettleMs)
	settings.PopTimeoutMs = processing.Key("PopTimeoutMs").MustInt(defaults.PopTimeoutMs)
	settings.WorkerExitWaitMs = processing.Key("WorkerExitWaitMs").MustInt(defaults.WorkerExitWaitMs)
	settings.EventQueueSize = processing.Key("EventQueueSize").MustInt(defaults.EventQueueSize)

	paths := cfg.Section("Paths")
	settings.OutputDir = paths.Key("OutputDir").MustString(defaults.OutputDir)
	settings.LogDir = paths.Key("LogDir").MustString(defaults.LogDir)
	settings.HistoryDBPath = paths.Key("HistoryDBPath").MustString(defaults.HistoryDBPath)
	settings.RoomsFile = paths.Key("RoomsFile").MustString(defaults.RoomsFile)

	logging := cfg.Section("Logging")
	settings.LogLevel = logging.Key("LogLevel").MustString(defaults.LogLevel)
	settings.LoggingEnabled = logging.Key("LoggingEnabled").MustBool(defaults.LoggingEnabled)

	settings.Threads = ClampThreads(settings.Threads)

	return settings, nil
}

// Save writes settings to an INI file.
func Save(settings *Settings, path string) error {
	cfg := ini.Empty()

	site := cfg.Section("Site")
	site.Key("BaseURL").SetValue(settings.BaseURL)
	site.Key("RegisterFormID").SetValue(settings.RegisterFormID)
	site.Key("LoginFormID").SetValue(settings.LoginFormID)
	site.Key("LoggedOutMarker").SetValue(settings.LoggedOutMarker)
	site.Key("RequestTimeoutMs").SetValue(fmt.Sprintf("%d", settings.RequestTimeoutMs))

	network := cfg.Section("Network")
	network.Key("ProxyURL").SetValue(settings.ProxyURL)
	network.Key("ProxyTestURL").SetValue(settings.ProxyTestURL)
	network.Key("ProxyTestTimeoutMs").SetValue(fmt.Sprintf("%d", settings.ProxyTestTimeoutMs))

	processing := cfg.Section("Processing")
	processing.Key("Threads").SetValue(fmt.Sprintf("%d", settings.Threads))
	processing.Key("RegisterSettleMs").SetValue(fmt.Sprintf("%d", settings.RegisterSettleMs))
	processing.Key("LoginSettleMs").SetValue(fmt.Sprintf("%d", settings.LoginSettleMs))
	processing.Key("PopTimeoutMs").SetValue(fmt.Sprintf("%d", settings.PopTimeoutMs))
	processing.Key("WorkerExitWaitMs").SetValue(fmt.Sprintf("%d", settings.WorkerExitWaitMs))
	processing.Key("EventQueueSize").SetValue(fmt.Sprintf("%d", settings.EventQueueSize))

	paths := cfg.Section("Paths")
	paths.Key("OutputDir").SetValue(settings.OutputDir)
	paths.Key("LogDir").SetValue(settings.LogDir)
	paths.Key("HistoryDBPath").SetValue(settings.HistoryDBPath)
	paths.Key("RoomsFile").SetValue(settings.RoomsFile)

	logging := cfg.Section("Logging")
	logging.Key("LogLevel").SetValue(settings.LogLevel)
	logging.Key("LoggingEnabled").SetValue(fmt.Sprintf("%t", settings.LoggingEnabled))

	return cfg.SaveTo(path)
}

// ClampThreads bounds a worker count to the supported range.
func ClampThreads(n int) int {
	if n < MinThreads {
		return MinThreads
	}
	if n > MaxThreads {
		return MaxThreads
	}
	return n
}
