package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:          "~/.local/share/recall",
			SQLiteFile:    "promnesia.sqlite",
			BusyTimeoutMS: 5000,
		},
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   13131,
			ShutdownTimeoutSeconds: 10,
		},
		Timezone: "",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Canon: CanonConfig{
			CacheSize: 4096,
		},
	}
}
