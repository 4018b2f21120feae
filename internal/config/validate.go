package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("remote.url: must be an http(s) URL, got %q", c.Remote.URL))
		}
		if c.Remote.Serve {
			errs = append(errs, "remote.serve: cannot serve documents while syncing to another remote")
		}
	}
	if c.Remote.Serve && c.Remote.Token == "" {
		errs = append(errs, "remote.token: required when remote.serve is enabled")
	}
	if c.Remote.Timeout.Duration < 0 {
		errs = append(errs, "remote.timeout: must not be negative")
	}

	if c.Sync.EscalateAfter < 0 {
		errs = append(errs, fmt.Sprintf("sync.escalate_after: must not be negative, got %d", c.Sync.EscalateAfter))
	}
	if c.Sync.WriteTimeout.Duration < 0 {
		errs = append(errs, "sync.write_timeout: must not be negative")
	}

	if c.Events.Retention.Duration < 0 {
		errs = append(errs, "events.retention: must not be negative")
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, "log: max_size_mb, max_backups and max_age_days must not be negative")
	}

	return errs
}
