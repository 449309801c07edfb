package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment describes the server this process runs on. It is detected
// once at startup and handed to whoever needs it.
type Environment struct {
	Name     string
	Hostname string
	BaseURL  string
}

// DetectEnvironment builds the Environment from configuration and the host.
func DetectEnvironment(cfg *Config) Environment {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	base := cfg.AppBaseURL
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", host, cfg.AppPort)
	}
	return Environment{Name: cfg.AppEnv, Hostname: host, BaseURL: strings.TrimRight(base, "/")}
}

// IsProduction reports whether the environment is named production.
func (e Environment) IsProduction() bool {
	return strings.EqualFold(e.Name, "production")
}

// URL makes an absolute link out of an application path.
func (e Environment) URL(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return e.BaseURL + "/" + strings.TrimLeft(p, "/")
}
