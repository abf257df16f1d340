// Package config holds the runtime configuration for both the host process
// and the forked debugger process: the three ports from spec §6, the
// dev-mode flag, and their environment-variable overrides.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full set of recognised options from spec §6.
type Config struct {
	// Port is the debugger<->browser WebSocket port (NETWORK_PORT).
	Port int

	// ServerPort is the host<->debugger IPC port (NETWORK_SERVER_PORT).
	ServerPort int

	// RemoteDebuggerPort is the Chromium remote-debugging port
	// (REMOTE_DEBUGGER_PORT).
	RemoteDebuggerPort int

	// DevMode suppresses automatic browser launch when true
	// (NETWORK_DEBUG_MODE).
	DevMode bool
}

// DefaultConfig returns a Config populated with the defaults from spec §6.
func DefaultConfig() *Config {
	return &Config{
		Port:               5270,
		ServerPort:         5271,
		RemoteDebuggerPort: 9333,
		DevMode:            false,
	}
}

// applyEnv overrides cfg fields with any of the four recognised environment
// variables. Flags parsed later win over env, mirroring the override order
// documented in SPEC_FULL.md.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("NETWORK_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v, ok := lookup("NETWORK_SERVER_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.ServerPort = p
		}
	}
	if v, ok := lookup("REMOTE_DEBUGGER_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.RemoteDebuggerPort = p
		}
	}
	if v, ok := lookup("NETWORK_DEBUG_MODE"); ok {
		c.DevMode = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

// Load builds a Config from defaults, then the process environment, then the
// given command-line arguments. args is an arbitrary slice (not read from
// os.Args directly) so the parser stays deterministic and testable, the way
// the teacher's cli.ParseArgs takes an explicit []string.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnv(os.LookupEnv)

	fs := flag.NewFlagSet("netdebug", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	port := fs.Int("port", cfg.Port, "debugger<->browser websocket port")
	serverPort := fs.Int("server-port", cfg.ServerPort, "host<->debugger IPC port")
	remotePort := fs.Int("remote-debugger-port", cfg.RemoteDebuggerPort, "chromium remote-debugging port")
	devMode := fs.Bool("dev-mode", cfg.DevMode, "suppress automatic browser launch")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Port = *port
	cfg.ServerPort = *serverPort
	cfg.RemoteDebuggerPort = *remotePort
	cfg.DevMode = *devMode

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.ServerPort)
	}
	if cfg.RemoteDebuggerPort <= 0 || cfg.RemoteDebuggerPort > 65535 {
		return nil, fmt.Errorf("invalid remote debugger port: %d", cfg.RemoteDebuggerPort)
	}

	return cfg, nil
}

// InspectorURL builds the devtools:// URL the browser launcher opens, per
// spec §4.9 step 1.
func (c *Config) InspectorURL() string {
	return fmt.Sprintf("devtools://devtools/bundled/inspector.html?ws=localhost:%d", c.Port)
}
