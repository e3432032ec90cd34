/*
Copyright (c) the wordball authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Config specifies wordball run options
type Config struct {
	// OwnHost is the address peers reach us on; other peers key all
	// game state by "OwnHost:Port".
	OwnHost string `yaml:"own_host"`
	// NetmaskCIDR is the prefix length scanned during discovery.
	NetmaskCIDR string `yaml:"netmask_cidr"`
	// Port serves the game API and the WebSocket state feed.
	Port int `yaml:"port"`
	// MonitoringPort serves counters and metrics, 0 disables it.
	MonitoringPort int `yaml:"monitoring_port"`

	ScanConcurrency    int           `yaml:"scan_concurrency"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	RegisterTimeout    time.Duration `yaml:"register_timeout"`
	BroadcastTimeout   time.Duration `yaml:"broadcast_timeout"`
	SendBallTimeout    time.Duration `yaml:"send_ball_timeout"`
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout"`
}

// DefaultConfig returns Config initialized with default values
func DefaultConfig() *Config {
	return &Config{
		NetmaskCIDR:        "24",
		Port:               5000,
		MonitoringPort:     5001,
		ScanConcurrency:    50,
		PingTimeout:        500 * time.Millisecond,
		RegisterTimeout:    time.Second,
		BroadcastTimeout:   time.Second,
		SendBallTimeout:    2 * time.Second,
		HealthCheckTimeout: 500 * time.Millisecond,
	}
}

// ID returns the identity other peers know this one by.
func (c *Config) ID() string {
	return fmt.Sprintf("%s:%d", c.OwnHost, c.Port)
}

// Validate config is sane
func (c *Config) Validate() error {
	// Hostnames are fine here; discovery just skips the subnet scan
	// when the host is not an IP literal.
	if c.OwnHost == "" {
		return fmt.Errorf("ownhost must be specified")
	}
	bits, err := strconv.Atoi(c.NetmaskCIDR)
	if err != nil || bits < 0 || bits > 32 {
		return fmt.Errorf("netmaskcidr must be a prefix length between 0 and 32")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be a valid port number")
	}
	if c.MonitoringPort < 0 || c.MonitoringPort > 65535 {
		return fmt.Errorf("monitoringport must be 0 or a valid port number")
	}
	if c.ScanConcurrency <= 0 {
		return fmt.Errorf("scanconcurrency must be greater than zero")
	}
	for name, d := range map[string]time.Duration{
		"pingtimeout":        c.PingTimeout,
		"registertimeout":    c.RegisterTimeout,
		"broadcasttimeout":   c.BroadcastTimeout,
		"sendballtimeout":    c.SendBallTimeout,
		"healthchecktimeout": c.HealthCheckTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be greater than zero", name)
		}
	}
	return nil
}

// ReadConfig reads config from the file
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, &c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// PrepareConfig prepares final version of config based on defaults,
// CLI flags, environment and on-disk config, and validates the result
func PrepareConfig(cfgPath string, ownHost string, netmaskCIDR string, monitoringPort int, setFlags map[string]bool) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if v := os.Getenv("OWN_HOST"); v != "" && cfg.OwnHost == "" {
		cfg.OwnHost = v
	}
	if v := os.Getenv("NETMASK_CIDR"); v != "" {
		cfg.NetmaskCIDR = v
	}
	if setFlags["ownhost"] {
		warn("ownhost")
		cfg.OwnHost = ownHost
	}
	if setFlags["netmaskcidr"] {
		warn("netmaskcidr")
		cfg.NetmaskCIDR = netmaskCIDR
	}
	if setFlags["monitoringport"] {
		warn("monitoringport")
		cfg.MonitoringPort = monitoringPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}
