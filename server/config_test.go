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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate(), "own host is required")

	cfg.OwnHost = "192.168.1.10"
	require.NoError(t, cfg.Validate())

	// hostnames are accepted too, discovery degrades on its own
	cfg.OwnHost = "localhost"
	require.NoError(t, cfg.Validate())
	cfg.OwnHost = "192.168.1.10"

	cfg.NetmaskCIDR = "33"
	require.Error(t, cfg.Validate())
	cfg.NetmaskCIDR = "16"
	require.NoError(t, cfg.Validate())

	cfg.SendBallTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestConfigID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OwnHost = "192.168.1.10"
	require.Equal(t, "192.168.1.10:5000", cfg.ID())
}

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordball.yaml")
	data := `own_host: 10.1.2.3
netmask_cidr: "16"
monitoring_port: 6001
send_ball_timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "10.1.2.3", cfg.OwnHost)
	require.Equal(t, "16", cfg.NetmaskCIDR)
	require.Equal(t, 6001, cfg.MonitoringPort)
	require.Equal(t, 3*time.Second, cfg.SendBallTimeout)
	// untouched keys keep their defaults
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, 500*time.Millisecond, cfg.PingTimeout)
}

func TestPrepareConfig(t *testing.T) {
	t.Setenv("OWN_HOST", "10.0.0.7")
	t.Setenv("NETMASK_CIDR", "25")

	cfg, err := PrepareConfig("", "", "", 0, map[string]bool{})
	require.NoError(t, err)
	require.Equal(t, "10.0.0.7", cfg.OwnHost)
	require.Equal(t, "25", cfg.NetmaskCIDR)

	// flags win over environment
	cfg, err = PrepareConfig("", "10.0.0.8", "24", 7001, map[string]bool{
		"ownhost": true, "netmaskcidr": true, "monitoringport": true,
	})
	require.NoError(t, err)
	require.Equal(t, "10.0.0.8", cfg.OwnHost)
	require.Equal(t, "24", cfg.NetmaskCIDR)
	require.Equal(t, 7001, cfg.MonitoringPort)
}

func TestPrepareConfigRejectsInvalid(t *testing.T) {
	t.Setenv("OWN_HOST", "")
	t.Setenv("NETMASK_CIDR", "")
	_, err := PrepareConfig("", "", "", 0, map[string]bool{})
	require.Error(t, err)
}
