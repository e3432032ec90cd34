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

package stats

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONStatsCounters(t *testing.T) {
	s := NewJSONStats()
	s.IncBallsReceived()
	s.IncBallsReceived()
	s.IncBallsPassed()
	s.IncGamesStarted()
	s.SetPlayers(2)
	s.Snapshot()

	m := s.report.toMap()
	require.Equal(t, int64(2), m["wordball.balls.rx"])
	require.Equal(t, int64(1), m["wordball.balls.passed"])
	require.Equal(t, int64(1), m["wordball.games.started"])
	require.Equal(t, int64(2), m["wordball.players"])
	require.Equal(t, int64(0), m["wordball.games.finished"])
}

func TestJSONStatsReset(t *testing.T) {
	s := NewJSONStats()
	s.IncCombos()
	s.AddResponseTime(1200)
	s.Reset()
	s.Snapshot()
	m := s.reportMap()
	require.Equal(t, int64(0), m["wordball.combos"])
	_, ok := m["wordball.responsetime.count"]
	require.False(t, ok)
}

func TestJSONStatsResponseTimes(t *testing.T) {
	s := NewJSONStats()
	s.AddResponseTime(1000)
	s.AddResponseTime(3000)
	s.Snapshot()
	m := s.reportMap()
	require.Equal(t, int64(2000), m["wordball.responsetime.ms.mean"])
	require.Equal(t, int64(1000), m["wordball.responsetime.ms.min"])
	require.Equal(t, int64(3000), m["wordball.responsetime.ms.max"])
	require.Equal(t, int64(2), m["wordball.responsetime.count"])
}

func TestJSONStatsHandleRequest(t *testing.T) {
	s := NewJSONStats()
	s.IncPeersFound()
	s.Snapshot()

	w := httptest.NewRecorder()
	s.handleRequest(w, httptest.NewRequest("GET", "/counters", nil))
	require.Equal(t, 200, w.Code)

	got := map[string]int64{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, int64(1), got["wordball.discovery.found"])
}

func TestSysStatsCollect(t *testing.T) {
	s := &SysStats{}
	m, err := s.CollectRuntimeStats(10 * time.Second)
	require.NoError(t, err)
	require.Contains(t, m, "runtime.cpu.goroutines")
	require.Greater(t, m["runtime.mem.alloc"], int64(0))
}
