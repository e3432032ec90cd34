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
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// counters is the set of values we track atomically.
type counters struct {
	ballsReceived     int64
	ballsPassed       int64
	ballsSent         int64
	sendFailures      int64
	gamesStarted      int64
	gamesFinished     int64
	timeoutLosses     int64
	missionsTriggered int64
	combos            int64
	powerUps          int64
	discoveryProbes   int64
	peersFound        int64
	registers         int64
	players           int64
	readyPlayers      int64
	wsClients         int64
}

func (c *counters) copy(dst *counters) {
	atomic.StoreInt64(&dst.ballsReceived, atomic.LoadInt64(&c.ballsReceived))
	atomic.StoreInt64(&dst.ballsPassed, atomic.LoadInt64(&c.ballsPassed))
	atomic.StoreInt64(&dst.ballsSent, atomic.LoadInt64(&c.ballsSent))
	atomic.StoreInt64(&dst.sendFailures, atomic.LoadInt64(&c.sendFailures))
	atomic.StoreInt64(&dst.gamesStarted, atomic.LoadInt64(&c.gamesStarted))
	atomic.StoreInt64(&dst.gamesFinished, atomic.LoadInt64(&c.gamesFinished))
	atomic.StoreInt64(&dst.timeoutLosses, atomic.LoadInt64(&c.timeoutLosses))
	atomic.StoreInt64(&dst.missionsTriggered, atomic.LoadInt64(&c.missionsTriggered))
	atomic.StoreInt64(&dst.combos, atomic.LoadInt64(&c.combos))
	atomic.StoreInt64(&dst.powerUps, atomic.LoadInt64(&c.powerUps))
	atomic.StoreInt64(&dst.discoveryProbes, atomic.LoadInt64(&c.discoveryProbes))
	atomic.StoreInt64(&dst.peersFound, atomic.LoadInt64(&c.peersFound))
	atomic.StoreInt64(&dst.registers, atomic.LoadInt64(&c.registers))
	atomic.StoreInt64(&dst.players, atomic.LoadInt64(&c.players))
	atomic.StoreInt64(&dst.readyPlayers, atomic.LoadInt64(&c.readyPlayers))
	atomic.StoreInt64(&dst.wsClients, atomic.LoadInt64(&c.wsClients))
}

func (c *counters) reset() {
	atomic.StoreInt64(&c.ballsReceived, 0)
	atomic.StoreInt64(&c.ballsPassed, 0)
	atomic.StoreInt64(&c.ballsSent, 0)
	atomic.StoreInt64(&c.sendFailures, 0)
	atomic.StoreInt64(&c.gamesStarted, 0)
	atomic.StoreInt64(&c.gamesFinished, 0)
	atomic.StoreInt64(&c.timeoutLosses, 0)
	atomic.StoreInt64(&c.missionsTriggered, 0)
	atomic.StoreInt64(&c.combos, 0)
	atomic.StoreInt64(&c.powerUps, 0)
	atomic.StoreInt64(&c.discoveryProbes, 0)
	atomic.StoreInt64(&c.peersFound, 0)
	atomic.StoreInt64(&c.registers, 0)
	atomic.StoreInt64(&c.players, 0)
	atomic.StoreInt64(&c.readyPlayers, 0)
	atomic.StoreInt64(&c.wsClients, 0)
}

func (c *counters) toMap() map[string]int64 {
	return map[string]int64{
		"wordball.balls.rx":           atomic.LoadInt64(&c.ballsReceived),
		"wordball.balls.passed":       atomic.LoadInt64(&c.ballsPassed),
		"wordball.balls.tx":           atomic.LoadInt64(&c.ballsSent),
		"wordball.balls.tx.failures":  atomic.LoadInt64(&c.sendFailures),
		"wordball.games.started":      atomic.LoadInt64(&c.gamesStarted),
		"wordball.games.finished":     atomic.LoadInt64(&c.gamesFinished),
		"wordball.games.timeoutloss":  atomic.LoadInt64(&c.timeoutLosses),
		"wordball.missions.triggered": atomic.LoadInt64(&c.missionsTriggered),
		"wordball.combos":             atomic.LoadInt64(&c.combos),
		"wordball.powerups":           atomic.LoadInt64(&c.powerUps),
		"wordball.discovery.probes":   atomic.LoadInt64(&c.discoveryProbes),
		"wordball.discovery.found":    atomic.LoadInt64(&c.peersFound),
		"wordball.registers":          atomic.LoadInt64(&c.registers),
		"wordball.players":            atomic.LoadInt64(&c.players),
		"wordball.players.ready":      atomic.LoadInt64(&c.readyPlayers),
		"wordball.ws.clients":         atomic.LoadInt64(&c.wsClients),
	}
}

// JSONStats is what we want to report as stats via http
type JSONStats struct {
	report counters

	counters

	// response time aggregation, guarded separately from the atomics
	rtMutex    sync.Mutex
	rt         *welford.Stats
	rtReport   map[string]int64
	sysstats   SysStats
	sysReport  map[string]int64
	sysMutex   sync.Mutex
	interval   time.Duration
	registry   *prometheus.Registry
	promGauges map[string]prometheus.Gauge
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	return &JSONStats{
		rt:         welford.New(),
		rtReport:   map[string]int64{},
		sysReport:  map[string]int64{},
		interval:   10 * time.Second,
		registry:   prometheus.NewRegistry(),
		promGauges: map[string]prometheus.Gauge{},
	}
}

// Start runs http server and the periodic snapshotting
func (s *JSONStats) Start(monitoringport int) {
	go func() {
		for range time.Tick(s.interval) {
			s.Snapshot()
		}
	}()
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	mux.HandleFunc("/counters", s.handleRequest)
	mux.Handle("/metrics", s.metricsHandler())
	addr := fmt.Sprintf(":%d", monitoringport)
	log.Infof("Starting http json server on %s", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}

// Snapshot the values so they can be reported atomically
func (s *JSONStats) Snapshot() {
	s.counters.copy(&s.report)

	s.rtMutex.Lock()
	if s.rt.Count() > 0 {
		s.rtReport = map[string]int64{
			"wordball.responsetime.ms.mean":   int64(s.rt.Mean()),
			"wordball.responsetime.ms.stddev": int64(s.rt.Stddev()),
			"wordball.responsetime.ms.min":    int64(s.rt.Min()),
			"wordball.responsetime.ms.max":    int64(s.rt.Max()),
			"wordball.responsetime.count":     int64(s.rt.Count()),
		}
	}
	s.rtMutex.Unlock()

	sys, err := s.sysstats.CollectRuntimeStats(s.interval)
	if err != nil {
		log.Debugf("collecting sysstats: %v", err)
		return
	}
	s.sysMutex.Lock()
	s.sysReport = sys
	s.sysMutex.Unlock()
}

// Reset atomically sets all the counters to 0
func (s *JSONStats) Reset() {
	s.counters.reset()
	s.rtMutex.Lock()
	s.rt = welford.New()
	s.rtReport = map[string]int64{}
	s.rtMutex.Unlock()
}

func (s *JSONStats) reportMap() map[string]int64 {
	out := s.report.toMap()
	s.rtMutex.Lock()
	for k, v := range s.rtReport {
		out[k] = v
	}
	s.rtMutex.Unlock()
	s.sysMutex.Lock()
	for k, v := range s.sysReport {
		out[k] = v
	}
	s.sysMutex.Unlock()
	return out
}

// handleRequest is a handler used for all http monitoring requests
func (s *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.reportMap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// metricsHandler refreshes the prometheus registry from the latest
// report before serving the scrape.
func (s *JSONStats) metricsHandler() http.Handler {
	promHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for mkey, mval := range s.reportMap() {
			g, ok := s.promGauges[mkey]
			if !ok {
				g = prometheus.NewGauge(prometheus.GaugeOpts{
					Name: flattenKey(mkey),
					Help: mkey,
				})
				if err := s.registry.Register(g); err != nil {
					are := &prometheus.AlreadyRegisteredError{}
					if errors.As(err, are) {
						g = are.ExistingCollector.(prometheus.Gauge)
					} else {
						log.Errorf("failed to register metric %s %v", mkey, err)
						continue
					}
				}
				s.promGauges[mkey] = g
			}
			g.Set(float64(mval))
		}
		promHandler.ServeHTTP(w, r)
	})
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

// IncBallsReceived atomically adds 1 to the counter
func (s *JSONStats) IncBallsReceived() {
	atomic.AddInt64(&s.ballsReceived, 1)
}

// IncBallsPassed atomically adds 1 to the counter
func (s *JSONStats) IncBallsPassed() {
	atomic.AddInt64(&s.ballsPassed, 1)
}

// IncBallsSent atomically adds 1 to the counter
func (s *JSONStats) IncBallsSent() {
	atomic.AddInt64(&s.ballsSent, 1)
}

// IncSendFailures atomically adds 1 to the counter
func (s *JSONStats) IncSendFailures() {
	atomic.AddInt64(&s.sendFailures, 1)
}

// IncGamesStarted atomically adds 1 to the counter
func (s *JSONStats) IncGamesStarted() {
	atomic.AddInt64(&s.gamesStarted, 1)
}

// IncGamesFinished atomically adds 1 to the counter
func (s *JSONStats) IncGamesFinished() {
	atomic.AddInt64(&s.gamesFinished, 1)
}

// IncTimeoutLosses atomically adds 1 to the counter
func (s *JSONStats) IncTimeoutLosses() {
	atomic.AddInt64(&s.timeoutLosses, 1)
}

// IncMissionsTriggered atomically adds 1 to the counter
func (s *JSONStats) IncMissionsTriggered() {
	atomic.AddInt64(&s.missionsTriggered, 1)
}

// IncCombos atomically adds 1 to the counter
func (s *JSONStats) IncCombos() {
	atomic.AddInt64(&s.combos, 1)
}

// IncPowerUps atomically adds 1 to the counter
func (s *JSONStats) IncPowerUps() {
	atomic.AddInt64(&s.powerUps, 1)
}

// IncDiscoveryProbes atomically adds 1 to the counter
func (s *JSONStats) IncDiscoveryProbes() {
	atomic.AddInt64(&s.discoveryProbes, 1)
}

// IncPeersFound atomically adds 1 to the counter
func (s *JSONStats) IncPeersFound() {
	atomic.AddInt64(&s.peersFound, 1)
}

// IncRegisters atomically adds 1 to the counter
func (s *JSONStats) IncRegisters() {
	atomic.AddInt64(&s.registers, 1)
}

// SetPlayers atomically sets the known player gauge
func (s *JSONStats) SetPlayers(n int) {
	atomic.StoreInt64(&s.players, int64(n))
}

// SetReadyPlayers atomically sets the ready player gauge
func (s *JSONStats) SetReadyPlayers(n int) {
	atomic.StoreInt64(&s.readyPlayers, int64(n))
}

// SetWSClients atomically sets the websocket subscriber gauge
func (s *JSONStats) SetWSClients(n int) {
	atomic.StoreInt64(&s.wsClients, int64(n))
}

// AddResponseTime feeds one observed move response time into the
// aggregation window
func (s *JSONStats) AddResponseTime(ms int) {
	s.rtMutex.Lock()
	s.rt.Add(float64(ms))
	s.rtMutex.Unlock()
}
