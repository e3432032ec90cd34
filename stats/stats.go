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

/*
Package stats implements statistics collection and reporting.
It is used by the peer to report internal counters, such as number of
balls passed and received, plus process and runtime health.
*/
package stats

import (
	"encoding/json"
	"net/http"
	"time"
)

// Stats is a metric collection interface
type Stats interface {
	// Start runs a stat reporter on monitoringport.
	// Use this for passive reporters
	Start(monitoringport int)

	// Snapshot the values so they can be reported atomically
	Snapshot()

	// Reset atomically sets all the counters to 0
	Reset()

	// IncBallsReceived atomically adds 1 to the counter
	IncBallsReceived()

	// IncBallsPassed atomically adds 1 to the counter
	IncBallsPassed()

	// IncBallsSent atomically adds 1 to the counter
	IncBallsSent()

	// IncSendFailures atomically adds 1 to the counter
	IncSendFailures()

	// IncGamesStarted atomically adds 1 to the counter
	IncGamesStarted()

	// IncGamesFinished atomically adds 1 to the counter
	IncGamesFinished()

	// IncTimeoutLosses atomically adds 1 to the counter
	IncTimeoutLosses()

	// IncMissionsTriggered atomically adds 1 to the counter
	IncMissionsTriggered()

	// IncCombos atomically adds 1 to the counter
	IncCombos()

	// IncPowerUps atomically adds 1 to the counter
	IncPowerUps()

	// IncDiscoveryProbes atomically adds 1 to the counter
	IncDiscoveryProbes()

	// IncPeersFound atomically adds 1 to the counter
	IncPeersFound()

	// IncRegisters atomically adds 1 to the counter
	IncRegisters()

	// SetPlayers atomically sets the known player gauge
	SetPlayers(n int)

	// SetReadyPlayers atomically sets the ready player gauge
	SetReadyPlayers(n int)

	// SetWSClients atomically sets the websocket subscriber gauge
	SetWSClients(n int)

	// AddResponseTime feeds one observed move response time into the
	// aggregation window
	AddResponseTime(ms int)
}

// FetchCounters grabs the flat counter map from a peer's monitoring
// endpoint.
func FetchCounters(url string) (map[string]int64, error) {
	c := http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	counters := map[string]int64{}
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		return nil, err
	}
	return counters, nil
}
