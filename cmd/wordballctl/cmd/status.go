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

package cmd

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
)

var statusCountersFlag bool

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusCountersFlag, "counters", "c", false, "also print the peer's raw monitoring counters")
}

var okString = color.GreenString("[ OK ]")
var failString = color.RedString("[FAIL]")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the peer's identity and the word in play",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()

		pong := &protocol.PingResponse{}
		if err := apiCall(http.MethodGet, "/api/ping", nil, pong); err != nil {
			fmt.Printf("%s peer %s unreachable: %v\n", failString, peerFlag, err)
			return err
		}
		fmt.Printf("%s peer %s\n", okString, pong.Identity)

		ball := &protocol.WordResponse{}
		if err := apiCall(http.MethodGet, "/api/get-ball", nil, ball); err != nil {
			return err
		}
		if ball.Word == nil {
			fmt.Println("no game running")
		} else {
			fmt.Printf("word in play: %s\n", color.CyanString(*ball.Word))
		}

		if !statusCountersFlag {
			return nil
		}
		counters, err := stats.FetchCounters(fmt.Sprintf("http://%s/counters", monitoringFlag))
		if err != nil {
			return fmt.Errorf("fetching counters from %s: %w", monitoringFlag, err)
		}
		keys := make([]string, 0, len(counters))
		for k := range counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %d\n", k, counters[k])
		}
		return nil
	},
}
