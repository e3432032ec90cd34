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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wordball/wordball/protocol"
)

var historyAllFlag bool

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVarP(&historyAllFlag, "all", "a", false, "include archived games")
}

// fetchSnapshot dials the peer's state feed and reads the initial push.
func fetchSnapshot() (*protocol.Snapshot, error) {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", peerFlag), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", peerFlag, err)
	}
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	snap := &protocol.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func renderHistory(title string, entries []protocol.HistoryEntry) error {
	fmt.Println(title)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("player", "word", "response(ms)", "next timeout(ms)", "modifiers")
	for _, e := range entries {
		nextTimeout := ""
		if e.TimeoutLog != nil {
			nextTimeout = fmt.Sprintf("%d", e.TimeoutLog.FinalTimeout)
		}
		err := table.Append(
			e.Player,
			e.Word,
			fmt.Sprintf("%d", e.ResponseTimeMs),
			nextTimeout,
			strings.Join(e.AppliedMultipliers, ", "),
		)
		if err != nil {
			return err
		}
	}
	return table.Render()
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the moves of the current game",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		snap, err := fetchSnapshot()
		if err != nil {
			return err
		}
		if len(snap.History) == 0 && !historyAllFlag {
			fmt.Println("no moves yet")
			return nil
		}
		if err := renderHistory("current game", snap.History); err != nil {
			return err
		}
		if historyAllFlag {
			for i, archived := range snap.Archive {
				if err := renderHistory(fmt.Sprintf("archived game %d", i+1), archived); err != nil {
					return err
				}
			}
		}
		return nil
	},
}
