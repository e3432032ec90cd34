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
	"strings"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wordball/wordball/protocol"
)

func init() {
	RootCmd.AddCommand(watchCmd)
}

func printSnapshot(snap *protocol.Snapshot) {
	fmt.Printf("players: %s ready: %s\n",
		strings.Join(snap.Players, ", "),
		strings.Join(snap.ReadyPlayers, ", "))
	if snap.Word == nil {
		fmt.Println("no game running")
		return
	}
	active := ""
	if snap.ActivePlayer != nil {
		active = *snap.ActivePlayer
	}
	line := fmt.Sprintf("word %s held by %s", color.CyanString(*snap.Word), active)
	if snap.TimeoutMs != nil {
		line += fmt.Sprintf(", %d ms on the clock", *snap.TimeoutMs)
	}
	fmt.Println(line)
	if len(snap.CursedLetters) > 0 {
		fmt.Printf("cursed: %s\n", color.YellowString(strings.Join(snap.CursedLetters, " ")))
	}
	if len(snap.DeadLetters) > 0 {
		fmt.Printf("dead: %s\n", color.RedString(strings.Join(snap.DeadLetters, " ")))
	}
	for _, m := range snap.ActiveMissions {
		fmt.Printf("mission %s: %d/%d\n", m.Name, m.CurrentStep, m.Goal)
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the peer's state feed and print every update",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", peerFlag), nil)
		if err != nil {
			return fmt.Errorf("dialing %s: %w", peerFlag, err)
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			snap := &protocol.Snapshot{}
			if err := json.Unmarshal(data, snap); err != nil {
				return err
			}
			printSnapshot(snap)
			fmt.Println("---")
		}
	},
}
