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
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/protocol"
)

func init() {
	RootCmd.AddCommand(readyCmd)
	RootCmd.AddCommand(passCmd)
	RootCmd.AddCommand(comboCmd)
	RootCmd.AddCommand(powerUpCmd)
	RootCmd.AddCommand(discoverCmd)
	RootCmd.AddCommand(rematchCmd)
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Mark this peer ready to play",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/ready", nil)
	},
}

var passCmd = &cobra.Command{
	Use:   "pass <word>",
	Short: "Play the extended word and pass the ball",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/pass-ball", &protocol.PassBallPayload{
			NewWord:           args[0],
			ClientTimestampMs: time.Now().UnixMilli(),
		})
	},
}

var comboCmd = &cobra.Command{
	Use:       "combo <key>",
	Short:     "Spend a charged phone-pad combo (*, 0 or #)",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: letters.ComboKeys(),
	RunE: func(_ *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/combo", &protocol.ComboPayload{ComboKey: args[0]})
	},
}

var powerUpCmd = &cobra.Command{
	Use:   "power-up",
	Short: "Spend the full phone pad on the power-up",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/power-up", nil)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Start a subnet scan for other peers",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/discover", nil)
	},
}

var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Propose a rematch to all known players",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return printMessage(http.MethodPost, "/api/rematch", nil)
	},
}
