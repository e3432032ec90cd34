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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wordball/wordball/protocol"
)

// RootCmd is the main entry point of the wordball operator CLI.
var RootCmd = &cobra.Command{
	Use:   "wordballctl",
	Short: "Operator CLI for a wordball peer",
}

var verbose bool
var peerFlag string
var monitoringFlag string

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&peerFlag, "peer", "p", "127.0.0.1:5000", "peer to talk to, host:port")
	RootCmd.PersistentFlags().StringVarP(&monitoringFlag, "monitoring", "m", "127.0.0.1:5001", "peer's monitoring server, host:port")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// apiCall hits one endpoint of the peer. A non-200 answer surfaces the
// peer's error detail.
func apiCall(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", peerFlag, path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		apiErr := &protocol.Error{}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Detail)
		}
		return fmt.Errorf("%s%s: %s", peerFlag, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// printMessage runs a fire-and-forget action and echoes the peer's answer.
func printMessage(method, path string, body interface{}) error {
	msg := &protocol.Message{}
	if err := apiCall(method, path, body, msg); err != nil {
		return err
	}
	fmt.Println(msg.Message)
	return nil
}
