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

// Package protocol defines what peers put on the wire: the ball payload
// exchanged on every turn, the register handshake, the small command
// payloads, and the state snapshot pushed to websocket subscribers.
//
// Field names are part of the protocol and must not change. The mixed
// naming (snake_case next to camelCase incoming* keys) is historical and
// every peer on the subnet relies on it.
package protocol

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Version is the protocol version this peer speaks. Peers with a
// different major version cannot exchange balls.
const Version = "1.0.0"

// CheckCompatible returns an error when v names a protocol this peer
// cannot speak. An empty v is a peer from before versioning and is
// accepted as 1.0.0.
func CheckCompatible(v string) error {
	if v == "" {
		return nil
	}
	incoming, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("unparsable protocol version %q: %w", v, err)
	}
	mine := version.Must(version.NewVersion(Version))
	if incoming.Segments()[0] != mine.Segments()[0] {
		return fmt.Errorf("incompatible protocol version %q, this peer speaks %q", v, Version)
	}
	return nil
}
