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

package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHosts(t *testing.T) {
	s := &Scanner{OwnHost: "10.0.0.1", CIDR: "29", Port: 5000}
	hosts, err := s.Hosts()
	require.NoError(t, err)
	// .0 is the network, .1 is us, .7 is broadcast
	want := []netip.Addr{
		netip.MustParseAddr("10.0.0.2"),
		netip.MustParseAddr("10.0.0.3"),
		netip.MustParseAddr("10.0.0.4"),
		netip.MustParseAddr("10.0.0.5"),
		netip.MustParseAddr("10.0.0.6"),
	}
	require.Equal(t, want, hosts)
}

func TestHostsBadConfig(t *testing.T) {
	s := &Scanner{OwnHost: "not-an-ip", CIDR: "24"}
	_, err := s.Hosts()
	require.Error(t, err)

	s = &Scanner{OwnHost: "10.0.0.1", CIDR: "noise"}
	_, err = s.Hosts()
	require.Error(t, err)
}

func TestScanBadConfigIsNoop(t *testing.T) {
	s := &Scanner{OwnHost: "10.0.0.1", CIDR: "not-a-prefix"}
	require.Nil(t, s.Scan(context.Background()))
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ping", r.URL.Path)
		w.Write([]byte(`{"message": "pong", "identity": "192.0.2.7:5000"}`))
	}))
	defer srv.Close()

	s := &Scanner{Timeout: time.Second}
	id, ok := s.Probe(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.True(t, ok)
	require.Equal(t, "192.0.2.7:5000", id)
}

func TestProbeIdentityFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "pong"}`))
	}))
	defer srv.Close()

	target := strings.TrimPrefix(srv.URL, "http://")
	s := &Scanner{Timeout: time.Second}
	id, ok := s.Probe(context.Background(), target)
	require.True(t, ok)
	require.Equal(t, target, id)
}

func TestProbeNotAPeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "hello"}`))
	}))
	defer srv.Close()

	s := &Scanner{Timeout: time.Second}
	_, ok := s.Probe(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.False(t, ok)
}

func TestProbeSilence(t *testing.T) {
	s := &Scanner{Timeout: 50 * time.Millisecond}
	_, ok := s.Probe(context.Background(), "192.0.2.1:1")
	require.False(t, ok)
}
