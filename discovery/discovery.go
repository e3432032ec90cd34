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

// Package discovery finds other peers on the local subnet. Every host
// of the configured prefix is probed with a short ping; hosts that
// answer with a pong and an identity are reported back so the caller
// can run the register handshake. The scan is best effort: hosts that
// never answer never surface.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
)

// DefaultConcurrency caps how many probes run at once so a /16 scan
// does not exhaust sockets.
const DefaultConcurrency = 50

// Scanner probes a subnet for peers.
type Scanner struct {
	// OwnHost is this peer's IPv4 literal; it is skipped during scans.
	OwnHost string
	// CIDR is the prefix length of the local subnet, e.g. "24".
	CIDR string
	// Port every peer listens on.
	Port int
	// Timeout bounds a single probe.
	Timeout time.Duration
	// Concurrency caps parallel probes; DefaultConcurrency when 0.
	Concurrency int
	// Known reports whether a peer id is already registered; known
	// peers are not probed again.
	Known func(id string) bool

	Stats stats.Stats
}

// Hosts enumerates the addresses of the local subnet, own address
// excluded. An unparsable host or prefix is a configuration failure:
// the error is returned and the caller is expected to log and no-op.
func (s *Scanner) Hosts() ([]netip.Addr, error) {
	own, err := netip.ParseAddr(s.OwnHost)
	if err != nil {
		return nil, fmt.Errorf("parsing own host %q: %w", s.OwnHost, err)
	}
	prefix, err := own.Prefix(atoiCIDR(s.CIDR))
	if err != nil {
		return nil, fmt.Errorf("parsing prefix %s/%s: %w", s.OwnHost, s.CIDR, err)
	}
	var hosts []netip.Addr
	first := prefix.Masked().Addr()
	for addr := first.Next(); prefix.Contains(addr); addr = addr.Next() {
		if addr == own {
			continue
		}
		hosts = append(hosts, addr)
	}
	// the last address of an IPv4 prefix is the broadcast address
	if len(hosts) > 0 && own.Is4() {
		hosts = hosts[:len(hosts)-1]
	}
	return hosts, nil
}

func atoiCIDR(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	if s == "" {
		return -1
	}
	return n
}

// Scan probes every host of the subnet and returns the identities of
// the peers that answered. Unknown-at-start peers only; transport
// errors are absorbed.
func (s *Scanner) Scan(ctx context.Context) []string {
	hosts, err := s.Hosts()
	if err != nil {
		log.Errorf("discovery disabled: %v", err)
		return nil
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var mu sync.Mutex
	var found []string
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, h := range hosts {
		target := fmt.Sprintf("%s:%d", h, s.Port)
		if s.Known != nil && s.Known(target) {
			continue
		}
		eg.Go(func() error {
			if id, ok := s.Probe(ctx, target); ok {
				mu.Lock()
				found = append(found, id)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	log.Infof("discovery scan done, %d of %d hosts answered", len(found), len(hosts))
	return found
}

// Probe pings one candidate peer and returns its identity. Peers
// answer with a pong token; anything else is treated as silence.
func (s *Scanner) Probe(ctx context.Context, target string) (string, bool) {
	if s.Stats != nil {
		s.Stats.IncDiscoveryProbes()
	}
	client := &http.Client{Timeout: s.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/ping", target), nil)
	if err != nil {
		return "", false
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	pong := &protocol.PingResponse{}
	if err := json.NewDecoder(resp.Body).Decode(pong); err != nil {
		return "", false
	}
	if pong.Message != "pong" {
		return "", false
	}
	log.Infof("found potential peer: %s", target)
	if s.Stats != nil {
		s.Stats.IncPeersFound()
	}
	if pong.Identity != "" {
		return pong.Identity, true
	}
	return target, true
}
