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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wordball/wordball/protocol"
)

// broadcastConcurrency caps parallel peer posts during fan-out.
const broadcastConcurrency = 20

// Dispatcher delivers game traffic to other peers over their HTTP
// APIs. Only SendBall failures matter to callers; broadcasts and
// register-backs are fire and forget.
type Dispatcher struct {
	client *http.Client

	registerTimeout    time.Duration
	broadcastTimeout   time.Duration
	sendBallTimeout    time.Duration
	healthCheckTimeout time.Duration
}

// NewDispatcher returns a dispatcher with per-operation timeouts from cfg.
func NewDispatcher(cfg *Config) *Dispatcher {
	return &Dispatcher{
		client:             &http.Client{},
		registerTimeout:    cfg.RegisterTimeout,
		broadcastTimeout:   cfg.BroadcastTimeout,
		sendBallTimeout:    cfg.SendBallTimeout,
		healthCheckTimeout: cfg.HealthCheckTimeout,
	}
}

func (d *Dispatcher) post(ctx context.Context, target, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s%s", target, path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s%s: unexpected status %d", target, path, resp.StatusCode)
	}
	return nil
}

// SendBall posts the ball to the next holder. An error means the
// holder never acknowledged and the caller decides the forfeit.
func (d *Dispatcher) SendBall(target string, ball *protocol.BallPayload) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendBallTimeout)
	defer cancel()
	return d.post(ctx, target, "/api/receive-ball", ball)
}

// Broadcast posts body to path on every peer in parallel, best effort.
func (d *Dispatcher) Broadcast(path string, body interface{}, peers []string) {
	eg := &errgroup.Group{}
	eg.SetLimit(broadcastConcurrency)
	for _, peer := range peers {
		eg.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), d.broadcastTimeout)
			defer cancel()
			if err := d.post(ctx, peer, path, body); err != nil {
				log.Warningf("broadcasting %s to %s: %v", path, peer, err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// RegisterBack introduces this peer's state to target, best effort.
func (d *Dispatcher) RegisterBack(target string, reg *protocol.RegisterPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), d.registerTimeout)
	defer cancel()
	if err := d.post(ctx, target, "/api/register", reg); err != nil {
		log.Warningf("registering back with %s: %v", target, err)
	}
}

// HealthCheck probes a candidate next holder before the ball is
// committed to it.
func (d *Dispatcher) HealthCheck(target string) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.healthCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/health", target), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	health := &protocol.HealthResponse{}
	if err := json.NewDecoder(resp.Body).Decode(health); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("%s reported status %q", target, health.Status)
	}
	return nil
}
