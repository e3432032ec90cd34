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

package main

import (
	"context"
	"flag"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/server"
	"github.com/wordball/wordball/stats"

	_ "net/http/pprof"
)

func doWork(cfg *server.Config) error {
	st := stats.NewJSONStats()
	if cfg.MonitoringPort > 0 {
		go st.Start(cfg.MonitoringPort)
	}
	s := server.New(cfg, st)
	return s.Start(context.Background())
}

func main() {
	var (
		verboseFlag        bool
		ownHostFlag        string
		netmaskCIDRFlag    string
		monitoringPortFlag int
		configFlag         string
		pprofFlag          string
	)
	defaults := server.DefaultConfig()

	flag.BoolVar(&verboseFlag, "verbose", false, "verbose output")
	flag.StringVar(&ownHostFlag, "ownhost", defaults.OwnHost, "address other peers reach this one on")
	flag.StringVar(&netmaskCIDRFlag, "netmaskcidr", defaults.NetmaskCIDR, "prefix length of the subnet scanned during discovery")
	flag.StringVar(&configFlag, "config", "", "path to the config")
	flag.IntVar(&monitoringPortFlag, "monitoringport", defaults.MonitoringPort, "port to start monitoring http server on")
	flag.StringVar(&pprofFlag, "pprof", "", "Address to have the profiler listen on, disabled if empty.")

	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}
	cfg, err := server.PrepareConfig(configFlag, ownHostFlag, netmaskCIDRFlag, monitoringPortFlag, setFlags)
	if err != nil {
		log.Fatal(err)
	}
	if pprofFlag != "" {
		go func() {
			err = http.ListenAndServe(pprofFlag, nil)
			if err != nil {
				log.Errorf("Failed to start pprof. Err: %v", err)
			}
		}()
	}
	if err := doWork(cfg); err != nil {
		log.Fatal(err)
	}
}
