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

package stats

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStats gathers process and Go runtime health counters.
type SysStats struct {
	memstats *runtime.MemStats
}

// setRate is a helper function to make a crude rate/diff
func setRate(name string, counts map[string]int64, cur, prev uint64, interval time.Duration) {
	if prev > cur {
		return
	}
	secs := uint64(interval.Seconds())
	if secs == 0 {
		return
	}
	counts[fmt.Sprintf("%s.sum.%d", name, secs)] = int64(cur - prev)
	counts[fmt.Sprintf("%s.rate.%d", name, secs)] = int64((cur - prev) / secs)
}

// CollectRuntimeStats gathers cpu, mem, gc statistics
func (s *SysStats) CollectRuntimeStats(interval time.Duration) (map[string]int64, error) {
	stats := make(map[string]int64)
	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)
	lastStats := s.memstats

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	stats["process.uptime"] = time.Now().Unix() - procStartTime.Unix()

	if val, err := proc.Percent(0); err == nil {
		stats[fmt.Sprintf("process.cpu_pct.avg.%d", int(interval.Seconds()))] = int64(val * 100)
	}

	if val, err := proc.MemoryInfo(); err == nil {
		stats["process.rss"] = int64(val.RSS)
		stats["process.vms"] = int64(val.VMS)
		stats["process.swap"] = int64(val.Swap)
	}

	if val, err := proc.NumFDs(); err == nil {
		stats["process.num_fds"] = int64(val)
	}

	if val, err := proc.NumThreads(); err == nil {
		stats["process.num_threads"] = int64(val)
	}

	stats["runtime.cpu.goroutines"] = int64(runtime.NumGoroutine())
	stats["runtime.mem.alloc"] = int64(m.Alloc)
	stats["runtime.mem.total"] = int64(m.TotalAlloc)
	stats["runtime.mem.sys"] = int64(m.Sys)
	stats["runtime.mem.heap.alloc"] = int64(m.HeapAlloc)
	stats["runtime.mem.heap.sys"] = int64(m.HeapSys)
	stats["runtime.mem.heap.inuse"] = int64(m.HeapInuse)
	stats["runtime.mem.heap.objects"] = int64(m.HeapObjects)
	stats["runtime.mem.stack.inuse"] = int64(m.StackInuse)
	stats["runtime.mem.gc.pause_total"] = int64(m.PauseTotalNs)
	stats["runtime.mem.gc.count"] = int64(m.NumGC)
	if lastStats != nil {
		setRate("runtime.mem.mallocs", stats, m.Mallocs, lastStats.Mallocs, interval)
		setRate("runtime.mem.frees", stats, m.Frees, lastStats.Frees, interval)
		setRate("runtime.gc.pause_ns", stats, m.PauseTotalNs, lastStats.PauseTotalNs, interval)
		setRate("runtime.gc.count", stats, uint64(m.NumGC), uint64(lastStats.NumGC), interval)
	}
	s.memstats = m
	return stats, nil
}
